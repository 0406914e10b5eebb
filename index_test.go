package palletjack

import (
	"errors"
	"testing"
)

func TestLoadIndexBytesRejectsBadMagic(t *testing.T) {
	data := make([]byte, headerSize)
	copy(data, "PJ_1")
	if _, err := LoadIndexBytes(data); !errors.Is(err, ErrFormat) {
		t.Fatalf("got err=%v, want ErrFormat", err)
	}
}

func TestLoadIndexBytesRejectsTruncatedHeader(t *testing.T) {
	if _, err := LoadIndexBytes([]byte("PJ_2")); !errors.Is(err, ErrFormat) {
		t.Fatalf("got err=%v, want ErrFormat", err)
	}
}

func TestLoadIndexBytesRejectsSizeMismatch(t *testing.T) {
	footer := fixtureFileMetaData([]string{"a", "b"}, []int64{10})
	header, offsets, err := buildOffsetTable(footer)
	if err != nil {
		t.Fatalf("buildOffsetTable: %v", err)
	}
	if err := validateOffsetTable(header, offsets); err != nil {
		t.Fatalf("validateOffsetTable: %v", err)
	}
	data := marshalIndex(header, offsets, footer)

	if _, err := LoadIndexBytes(data[:len(data)-1]); !errors.Is(err, ErrFormat) {
		t.Fatalf("got err=%v, want ErrFormat", err)
	}
}

func TestLoadIndexBytesRoundTrip(t *testing.T) {
	footer := fixtureFileMetaData([]string{"a", "b", "c"}, []int64{3, 7, 11})
	header, offsets, err := buildOffsetTable(footer)
	if err != nil {
		t.Fatalf("buildOffsetTable: %v", err)
	}
	if err := validateOffsetTable(header, offsets); err != nil {
		t.Fatalf("validateOffsetTable: %v", err)
	}
	data := marshalIndex(header, offsets, footer)

	idx, err := LoadIndexBytes(data)
	if err != nil {
		t.Fatalf("LoadIndexBytes: %v", err)
	}
	if idx.Header != header {
		t.Fatalf("Header mismatch: got %+v, want %+v", idx.Header, header)
	}
	for i, name := range offsets.ColumnNames {
		if idx.Offsets.ColumnNames[i] != name {
			t.Fatalf("ColumnNames[%d] = %q, want %q", i, idx.Offsets.ColumnNames[i], name)
		}
	}
	for g := range offsets.ColumnChunksOffsets {
		for i, v := range offsets.ColumnChunksOffsets[g] {
			if idx.Offsets.ColumnChunksOffsets[g][i] != v {
				t.Fatalf("ColumnChunksOffsets[%d][%d] = %d, want %d", g, i, idx.Offsets.ColumnChunksOffsets[g][i], v)
			}
		}
	}
}
