package palletjack

import (
	"bytes"
	"os"
)

// Index is a fully loaded PJ_2 side-car index: the fixed header, every
// offset table, and the verbatim original Thrift footer bytes
// it indexes. It is immutable once loaded and safe to share across many
// concurrent ReadMetadata-style calls.
type Index struct {
	Header  DataHeader
	Offsets OffsetTable
	Footer  []byte
}

// LoadIndex reads and parses an index file previously written by
// GenerateIndex.
func LoadIndex(indexPath string) (*Index, error) {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}
	return LoadIndexBytes(data)
}

// LoadIndexBytes parses an index already held in memory, as produced by
// GenerateIndexBytes.
func LoadIndexBytes(data []byte) (*Index, error) {
	header, err := unmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	want := header.TotalSize()
	if int64(len(data)) != want {
		return nil, formatErrorf("index size mismatch: got %d bytes, want %d", len(data), want)
	}

	body := data[headerSize:]
	var offsets OffsetTable

	vals, consumed := getUint32s(body, header.NumRowsOffsetsLen())
	copy(offsets.NumRowsOffsets[:], vals)
	body = body[consumed:]

	offsets.RowNumbers, consumed = getUint32s(body, header.RowNumbersLen())
	body = body[consumed:]

	offsets.SchemaOffsets, consumed = getUint32s(body, header.SchemaOffsetsLen())
	body = body[consumed:]

	offsets.SchemaNumChildrenOffsets, consumed = getUint32s(body, header.SchemaNumChildrenOffsetsLen())
	body = body[consumed:]

	offsets.RowGroupsOffsets, consumed = getUint32s(body, header.RowGroupsOffsetsLen())
	body = body[consumed:]

	offsets.ColumnOrdersOffsets, consumed = getUint32s(body, header.ColumnOrdersOffsetsLen())
	body = body[consumed:]

	chunkWidth := 1 + int(header.Columns) + 1
	offsets.ColumnChunksOffsets = make([][]uint32, header.RowGroups)
	for g := range offsets.ColumnChunksOffsets {
		var row []uint32
		row, consumed = getUint32s(body, chunkWidth)
		offsets.ColumnChunksOffsets[g] = row
		body = body[consumed:]
	}

	names, err := splitColumnNames(body[:header.ColumnNamesLength], int(header.Columns))
	if err != nil {
		return nil, err
	}
	offsets.ColumnNames = names
	body = body[header.ColumnNamesLength:]

	footer := body[:header.MetadataLength]

	return &Index{Header: header, Offsets: offsets, Footer: footer}, nil
}

func splitColumnNames(data []byte, columns int) ([]string, error) {
	names := make([]string, 0, columns)
	for range columns {
		idx := bytes.IndexByte(data, 0)
		if idx < 0 {
			return nil, formatErrorf("column_names section truncated: missing NUL terminator")
		}
		names = append(names, string(data[:idx]))
		data = data[idx+1:]
	}
	if len(data) != 0 {
		return nil, formatErrorf("column_names section has %d trailing bytes", len(data))
	}
	return names, nil
}
