package palletjack

import "encoding/binary"

// Magic is the 4-byte version marker at the start of every index file.
// It is the sole version gate: readers reject anything else outright,
// per spec there is no backward-compatibility layer for older index
// generations.
const Magic = "PJ_2"

const headerSize = 4 + 4*4 // magic + 4 uint32 fields

// DataHeader is the 20-byte fixed header at the start of an index file.
type DataHeader struct {
	RowGroups         uint32
	Columns           uint32
	ColumnNamesLength uint32
	MetadataLength    uint32
}

// NumRowsOffsetsLen is the fixed size of the num_rows_offsets table.
func (DataHeader) NumRowsOffsetsLen() int { return 2 }

// RowNumbersLen is the size of the row_numbers table: one entry per row
// group.
func (h DataHeader) RowNumbersLen() int { return int(h.RowGroups) }

// SchemaOffsetsLen is the size of the schema_offsets table: a header
// entry, the root element, one entry per column, and a trailing list-end
// entry.
func (h DataHeader) SchemaOffsetsLen() int { return 1 + 1 + int(h.Columns) + 1 }

// SchemaNumChildrenOffsetsLen is the size of the
// schema_num_children_offsets table: a [start,end] pair per schema
// element (root + one per column).
func (h DataHeader) SchemaNumChildrenOffsetsLen() int { return (int(h.Columns) + 1) * 2 }

// RowGroupsOffsetsLen is the size of the row_groups_offsets table: a
// header entry, one entry per row group, and a trailing list-end entry.
func (h DataHeader) RowGroupsOffsetsLen() int { return 1 + int(h.RowGroups) + 1 }

// ColumnOrdersOffsetsLen is the size of the column_orders_offsets table,
// shaped like schema_offsets minus the extra root-element slot.
func (h DataHeader) ColumnOrdersOffsetsLen() int { return 1 + int(h.Columns) + 1 }

// ColumnChunksOffsetsLen is the size of the column_chunks_offsets table:
// one row-group-relative offset list per row group.
func (h DataHeader) ColumnChunksOffsetsLen() int {
	return int(h.RowGroups) * (1 + int(h.Columns) + 1)
}

// bodySize is the total byte size of everything on disk after the fixed
// header: the offset tables, the column name bytes, and the verbatim
// original footer.
func (h DataHeader) bodySize() int64 {
	words := h.NumRowsOffsetsLen() +
		h.RowNumbersLen() +
		h.SchemaOffsetsLen() +
		h.SchemaNumChildrenOffsetsLen() +
		h.RowGroupsOffsetsLen() +
		h.ColumnOrdersOffsetsLen() +
		h.ColumnChunksOffsetsLen()
	return int64(words)*4 + int64(h.ColumnNamesLength) + int64(h.MetadataLength)
}

// TotalSize is the total size of the index file this header describes.
func (h DataHeader) TotalSize() int64 {
	return headerSize + h.bodySize()
}

func (h DataHeader) marshal(dst []byte) {
	copy(dst[0:4], Magic)
	binary.LittleEndian.PutUint32(dst[4:8], h.RowGroups)
	binary.LittleEndian.PutUint32(dst[8:12], h.Columns)
	binary.LittleEndian.PutUint32(dst[12:16], h.ColumnNamesLength)
	binary.LittleEndian.PutUint32(dst[16:20], h.MetadataLength)
}

func unmarshalHeader(src []byte) (DataHeader, error) {
	if len(src) < headerSize {
		return DataHeader{}, formatErrorf("index header truncated: got %d bytes, want %d", len(src), headerSize)
	}
	if string(src[0:4]) != Magic {
		return DataHeader{}, formatErrorf("unexpected magic %q, want %q", src[0:4], Magic)
	}
	return DataHeader{
		RowGroups:         binary.LittleEndian.Uint32(src[4:8]),
		Columns:           binary.LittleEndian.Uint32(src[8:12]),
		ColumnNamesLength: binary.LittleEndian.Uint32(src[12:16]),
		MetadataLength:    binary.LittleEndian.Uint32(src[16:20]),
	}, nil
}

// OffsetTable is the side-car index's contribution: byte offsets into the
// original Thrift footer that mark every construct the splicer needs to
// cut or patch. All offsets are relative to the start of the footer
// bytes, except ColumnChunksOffsets[g] which is relative to the start of
// row group g.
type OffsetTable struct {
	NumRowsOffsets           [2]uint32
	RowNumbers               []uint32
	SchemaOffsets            []uint32
	SchemaNumChildrenOffsets []uint32
	RowGroupsOffsets         []uint32
	ColumnOrdersOffsets      []uint32
	ColumnChunksOffsets      [][]uint32
	ColumnNames              []string
}

func putUint32s(dst []byte, values []uint32) int {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], v)
	}
	return len(values) * 4
}

func getUint32s(src []byte, n int) ([]uint32, int) {
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(src[i*4 : i*4+4])
	}
	return out, n * 4
}
