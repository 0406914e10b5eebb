package palletjack

import (
	"github.com/G-Research/palletjack/internal/thrift"
)

// ProjectionSpec describes a row-group/column projection to carve out of
// an index's footer. RowGroups and the column selector (ColumnIndices or
// ColumnNames, never both) accept duplicates and arbitrary order: the
// projected footer lists columns and row groups in exactly the order
// requested. An empty RowGroups, together with an empty column selector,
// means "no restriction" — ReadMetadata then returns the original footer
// byte-for-byte.
type ProjectionSpec struct {
	RowGroups     []int
	ColumnIndices []int
	ColumnNames   []string
}

var writer thrift.Writer

// ReadMetadata loads the PJ_2 index at indexPath and returns the
// Thrift-encoded FileMetaData footer restricted to spec's row groups and
// columns, ready to hand to any Parquet reader.
func ReadMetadata(indexPath string, spec ProjectionSpec) ([]byte, error) {
	idx, err := LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return spliceIndex(idx, spec)
}

// ReadMetadataBytes is ReadMetadata for an index already held in memory.
func ReadMetadataBytes(indexBytes []byte, spec ProjectionSpec) ([]byte, error) {
	idx, err := LoadIndexBytes(indexBytes)
	if err != nil {
		return nil, err
	}
	return spliceIndex(idx, spec)
}

// spliceIndex is the copy-spans-plus-patch splicer: it
// walks idx.Footer in ascending byte-offset order, copying every
// unselected span verbatim and emitting freshly written list headers and
// i32/i64 scalars at the points the projection touches.
func spliceIndex(idx *Index, spec ProjectionSpec) ([]byte, error) {
	columns, err := resolveColumns(idx, spec)
	if err != nil {
		return nil, err
	}
	for _, g := range spec.RowGroups {
		if g < 0 || g >= int(idx.Header.RowGroups) {
			return nil, rangeErrorf("row group %d out of range [0, %d)", g, idx.Header.RowGroups)
		}
	}

	footer := idx.Footer
	off := idx.Offsets
	columnsActive := len(columns) > 0
	rowGroupsActive := len(spec.RowGroups) > 0

	dst := make([]byte, 0, len(footer))
	indexSrc := 0

	if columnsActive {
		dst, indexSrc = spliceSchema(dst, footer, off, columns)
	}

	if rowGroupsActive {
		dst = append(dst, footer[indexSrc:off.NumRowsOffsets[0]]...)
		var sum int64
		for _, g := range spec.RowGroups {
			sum += int64(off.RowNumbers[g])
		}
		dst = appendI64(dst, sum)
		indexSrc = int(off.NumRowsOffsets[1])
	}

	dst, indexSrc = spliceRowGroups(dst, footer, off, indexSrc, spec.RowGroups, rowGroupsActive, columns, columnsActive)

	if columnsActive {
		dst, indexSrc = spliceColumnOrders(dst, footer, off, indexSrc, columns)
	}

	dst = append(dst, footer[indexSrc:len(footer)]...)
	return dst, nil
}

// resolveColumns validates and normalizes spec's column selector into a
// single list of column indices, preserving the caller's order and
// duplicates. Passing both ColumnIndices and ColumnNames is an argument
// error; passing neither means "all columns".
func resolveColumns(idx *Index, spec ProjectionSpec) ([]int, error) {
	if len(spec.ColumnIndices) > 0 && len(spec.ColumnNames) > 0 {
		return nil, argumentErrorf("both ColumnIndices and ColumnNames were given; specify at most one")
	}

	if len(spec.ColumnNames) > 0 {
		byName := make(map[string]int, len(idx.Offsets.ColumnNames))
		for i, name := range idx.Offsets.ColumnNames {
			if _, ok := byName[name]; !ok {
				byName[name] = i
			}
		}
		columns := make([]int, len(spec.ColumnNames))
		for i, name := range spec.ColumnNames {
			c, ok := byName[name]
			if !ok {
				return nil, argumentErrorf("column name %q not found", name)
			}
			columns[i] = c
		}
		return columns, nil
	}

	for _, c := range spec.ColumnIndices {
		if c < 0 || c >= int(idx.Header.Columns) {
			return nil, rangeErrorf("column %d out of range [0, %d)", c, idx.Header.Columns)
		}
	}
	return spec.ColumnIndices, nil
}

// spliceSchema rewrites the Schema list: a root SchemaElement whose
// NumChildren is patched to the selected column count, followed by the
// selected SchemaElements in request order.
func spliceSchema(dst []byte, footer []byte, off OffsetTable, columns []int) ([]byte, int) {
	schemaOffsets := off.SchemaOffsets // [0]=list header, [1]=root start, [2:2+C]=column starts, [last]=list end
	indexSrc := 0

	dst = append(dst, footer[indexSrc:schemaOffsets[0]]...)
	dst = appendListHeader(dst, thrift.TypeStruct, len(columns)+1)
	indexSrc = int(schemaOffsets[1])

	rootNCStart := int(off.SchemaNumChildrenOffsets[0])
	rootNCEnd := int(off.SchemaNumChildrenOffsets[1])
	dst = append(dst, footer[indexSrc:rootNCStart]...)
	dst = appendI32(dst, int32(len(columns)))
	indexSrc = rootNCEnd

	columnStarts := schemaOffsets[2:] // index c -> start of column c; columnStarts[C] = list end
	dst = append(dst, footer[indexSrc:columnStarts[0]]...)
	indexSrc = int(columnStarts[0])

	for _, c := range columns {
		dst = append(dst, footer[columnStarts[c]:columnStarts[c+1]]...)
	}
	indexSrc = int(schemaOffsets[len(schemaOffsets)-1])

	return dst, indexSrc
}

// spliceRowGroups rewrites the RowGroups list. When rowGroupsActive it
// emits a fresh list header sized to len(rowGroups) and copies only the
// selected row groups (in request order, duplicates allowed); otherwise
// it copies the original list header and walks every row group in file
// order. Within each row group, when columnsActive it further rewrites
// that row group's Columns list to the selected columns.
func spliceRowGroups(dst []byte, footer []byte, off OffsetTable, indexSrc int, rowGroups []int, rowGroupsActive bool, columns []int, columnsActive bool) ([]byte, int) {
	rgOffsets := off.RowGroupsOffsets // [0]=list header, [1:1+R]=row group starts, [last]=list end

	if rowGroupsActive {
		dst = append(dst, footer[indexSrc:rgOffsets[0]]...)
		dst = appendListHeader(dst, thrift.TypeStruct, len(rowGroups))
		indexSrc = int(rgOffsets[1])
	} else {
		dst = append(dst, footer[indexSrc:rgOffsets[1]]...)
		indexSrc = int(rgOffsets[1])

		count := len(rgOffsets) - 2
		rowGroups = make([]int, count)
		for g := range rowGroups {
			rowGroups[g] = g
		}
	}

	for _, g := range rowGroups {
		rgStart := int(rgOffsets[1+g])
		rgEnd := int(rgOffsets[2+g])
		indexSrc = rgStart

		if columnsActive {
			chunks := off.ColumnChunksOffsets[g] // row-group relative: [0]=list header, [1:1+C]=chunk starts, [last]=list end
			dst = append(dst, footer[indexSrc:rgStart+int(chunks[0])]...)
			dst = appendListHeader(dst, thrift.TypeStruct, len(columns))
			for _, c := range columns {
				dst = append(dst, footer[rgStart+int(chunks[1+c]):rgStart+int(chunks[2+c])]...)
			}
			indexSrc = rgStart + int(chunks[len(chunks)-1])
		}

		dst = append(dst, footer[indexSrc:rgEnd]...)
		indexSrc = rgEnd
	}

	return dst, int(rgOffsets[len(rgOffsets)-1])
}

// spliceColumnOrders rewrites the ColumnOrders list to the selected
// columns, in request order. A zero first offset means the original
// footer had no ColumnOrders field at all, in which case there is nothing
// to rewrite.
func spliceColumnOrders(dst []byte, footer []byte, off OffsetTable, indexSrc int, columns []int) ([]byte, int) {
	coOffsets := off.ColumnOrdersOffsets
	if coOffsets[0] == 0 {
		return dst, indexSrc
	}

	dst = append(dst, footer[indexSrc:coOffsets[0]]...)
	dst = appendListHeader(dst, thrift.TypeStruct, len(columns))
	indexSrc = int(coOffsets[1])

	elems := coOffsets[1:] // index c -> start of column c; elems[C] = list end
	for _, c := range columns {
		dst = append(dst, footer[elems[c]:elems[c+1]]...)
	}
	indexSrc = int(elems[len(elems)-1])

	return dst, indexSrc
}

func appendListHeader(dst []byte, elemType thrift.Type, size int) []byte {
	var buf [thrift.MaxListHeaderSize]byte
	n := writer.WriteListBegin(buf[:], elemType, size)
	return append(dst, buf[:n]...)
}

func appendI32(dst []byte, v int32) []byte {
	var buf [thrift.MaxVarintSize]byte
	n := writer.WriteI32(buf[:], v)
	return append(dst, buf[:n]...)
}

func appendI64(dst []byte, v int64) []byte {
	var buf [thrift.MaxVarintSize]byte
	n := writer.WriteI64(buf[:], v)
	return append(dst, buf[:n]...)
}
