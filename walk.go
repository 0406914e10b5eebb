package palletjack

import (
	"github.com/G-Research/palletjack/internal/thrift"
)

// FileMetaData Thrift field ids, per the Parquet format definition. The
// passthrough FileMetaData fields (version, key_value_metadata,
// created_by) are named for reference only; the walk acts on schema,
// num_rows, row_groups and column_orders, and everything else is skipped
// and left untouched by the splicer.
const (
	fieldVersion         = 1
	fieldSchema          = 2
	fieldNumRows         = 3
	fieldRowGroups       = 4
	fieldKeyValueMeta    = 5
	fieldCreatedBy       = 6
	fieldColumnOrders    = 7
	fieldRGColumns       = 1
	fieldRGNumRows       = 3
	fieldSchemaName      = 4
	fieldSchemaNumChildr = 5
)

// buildOffsetTable walks footer — the Thrift Compact encoding of a
// FileMetaData struct — in a single pass, populating the DataHeader and
// OffsetTable. It never decodes fields it doesn't need
// to cut or patch; everything else is skipped in place.
func buildOffsetTable(footer []byte) (DataHeader, OffsetTable, error) {
	r := thrift.NewReader(footer)

	var header DataHeader
	var ot OffsetTable
	haveSchema := false
	haveRowGroups := false
	haveColumnOrders := false

	var lastID int16
	for {
		id, typ, err := r.ReadFieldHeader(lastID)
		if err != nil {
			return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData: reading field header at offset %d: %v", r.Pos(), err)
		}
		if typ == thrift.TypeStop {
			break
		}

		switch id {
		case fieldSchema:
			if typ != thrift.TypeList {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.Schema: expected LIST, got %s", typ)
			}
			start := r.Pos()
			size, elemType, err := r.ReadListHeader()
			if err != nil {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.Schema: reading list header: %v", err)
			}
			if elemType != thrift.TypeStruct {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.Schema: expected STRUCT elements, got %s", elemType)
			}
			if size < 1 {
				return DataHeader{}, OffsetTable{}, validationErrorf("FileMetaData.Schema: list has no root element")
			}
			columns := size - 1
			header.Columns = uint32(columns)
			ot.SchemaOffsets = make([]uint32, size+2)
			ot.SchemaNumChildrenOffsets = make([]uint32, size*2)
			ot.ColumnNames = make([]string, columns)
			ot.SchemaOffsets[0] = uint32(start)
			for i := 0; i < size; i++ {
				elemStart := r.Pos()
				ot.SchemaOffsets[1+i] = uint32(elemStart)
				name, ncStart, ncEnd, err := walkSchemaElement(r)
				if err != nil {
					return DataHeader{}, OffsetTable{}, err
				}
				ot.SchemaNumChildrenOffsets[2*i] = uint32(ncStart)
				ot.SchemaNumChildrenOffsets[2*i+1] = uint32(ncEnd)
				if i >= 1 {
					ot.ColumnNames[i-1] = name
				}
			}
			ot.SchemaOffsets[size+1] = uint32(r.Pos())
			haveSchema = true

		case fieldNumRows:
			if typ != thrift.TypeI64 {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.NumRows: expected I64, got %s", typ)
			}
			ot.NumRowsOffsets[0] = uint32(r.Pos())
			if _, err := r.ReadI64(); err != nil {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.NumRows: %v", err)
			}
			ot.NumRowsOffsets[1] = uint32(r.Pos())

		case fieldRowGroups:
			if typ != thrift.TypeList {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.RowGroups: expected LIST, got %s", typ)
			}
			start := r.Pos()
			size, elemType, err := r.ReadListHeader()
			if err != nil {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.RowGroups: reading list header: %v", err)
			}
			if elemType != thrift.TypeStruct {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.RowGroups: expected STRUCT elements, got %s", elemType)
			}
			header.RowGroups = uint32(size)
			ot.RowGroupsOffsets = make([]uint32, size+2)
			ot.RowGroupsOffsets[0] = uint32(start)
			ot.RowNumbers = make([]uint32, size)
			ot.ColumnChunksOffsets = make([][]uint32, size)
			for g := 0; g < size; g++ {
				rgStart := r.Pos()
				ot.RowGroupsOffsets[1+g] = uint32(rgStart)
				numRows, chunkOffsets, err := walkRowGroup(r, rgStart, header.Columns)
				if err != nil {
					return DataHeader{}, OffsetTable{}, err
				}
				ot.RowNumbers[g] = uint32(numRows)
				ot.ColumnChunksOffsets[g] = chunkOffsets
			}
			ot.RowGroupsOffsets[size+1] = uint32(r.Pos())
			haveRowGroups = true

		case fieldColumnOrders:
			if typ != thrift.TypeList {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.ColumnOrders: expected LIST, got %s", typ)
			}
			start := r.Pos()
			size, elemType, err := r.ReadListHeader()
			if err != nil {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.ColumnOrders: reading list header: %v", err)
			}
			ot.ColumnOrdersOffsets = make([]uint32, size+2)
			ot.ColumnOrdersOffsets[0] = uint32(start)
			for c := 0; c < size; c++ {
				elemStart := r.Pos()
				ot.ColumnOrdersOffsets[1+c] = uint32(elemStart)
				if err := r.SkipValue(elemType); err != nil {
					return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData.ColumnOrders[%d]: %v", c, err)
				}
			}
			ot.ColumnOrdersOffsets[size+1] = uint32(r.Pos())
			haveColumnOrders = true

		default:
			if err := r.SkipValue(typ); err != nil {
				return DataHeader{}, OffsetTable{}, thriftErrorf("FileMetaData field %d: %v", id, err)
			}
		}
		lastID = id
	}

	if !haveSchema {
		return DataHeader{}, OffsetTable{}, validationErrorf("FileMetaData has no schema field")
	}
	if !haveRowGroups {
		return DataHeader{}, OffsetTable{}, validationErrorf("FileMetaData has no row_groups field")
	}
	if !haveColumnOrders {
		// Absent: the table still has shape 1+C+1, with the
		// first entry 0 marking absence.
		ot.ColumnOrdersOffsets = make([]uint32, 1+int(header.Columns)+1)
	}

	for _, name := range ot.ColumnNames {
		header.ColumnNamesLength += uint32(len(name) + 1)
	}
	header.MetadataLength = uint32(len(footer))
	return header, ot, nil
}

// walkSchemaElement consumes one SchemaElement struct, returning its Name
// (field 4) and the [start,end) byte range of its NumChildren field value
// (field 5), or (0, 0) if that field is absent.
func walkSchemaElement(r *thrift.Reader) (name string, ncStart, ncEnd int, err error) {
	var lastID int16
	for {
		id, typ, ferr := r.ReadFieldHeader(lastID)
		if ferr != nil {
			return "", 0, 0, thriftErrorf("SchemaElement: reading field header at offset %d: %v", r.Pos(), ferr)
		}
		if typ == thrift.TypeStop {
			return name, ncStart, ncEnd, nil
		}

		switch id {
		case fieldSchemaName:
			if typ != thrift.TypeBinary {
				return "", 0, 0, thriftErrorf("SchemaElement.Name: expected BINARY, got %s", typ)
			}
			name, err = r.ReadString()
		case fieldSchemaNumChildr:
			if typ != thrift.TypeI32 {
				return "", 0, 0, thriftErrorf("SchemaElement.NumChildren: expected I32, got %s", typ)
			}
			ncStart = r.Pos()
			_, err = r.ReadI32()
			ncEnd = r.Pos()
		default:
			err = r.SkipValue(typ)
		}
		if err != nil {
			return "", 0, 0, thriftErrorf("SchemaElement field %d: %v", id, err)
		}
		lastID = id
	}
}

// walkRowGroup consumes one RowGroup struct, returning its decoded
// NumRows value (field 3, kept denormalized in the row_numbers table) and
// the row-group-relative column_chunks_offsets table (field 1).
func walkRowGroup(r *thrift.Reader, rgStart int, columns uint32) (numRows int64, chunkOffsets []uint32, err error) {
	var lastID int16
	for {
		id, typ, ferr := r.ReadFieldHeader(lastID)
		if ferr != nil {
			return 0, nil, thriftErrorf("RowGroup: reading field header at offset %d: %v", r.Pos(), ferr)
		}
		if typ == thrift.TypeStop {
			return numRows, chunkOffsets, nil
		}

		switch id {
		case fieldRGColumns:
			if typ != thrift.TypeList {
				return 0, nil, thriftErrorf("RowGroup.Columns: expected LIST, got %s", typ)
			}
			start := r.Pos()
			size, elemType, lerr := r.ReadListHeader()
			if lerr != nil {
				return 0, nil, thriftErrorf("RowGroup.Columns: reading list header: %v", lerr)
			}
			if elemType != thrift.TypeStruct {
				return 0, nil, thriftErrorf("RowGroup.Columns: expected STRUCT elements, got %s", elemType)
			}
			if uint32(size) != columns {
				return 0, nil, validationErrorf("row group has %d columns, schema declares %d", size, columns)
			}
			chunkOffsets = make([]uint32, size+2)
			chunkOffsets[0] = uint32(start - rgStart)
			for c := 0; c < size; c++ {
				elemStart := r.Pos()
				chunkOffsets[1+c] = uint32(elemStart - rgStart)
				if serr := r.SkipStruct(); serr != nil {
					return 0, nil, thriftErrorf("RowGroup.Columns[%d]: %v", c, serr)
				}
			}
			chunkOffsets[size+1] = uint32(r.Pos() - rgStart)
		case fieldRGNumRows:
			if typ != thrift.TypeI64 {
				return 0, nil, thriftErrorf("RowGroup.NumRows: expected I64, got %s", typ)
			}
			numRows, err = r.ReadI64()
		default:
			err = r.SkipValue(typ)
		}
		if err != nil {
			return 0, nil, thriftErrorf("RowGroup field %d: %v", id, err)
		}
		lastID = id
	}
}
