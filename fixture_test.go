package palletjack

import (
	"encoding/binary"

	"github.com/G-Research/palletjack/internal/thrift"
)

// Hand-rolled Thrift Compact encoders for building FileMetaData fixtures
// in tests, built directly on internal/thrift's primitives rather than on
// any external marshaler, so the fixtures are byte-for-byte under test
// control. Only the fields buildOffsetTable and the splicer care about
// are ever given real values; everything else (ColumnChunk, ColumnOrder)
// is encoded as an empty struct, since the rest of this package only ever
// skips over them.

func fixtureZigzagVarint(buf []byte, v int64) []byte {
	zz := uint64((v << 1) ^ (v >> 63))
	for zz >= 0x80 {
		buf = append(buf, byte(zz)|0x80)
		zz >>= 7
	}
	return append(buf, byte(zz))
}

func fixtureUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func fixtureFieldHeader(buf []byte, lastID, id int16, typ thrift.Type) []byte {
	delta := id - lastID
	if delta > 0 && delta <= 15 {
		return append(buf, byte(delta<<4)|byte(typ))
	}
	buf = append(buf, byte(typ))
	return fixtureZigzagVarint(buf, int64(id))
}

func fixtureBinary(buf []byte, s string) []byte {
	buf = fixtureUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// fixtureSchemaElement encodes one SchemaElement: field 4 (Name) always,
// field 5 (NumChildren) only when withNumChildren is true.
func fixtureSchemaElement(name string, numChildren int32, withNumChildren bool) []byte {
	var buf []byte
	var lastID int16
	buf = fixtureFieldHeader(buf, lastID, 4, thrift.TypeBinary)
	lastID = 4
	buf = fixtureBinary(buf, name)
	if withNumChildren {
		buf = fixtureFieldHeader(buf, lastID, 5, thrift.TypeI32)
		lastID = 5
		buf = fixtureZigzagVarint(buf, int64(numChildren))
	}
	buf = append(buf, 0x00)
	return buf
}

// fixtureEmptyStruct encodes a struct with no fields: just a STOP byte.
// Stands in for ColumnChunk and ColumnOrder, whose internals this package
// never inspects.
func fixtureEmptyStruct() []byte {
	return []byte{0x00}
}

func fixtureRowGroup(numColumns int, numRows int64) []byte {
	var buf []byte
	var lastID int16
	buf = fixtureFieldHeader(buf, lastID, 1, thrift.TypeList)
	lastID = 1
	var w thrift.Writer
	var header [thrift.MaxListHeaderSize]byte
	n := w.WriteListBegin(header[:], thrift.TypeStruct, numColumns)
	buf = append(buf, header[:n]...)
	for i := 0; i < numColumns; i++ {
		buf = append(buf, fixtureEmptyStruct()...)
	}
	buf = fixtureFieldHeader(buf, lastID, 3, thrift.TypeI64)
	lastID = 3
	buf = fixtureZigzagVarint(buf, numRows)
	buf = append(buf, 0x00)
	return buf
}

// fixtureFileMetaData builds a complete Thrift Compact-encoded
// FileMetaData: a flat schema (one root SchemaElement whose NumChildren
// is len(columnNames), followed by one leaf SchemaElement per column),
// one RowGroup per entry in rowGroupRows, and a ColumnOrders list sized
// to match the columns.
func fixtureFileMetaData(columnNames []string, rowGroupRows []int64) []byte {
	return fixtureFileMetaDataImpl(columnNames, rowGroupRows, true)
}

// fixtureFileMetaDataNoColumnOrders is fixtureFileMetaData without a
// ColumnOrders field at all, exercising the "field absent" path.
func fixtureFileMetaDataNoColumnOrders(columnNames []string, rowGroupRows []int64) []byte {
	return fixtureFileMetaDataImpl(columnNames, rowGroupRows, false)
}

func fixtureFileMetaDataImpl(columnNames []string, rowGroupRows []int64, withColumnOrders bool) []byte {
	var w thrift.Writer
	var buf []byte
	var lastID int16

	// field 1: version
	buf = fixtureFieldHeader(buf, lastID, 1, thrift.TypeI32)
	lastID = 1
	buf = fixtureZigzagVarint(buf, 1)

	// field 2: schema
	buf = fixtureFieldHeader(buf, lastID, 2, thrift.TypeList)
	lastID = 2
	var header [thrift.MaxListHeaderSize]byte
	n := w.WriteListBegin(header[:], thrift.TypeStruct, len(columnNames)+1)
	buf = append(buf, header[:n]...)
	buf = append(buf, fixtureSchemaElement("schema", int32(len(columnNames)), true)...)
	for _, name := range columnNames {
		buf = append(buf, fixtureSchemaElement(name, 0, false)...)
	}

	// field 3: num_rows
	var totalRows int64
	for _, n := range rowGroupRows {
		totalRows += n
	}
	buf = fixtureFieldHeader(buf, lastID, 3, thrift.TypeI64)
	lastID = 3
	buf = fixtureZigzagVarint(buf, totalRows)

	// field 4: row_groups
	buf = fixtureFieldHeader(buf, lastID, 4, thrift.TypeList)
	lastID = 4
	n = w.WriteListBegin(header[:], thrift.TypeStruct, len(rowGroupRows))
	buf = append(buf, header[:n]...)
	for _, rows := range rowGroupRows {
		buf = append(buf, fixtureRowGroup(len(columnNames), rows)...)
	}

	// field 7: column_orders
	if withColumnOrders {
		buf = fixtureFieldHeader(buf, lastID, 7, thrift.TypeList)
		lastID = 7
		n = w.WriteListBegin(header[:], thrift.TypeStruct, len(columnNames))
		buf = append(buf, header[:n]...)
		for range columnNames {
			buf = append(buf, fixtureEmptyStruct()...)
		}
	}

	buf = append(buf, 0x00) // STOP
	return buf
}

// fixtureParquetFile wraps a FileMetaData footer in the minimal
// PAR1-delimited trailer GenerateIndex expects to find at the end of a
// Parquet file.
func fixtureParquetFile(footer []byte) []byte {
	buf := append([]byte{}, "PAR1"...)
	buf = append(buf, footer...)
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(footer)))
	buf = append(buf, length[:]...)
	buf = append(buf, "PAR1"...)
	return buf
}
