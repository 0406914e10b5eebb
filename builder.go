package palletjack

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// parquetMagic is the 4-byte marker Parquet files carry at both the start
// and end of the file.
const parquetMagic = "PAR1"

// footerTrailerSize is the length of the trailer at the very end of a
// Parquet file: a little-endian uint32 footer length, followed by the
// magic bytes.
const footerTrailerSize = 8

// locateFooter returns the byte range [start, end) of the Thrift-encoded
// FileMetaData within a Parquet file's raw bytes, per the trailer layout
// every Parquet reader relies on to avoid a second pass over row-group
// data: <footer bytes><4-byte footer length><"PAR1">.
func locateFooter(data []byte) (start, end int, err error) {
	const minSize = len(parquetMagic) + footerTrailerSize
	if len(data) < minSize {
		return 0, 0, formatErrorf("file too small to be a Parquet file: %d bytes", len(data))
	}
	if string(data[:len(parquetMagic)]) != parquetMagic {
		return 0, 0, formatErrorf("missing leading %q magic", parquetMagic)
	}
	tail := data[len(data)-footerTrailerSize:]
	if string(tail[4:]) != parquetMagic {
		return 0, 0, formatErrorf("missing trailing %q magic", parquetMagic)
	}
	length := binary.LittleEndian.Uint32(tail[:4])
	footerEnd := len(data) - footerTrailerSize
	footerStart := footerEnd - int(length)
	if footerStart < len(parquetMagic) || footerStart > footerEnd {
		return 0, 0, formatErrorf("footer length %d out of bounds for file of size %d", length, len(data))
	}
	return footerStart, footerEnd, nil
}

// GenerateIndex reads the Parquet file at parquetPath, builds its PJ_2
// side-car index, and atomically writes it to indexPath.
func GenerateIndex(parquetPath, indexPath string) error {
	data, err := GenerateIndexBytes(parquetPath)
	if err != nil {
		return err
	}
	return writeFileAtomic(indexPath, data)
}

// GenerateIndexBytes reads the Parquet file at parquetPath and returns its
// PJ_2 side-car index as an in-memory byte slice, without writing any
// file.
func GenerateIndexBytes(parquetPath string) ([]byte, error) {
	data, err := os.ReadFile(parquetPath)
	if err != nil {
		return nil, err
	}

	start, end, err := locateFooter(data)
	if err != nil {
		return nil, err
	}
	footer := data[start:end]

	header, offsets, err := buildOffsetTable(footer)
	if err != nil {
		return nil, err
	}
	if err := validateOffsetTable(header, offsets); err != nil {
		return nil, err
	}

	return marshalIndex(header, offsets, footer), nil
}

// validateOffsetTable checks the internal consistency of a freshly built
// offset table before it is committed to disk: every table must have the
// shape DataHeader's *Len methods predict, so a reader can trust the
// header alone to size its later reads without re-validating the tables
// themselves.
func validateOffsetTable(header DataHeader, offsets OffsetTable) error {
	if len(offsets.RowNumbers) != header.RowNumbersLen() {
		return validationErrorf("row_numbers has %d entries, want %d", len(offsets.RowNumbers), header.RowNumbersLen())
	}
	if len(offsets.SchemaOffsets) != header.SchemaOffsetsLen() {
		return validationErrorf("schema_offsets has %d entries, want %d", len(offsets.SchemaOffsets), header.SchemaOffsetsLen())
	}
	if len(offsets.SchemaNumChildrenOffsets) != header.SchemaNumChildrenOffsetsLen() {
		return validationErrorf("schema_num_children_offsets has %d entries, want %d", len(offsets.SchemaNumChildrenOffsets), header.SchemaNumChildrenOffsetsLen())
	}
	for i := 0; i+1 < len(offsets.SchemaNumChildrenOffsets); i += 2 {
		start, end := offsets.SchemaNumChildrenOffsets[i], offsets.SchemaNumChildrenOffsets[i+1]
		if (start == 0) != (end == 0) || start > end {
			return validationErrorf("schema element %d has num_children range [%d, %d], want both zero or a non-empty range", i/2, start, end)
		}
	}
	if len(offsets.RowGroupsOffsets) != header.RowGroupsOffsetsLen() {
		return validationErrorf("row_groups_offsets has %d entries, want %d", len(offsets.RowGroupsOffsets), header.RowGroupsOffsetsLen())
	}
	if len(offsets.ColumnOrdersOffsets) != header.ColumnOrdersOffsetsLen() {
		return validationErrorf("column_orders_offsets has %d entries, want %d", len(offsets.ColumnOrdersOffsets), header.ColumnOrdersOffsetsLen())
	}
	if len(offsets.ColumnChunksOffsets) != int(header.RowGroups) {
		return validationErrorf("column_chunks_offsets has %d row groups, want %d", len(offsets.ColumnChunksOffsets), header.RowGroups)
	}
	chunkWidth := 1 + int(header.Columns) + 1
	for g, row := range offsets.ColumnChunksOffsets {
		if len(row) != chunkWidth {
			return validationErrorf("column_chunks_offsets[%d] has %d entries, want %d", g, len(row), chunkWidth)
		}
	}
	if len(offsets.ColumnNames) != int(header.Columns) {
		return validationErrorf("column_names has %d entries, want %d", len(offsets.ColumnNames), header.Columns)
	}
	return nil
}

// marshalIndex serializes a DataHeader and OffsetTable into the on-disk
// PJ_2 layout: fixed header, offset tables in a fixed
// order, NUL-terminated column names, then the verbatim footer.
func marshalIndex(header DataHeader, offsets OffsetTable, footer []byte) []byte {
	var columnNamesLen int
	for _, name := range offsets.ColumnNames {
		columnNamesLen += len(name) + 1
	}
	header.ColumnNamesLength = uint32(columnNamesLen)
	header.MetadataLength = uint32(len(footer))

	buf := make([]byte, header.TotalSize())
	header.marshal(buf[:headerSize])
	body := buf[headerSize:]

	n := putUint32s(body, offsets.NumRowsOffsets[:])
	body = body[n:]
	n = putUint32s(body, offsets.RowNumbers)
	body = body[n:]
	n = putUint32s(body, offsets.SchemaOffsets)
	body = body[n:]
	n = putUint32s(body, offsets.SchemaNumChildrenOffsets)
	body = body[n:]
	n = putUint32s(body, offsets.RowGroupsOffsets)
	body = body[n:]
	n = putUint32s(body, offsets.ColumnOrdersOffsets)
	body = body[n:]
	for _, row := range offsets.ColumnChunksOffsets {
		n = putUint32s(body, row)
		body = body[n:]
	}
	for _, name := range offsets.ColumnNames {
		copy(body, name)
		body = body[len(name)+1:]
	}
	copy(body, footer)

	return buf
}

// writeFileAtomic writes data to path by creating a temp file in the same
// directory and renaming it into place, so readers never observe a
// partially written index.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("palletjack: creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("palletjack: writing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("palletjack: closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("palletjack: renaming temp file into %s: %w", path, err)
	}
	return nil
}
