// Package thrift implements the small subset of the Thrift Compact
// Protocol that PalletJack needs to locate and rewrite byte ranges inside
// an already-encoded Parquet FileMetaData structure.
//
// Unlike a general-purpose Thrift runtime, Reader never builds an object
// graph: it walks a byte slice field by field and hands the caller back
// the byte offsets each construct occupies, so the caller can decide what
// to copy, patch, or drop. This mirrors the role a hand-written,
// allocation-free Thrift decoder plays in Parquet libraries that need to
// read footers quickly, except that here the "decoded value" callers
// usually want is a pair of offsets rather than a Go value.
package thrift

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Type is a Thrift Compact Protocol wire type, as carried in the low
// nibble of a field header byte or the low nibble of a list/set header
// byte.
type Type byte

const (
	TypeStop   Type = 0
	TypeTrue   Type = 1
	TypeFalse  Type = 2
	TypeI8     Type = 3
	TypeI16    Type = 4
	TypeI32    Type = 5
	TypeI64    Type = 6
	TypeDouble Type = 7
	TypeBinary Type = 8
	TypeList   Type = 9
	TypeSet    Type = 10
	TypeMap    Type = 11
	TypeStruct Type = 12
)

func (t Type) String() string {
	switch t {
	case TypeStop:
		return "STOP"
	case TypeTrue:
		return "TRUE"
	case TypeFalse:
		return "FALSE"
	case TypeI8:
		return "I8"
	case TypeI16:
		return "I16"
	case TypeI32:
		return "I32"
	case TypeI64:
		return "I64"
	case TypeDouble:
		return "DOUBLE"
	case TypeBinary:
		return "BINARY"
	case TypeList:
		return "LIST"
	case TypeSet:
		return "SET"
	case TypeMap:
		return "MAP"
	case TypeStruct:
		return "STRUCT"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// Size limits guarding against malformed or malicious footers, matching
// the CPU/memory-bomb guards a Thrift protocol factory applies via
// StringSizeLimit/ContainerSizeLimit.
const (
	MaxStringSize    = 100_000_000
	MaxContainerSize = 1_000_000
)

// ErrMalformed is wrapped by every error Reader returns once it has
// detected a structurally invalid Thrift Compact encoding: an unknown
// wire type, a varint that doesn't terminate within 10 bytes, or a
// string/container whose declared size exceeds the limits above.
var ErrMalformed = errors.New("thrift: malformed compact encoding")

// Reader is a cursor over a byte slice that reports the Thrift Compact
// constructs it consumes, along with the byte offsets of each one. It is
// not safe for concurrent use; callers that need independent cursors over
// the same buffer should create one Reader per cursor.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of data. The Reader
// retains data; callers must not mutate it while the Reader is in use.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current byte offset into the underlying buffer.
func (r *Reader) Pos() int { return r.pos }

// Len returns the length of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Seek repositions the cursor to an absolute byte offset.
func (r *Reader) Seek(pos int) {
	r.pos = pos
}

func (r *Reader) malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ReadByte consumes and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

// ReadUvarint reads a Thrift Compact unsigned varint (7-bit groups, MSB
// continuation).
func (r *Reader) ReadUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; ; i++ {
		if r.pos >= len(r.data) {
			return 0, io.ErrUnexpectedEOF
		}
		v := r.data[r.pos]
		r.pos++
		if v < 0x80 {
			if i >= binary.MaxVarintLen64 || (i == binary.MaxVarintLen64-1 && v > 1) {
				return 0, r.malformed("varint overflows uint64")
			}
			return x | uint64(v)<<s, nil
		}
		x |= uint64(v&0x7f) << s
		s += 7
	}
}

// ReadVarint reads a zig-zag encoded signed varint.
func (r *Reader) ReadVarint() (int64, error) {
	ux, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	x := int64(ux >> 1)
	if ux&1 != 0 {
		x = ^x
	}
	return x, nil
}

// ReadI32 reads a zig-zag varint-encoded i32 field value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadVarint()
	return int32(v), err
}

// ReadI64 reads a zig-zag varint-encoded i64 field value.
func (r *Reader) ReadI64() (int64, error) {
	return r.ReadVarint()
}

func (r *Reader) readLength() (int, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxStringSize {
		return 0, r.malformed("string/binary length %d exceeds limit %d", n, MaxStringSize)
	}
	return int(n), nil
}

// ReadBytes reads a length-prefixed binary value and returns a reference
// into the Reader's own buffer (no copy).
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.readLength()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadString reads a length-prefixed binary value as a string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFieldHeader reads one struct field header and returns the field id
// (resolved against lastID per Thrift's delta encoding) and wire type.
// Type == TypeStop signals the end of the enclosing struct; id is 0 in
// that case. For boolean fields the value itself is carried in the type
// nibble (TypeTrue/TypeFalse) and there is no separate value to read.
func (r *Reader) ReadFieldHeader(lastID int16) (id int16, typ Type, err error) {
	v, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}

	typ = Type(v & 0x0f)
	if typ == TypeStop {
		return 0, TypeStop, nil
	}

	if delta := v >> 4; delta != 0 {
		id = lastID + int16(delta)
	} else {
		fid, err := r.ReadVarint()
		if err != nil {
			return 0, 0, err
		}
		id = int16(fid)
	}
	return id, typ, nil
}

// ReadListHeader reads a list/set header and returns the element count
// and element wire type.
func (r *Reader) ReadListHeader() (size int, elemType Type, err error) {
	v, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}

	elemType = Type(v & 0x0f)
	size = int(v >> 4)
	if size == 0x0f {
		n, err := r.ReadUvarint()
		if err != nil {
			return 0, 0, err
		}
		size = int(n)
	}
	if size > MaxContainerSize {
		return 0, 0, r.malformed("container size %d exceeds limit %d", size, MaxContainerSize)
	}
	return size, elemType, nil
}

// SkipValue skips over one already-typed field value, descending into
// nested lists/sets/maps/structs as needed.
func (r *Reader) SkipValue(typ Type) error {
	switch typ {
	case TypeTrue, TypeFalse:
		return nil
	case TypeI8:
		return r.skip(1)
	case TypeI16, TypeI32, TypeI64:
		_, err := r.ReadVarint()
		return err
	case TypeDouble:
		return r.skip(8)
	case TypeBinary:
		n, err := r.readLength()
		if err != nil {
			return err
		}
		return r.skip(n)
	case TypeList, TypeSet:
		size, elemType, err := r.ReadListHeader()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := r.SkipValue(elemType); err != nil {
				return err
			}
		}
		return nil
	case TypeMap:
		n, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		if n > MaxContainerSize {
			return r.malformed("map size %d exceeds limit %d", n, MaxContainerSize)
		}
		if n == 0 {
			return nil
		}
		kv, err := r.ReadByte()
		if err != nil {
			return err
		}
		keyType := Type(kv >> 4)
		valType := Type(kv & 0x0f)
		for i := uint64(0); i < n; i++ {
			if err := r.SkipValue(keyType); err != nil {
				return err
			}
			if err := r.SkipValue(valType); err != nil {
				return err
			}
		}
		return nil
	case TypeStruct:
		return r.SkipStruct()
	default:
		return r.malformed("unknown wire type %d", byte(typ))
	}
}

// SkipStruct skips every field of a struct up to and including its STOP
// byte.
func (r *Reader) SkipStruct() error {
	var lastID int16
	for {
		id, typ, err := r.ReadFieldHeader(lastID)
		if err != nil {
			return err
		}
		if typ == TypeStop {
			return nil
		}
		if err := r.SkipValue(typ); err != nil {
			return err
		}
		lastID = id
	}
}
