package thrift

import "testing"

func TestWriteListBeginShortForm(t *testing.T) {
	var w Writer
	var buf [MaxListHeaderSize]byte
	n := w.WriteListBegin(buf[:], TypeStruct, 3)
	if n != 1 {
		t.Fatalf("short form: wrote %d bytes, want 1", n)
	}
	r := NewReader(buf[:n])
	size, elemType, err := r.ReadListHeader()
	if err != nil {
		t.Fatalf("ReadListHeader: %v", err)
	}
	if size != 3 || elemType != TypeStruct {
		t.Fatalf("got size=%d elemType=%s, want size=3 elemType=STRUCT", size, elemType)
	}
}

func TestWriteListBeginLongForm(t *testing.T) {
	var w Writer
	var buf [MaxListHeaderSize]byte
	for _, size := range []int{15, 100, 70000} {
		n := w.WriteListBegin(buf[:], TypeI32, size)
		r := NewReader(buf[:n])
		got, elemType, err := r.ReadListHeader()
		if err != nil {
			t.Fatalf("size %d: ReadListHeader: %v", size, err)
		}
		if got != size || elemType != TypeI32 {
			t.Fatalf("size %d: got size=%d elemType=%s", size, got, elemType)
		}
	}
}

func TestWriteListBeginNegativeSizeClampsToZero(t *testing.T) {
	var w Writer
	var buf [MaxListHeaderSize]byte
	n := w.WriteListBegin(buf[:], TypeStruct, -1)
	r := NewReader(buf[:n])
	size, _, err := r.ReadListHeader()
	if err != nil {
		t.Fatalf("ReadListHeader: %v", err)
	}
	if size != 0 {
		t.Fatalf("got size %d, want 0", size)
	}
}

func TestWriteI32RoundTrip(t *testing.T) {
	var w Writer
	var buf [MaxVarintSize]byte
	for _, v := range []int32{0, 1, -1, 127, -128, 1 << 20, -(1 << 20), 1<<31 - 1, -(1 << 31)} {
		n := w.WriteI32(buf[:], v)
		r := NewReader(buf[:n])
		got, err := r.ReadI32()
		if err != nil {
			t.Fatalf("value %d: ReadI32: %v", v, err)
		}
		if got != v {
			t.Fatalf("value %d: got %d", v, got)
		}
	}
}

func TestWriteI64RoundTrip(t *testing.T) {
	var w Writer
	var buf [MaxVarintSize]byte
	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40), 1<<62 - 1, -(1 << 62)} {
		n := w.WriteI64(buf[:], v)
		r := NewReader(buf[:n])
		got, err := r.ReadI64()
		if err != nil {
			t.Fatalf("value %d: ReadI64: %v", v, err)
		}
		if got != v {
			t.Fatalf("value %d: got %d", v, got)
		}
	}
}
