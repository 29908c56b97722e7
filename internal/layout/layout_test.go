package layout

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutLittleEndian(t *testing.T) {
	l := New(binary.LittleEndian, 8)
	b := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	require.Equal(t, uint16(0x0201), l.Uint16(b))
	require.Equal(t, uint32(0x04030201), l.Uint32(b))
	require.Equal(t, uint64(0x0807060504030201), l.Uint64(b))
	require.Equal(t, uint64(0x0807060504030201), l.Word(b))
}

func TestLayoutBigEndian(t *testing.T) {
	l := New(binary.BigEndian, 4)
	b := []byte{0x01, 0x02, 0x03, 0x04}

	require.Equal(t, uint16(0x0102), l.Uint16(b))
	require.Equal(t, uint32(0x01020304), l.Uint32(b))
	require.Equal(t, uint64(0x01020304), l.Word(b))
}

func TestLayoutRoundTrip(t *testing.T) {
	l := New(binary.LittleEndian, 8)
	b := make([]byte, 8)

	l.PutUint32(b, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), l.Uint32(b))

	l.PutUint64(b, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), l.Uint64(b))
}

func TestReaderCursor(t *testing.T) {
	l := New(binary.LittleEndian, 8)
	b := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	r := NewReader(l, b)

	require.Equal(t, uint16(1), r.Uint16())
	require.Equal(t, uint32(2), r.Uint32())
	require.Equal(t, uint64(3), r.Uint64())

	r.SetOffset(0)
	require.Equal(t, 0, r.Offset())
	require.Equal(t, len(b), r.Avail())
}

func TestReaderCStringAt(t *testing.T) {
	l := New(binary.LittleEndian, 8)
	b := []byte{0x00, 'f', 'o', 'o', 0x00, 'b', 'a', 'r', 0x00}
	r := NewReader(l, b)

	require.Equal(t, "foo", r.CStringAt(1))
	require.Equal(t, "bar", r.CStringAt(5))
	require.Equal(t, "", r.CStringAt(0))
}
