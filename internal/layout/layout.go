// Package layout describes the byte order and word size of an ELF
// object so that section, symbol, and relocation tables can be decoded
// by hand instead of through a format-specific struct.
package layout

import (
	"encoding/binary"
	"fmt"
)

// Layout describes the data layout (byte order and word size) of an
// ELF object file.
type Layout struct {
	// order is 0 for little endian and 1 for big endian. We avoid
	// storing a binary.ByteOrder directly so Layout stays a small,
	// comparable value.
	order    uint8
	wordSize uint8
}

// New returns a new Layout with the given byte order and word size.
//
// wordSize must be 4 or 8 (the only ELF classes this loader accepts).
func New(order binary.ByteOrder, wordSize int) Layout {
	var l Layout
	switch order {
	case binary.LittleEndian:
		l.order = 0
	case binary.BigEndian:
		l.order = 1
	default:
		panic(fmt.Errorf("layout: unknown byte order %v", order))
	}
	if wordSize != 4 && wordSize != 8 {
		panic("layout: word size must be 4 or 8")
	}
	l.wordSize = uint8(wordSize)
	return l
}

// WordSize returns the word size of l, in bytes.
func (l Layout) WordSize() int { return int(l.wordSize) }

func (l Layout) Uint16(b []byte) uint16 {
	_ = b[1]
	if l.order == 0 {
		return uint16(b[0]) | uint16(b[1])<<8
	}
	return uint16(b[1]) | uint16(b[0])<<8
}

func (l Layout) Uint32(b []byte) uint32 {
	_ = b[3]
	if l.order == 0 {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24
}

func (l Layout) Int32(b []byte) int32 { return int32(l.Uint32(b)) }

func (l Layout) Uint64(b []byte) uint64 {
	_ = b[7]
	if l.order == 0 {
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
	}
	return uint64(b[7]) | uint64(b[6])<<8 | uint64(b[5])<<16 | uint64(b[4])<<24 |
		uint64(b[3])<<32 | uint64(b[2])<<40 | uint64(b[1])<<48 | uint64(b[0])<<56
}

func (l Layout) Int64(b []byte) int64 { return int64(l.Uint64(b)) }

// Word reads a word-sized (WordSize bytes) unsigned value from b.
func (l Layout) Word(b []byte) uint64 {
	if l.wordSize == 8 {
		return l.Uint64(b)
	}
	return uint64(l.Uint32(b))
}

// PutUint32 writes v into b using l's byte order.
func (l Layout) PutUint32(b []byte, v uint32) {
	_ = b[3]
	if l.order == 0 {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	} else {
		b[3], b[2], b[1], b[0] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
}

// PutUint64 writes v into b using l's byte order.
func (l Layout) PutUint64(b []byte, v uint64) {
	_ = b[7]
	if l.order == 0 {
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
	} else {
		for i := 0; i < 8; i++ {
			b[7-i] = byte(v >> (8 * i))
		}
	}
}

// PutWord writes v as a word-sized (WordSize bytes) value into b.
func (l Layout) PutWord(b []byte, v uint64) {
	if l.wordSize == 8 {
		l.PutUint64(b, v)
	} else {
		l.PutUint32(b, uint32(v))
	}
}

// Reader reads successive fixed-width fields from a byte slice using a
// Layout's byte order.
type Reader struct {
	l Layout
	b []byte
	p int
}

// NewReader returns a Reader over b using layout l.
func NewReader(l Layout, b []byte) *Reader {
	return &Reader{l: l, b: b}
}

// SetOffset moves r's cursor to the given byte offset.
func (r *Reader) SetOffset(off int) { r.p = off }

// Offset returns r's current cursor offset.
func (r *Reader) Offset() int { return r.p }

// Avail returns the number of bytes remaining in r.
func (r *Reader) Avail() int { return len(r.b) - r.p }

func (r *Reader) Uint8() uint8 {
	v := r.b[r.p]
	r.p++
	return v
}

func (r *Reader) Uint16() uint16 {
	v := r.l.Uint16(r.b[r.p:])
	r.p += 2
	return v
}

func (r *Reader) Uint32() uint32 {
	v := r.l.Uint32(r.b[r.p:])
	r.p += 4
	return v
}

func (r *Reader) Int32() int32 {
	v := r.l.Int32(r.b[r.p:])
	r.p += 4
	return v
}

func (r *Reader) Uint64() uint64 {
	v := r.l.Uint64(r.b[r.p:])
	r.p += 8
	return v
}

func (r *Reader) Int64() int64 {
	v := r.l.Int64(r.b[r.p:])
	r.p += 8
	return v
}

// Word reads a word-sized (WordSize bytes) unsigned value.
func (r *Reader) Word() uint64 {
	v := r.l.Word(r.b[r.p:])
	r.p += r.l.WordSize()
	return v
}

// CStringAt reads a NUL-terminated string starting at byte offset off,
// without moving the reader's cursor.
func (r *Reader) CStringAt(off int) string {
	s := r.b[off:]
	for i, c := range s {
		if c == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}
