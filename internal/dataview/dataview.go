// Package dataview provides the cursor-based byte buffer used to serialize
// filters, buckets and whole engines.
package dataview

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/adblock-engine/internal/compression"
)

// ErrTruncated is returned by Err when a read went past the end of the
// buffer.
const ErrTruncated errors.Error = "dataview: unexpected end of buffer"

// Sizes of the fixed-width values.
const (
	SizeOfByte   = 1
	SizeOfBool   = 1
	SizeOfUint16 = 2
	SizeOfUint32 = 4
)

// longLengthMarker prefixes lengths that do not fit in seven bits.
const longLengthMarker = 128

// View is a byte buffer with a cursor.  Writers push values at the cursor,
// growing the buffer as needed; readers get them back in the same order.
//
// Reads past the end of the buffer do not panic: they return zero values and
// record ErrTruncated, which callers check once through Err after a batch of
// reads.
type View struct {
	compression *compression.Compression
	err         error
	buf         []byte
	pos         int
}

// New returns an empty View with room for capacity bytes.  c enables string
// compression when it is not nil.
func New(capacity int, c *compression.Compression) (v *View) {
	return &View{
		buf:         make([]byte, 0, capacity),
		compression: c,
	}
}

// FromBytes returns a View reading b from its beginning.  c must be the same
// compression that was used when b was written, if any.
func FromBytes(b []byte, c *compression.Compression) (v *View) {
	return &View{
		buf:         b,
		compression: c,
	}
}

// Compression returns the compression used by v, nil if it is disabled.
func (v *View) Compression() (c *compression.Compression) { return v.compression }

// EnableCompression switches string categories to c for all subsequent reads
// and writes.
func (v *View) EnableCompression(c *compression.Compression) { v.compression = c }

// Err returns the first error encountered while reading, if any.
func (v *View) Err() (err error) { return v.err }

// Pos returns the cursor position.
func (v *View) Pos() (pos int) { return v.pos }

// SetPos moves the cursor to pos.
func (v *View) SetPos(pos int) { v.pos = pos }

// SeekZero moves the cursor to the start of the buffer.
func (v *View) SeekZero() { v.pos = 0 }

// Len returns the total size of the underlying buffer.
func (v *View) Len() (n int) { return len(v.buf) }

// DataAvailable returns true if there are bytes left to read.
func (v *View) DataAvailable() (ok bool) { return v.pos < len(v.buf) }

// Bytes returns the bytes before the cursor.  The result aliases the buffer.
func (v *View) Bytes() (b []byte) { return v.buf[:v.pos] }

// Checksum returns the CRC-32 of the bytes before the cursor.
func (v *View) Checksum() (sum uint32) {
	return crc32.ChecksumIEEE(v.buf[:v.pos])
}

// Align4 moves the cursor to the next multiple of four, padding with zeros
// when writing.
func (v *View) Align4() {
	aligned := (v.pos + 3) &^ 3
	if aligned > len(v.buf) {
		v.grow(aligned - v.pos)
	}
	v.pos = aligned
}

// grow makes sure n bytes can be written at the cursor.
func (v *View) grow(n int) {
	need := v.pos + n
	if need <= len(v.buf) {
		return
	}

	if need <= cap(v.buf) {
		v.buf = v.buf[:need]

		return
	}

	next := make([]byte, need, max(need, 2*cap(v.buf)))
	copy(next, v.buf)
	v.buf = next
}

// take returns the next n bytes for reading and advances the cursor.
func (v *View) take(n int) (b []byte) {
	if n < 0 || v.pos+n > len(v.buf) {
		if v.err == nil {
			v.err = ErrTruncated
		}
		v.pos = len(v.buf)

		return nil
	}

	b = v.buf[v.pos : v.pos+n]
	v.pos += n

	return b
}

// SetByte overwrites the byte at pos without moving the cursor.
func (v *View) SetByte(pos int, b byte) {
	v.buf[pos] = b
}

// PushByte writes a single byte.
func (v *View) PushByte(b byte) {
	v.grow(1)
	v.buf[v.pos] = b
	v.pos++
}

// GetByte reads a single byte.
func (v *View) GetByte() (b byte) {
	if p := v.take(1); p != nil {
		return p[0]
	}

	return 0
}

// PushBool writes b as one byte.
func (v *View) PushBool(b bool) {
	if b {
		v.PushByte(1)
	} else {
		v.PushByte(0)
	}
}

// GetBool reads a boolean written by PushBool.
func (v *View) GetBool() (b bool) { return v.GetByte() != 0 }

// PushUint16 writes n in big-endian order.
func (v *View) PushUint16(n uint16) {
	v.grow(2)
	binary.BigEndian.PutUint16(v.buf[v.pos:], n)
	v.pos += 2
}

// GetUint16 reads a big-endian uint16.
func (v *View) GetUint16() (n uint16) {
	if p := v.take(2); p != nil {
		return binary.BigEndian.Uint16(p)
	}

	return 0
}

// PushUint32 writes n in big-endian order.
func (v *View) PushUint32(n uint32) {
	v.grow(4)
	binary.BigEndian.PutUint32(v.buf[v.pos:], n)
	v.pos += 4
}

// GetUint32 reads a big-endian uint32.
func (v *View) GetUint32() (n uint32) {
	if p := v.take(4); p != nil {
		return binary.BigEndian.Uint32(p)
	}

	return 0
}

// PushLength writes n in one byte if it is below 128 and in five bytes
// otherwise.
func (v *View) PushLength(n int) {
	if n <= 127 {
		v.PushByte(byte(n))

		return
	}

	v.PushByte(longLengthMarker)
	v.PushUint32(uint32(n))
}

// GetLength reads a length written by PushLength.
func (v *View) GetLength() (n int) {
	short := v.GetByte()
	if short == longLengthMarker {
		return int(v.GetUint32())
	}

	return int(short)
}

// PushBytes writes the length of b followed by b itself.  When align is
// true the payload starts on a multiple of four.
func (v *View) PushBytes(b []byte, align bool) {
	v.PushLength(len(b))
	if align {
		v.Align4()
	}

	v.grow(len(b))
	copy(v.buf[v.pos:], b)
	v.pos += len(b)
}

// GetBytes reads bytes written by PushBytes.  The result aliases the buffer.
func (v *View) GetBytes(align bool) (b []byte) {
	n := v.GetLength()
	if align {
		v.Align4()
	}

	return v.take(n)
}

// PushUint32Array writes the length of arr followed by its elements.
func (v *View) PushUint32Array(arr []uint32) {
	v.PushLength(len(arr))
	for _, n := range arr {
		v.PushUint32(n)
	}
}

// GetUint32Array reads an array written by PushUint32Array.
func (v *View) GetUint32Array() (arr []uint32) {
	n := v.GetLength()
	if n == 0 {
		return nil
	}

	p := v.take(4 * n)
	if p == nil {
		return nil
	}

	arr = make([]uint32, n)
	for i := range arr {
		arr[i] = binary.BigEndian.Uint32(p[4*i:])
	}

	return arr
}

// PushUTF8 writes the length-prefixed UTF-8 bytes of s.
func (v *View) PushUTF8(s string) {
	v.PushLength(len(s))
	v.grow(len(s))
	copy(v.buf[v.pos:], s)
	v.pos += len(s)
}

// GetUTF8 reads a string written by PushUTF8.
func (v *View) GetUTF8() (s string) {
	return string(v.take(v.GetLength()))
}

// PushASCII writes s.  It is kept apart from PushUTF8 so that call sites
// state which strings are known to be ASCII.
func (v *View) PushASCII(s string) { v.PushUTF8(s) }

// GetASCII reads a string written by PushASCII.
func (v *View) GetASCII() (s string) { return v.GetUTF8() }
