package dataview

import "github.com/bnema/adblock-engine/internal/compression"

// Category selects the codebook used for a serialized string when
// compression is enabled.
type Category uint8

// Category values.
const (
	NetworkRedirect Category = iota
	NetworkHostname
	NetworkCSP
	NetworkFilter
	CosmeticSelector
	RawNetwork
	RawCosmetic
)

// smaz returns the compressor of cat.
func (cat Category) smaz(c *compression.Compression) (s *compression.Smaz) {
	switch cat {
	case NetworkRedirect:
		return c.NetworkRedirect
	case NetworkHostname:
		return c.NetworkHostname
	case NetworkCSP:
		return c.NetworkCSP
	case NetworkFilter:
		return c.NetworkFilter
	case CosmeticSelector:
		return c.CosmeticSelector
	case RawNetwork:
		return c.NetworkRaw
	default:
		return c.CosmeticRaw
	}
}

// PushString writes s, compressed with the codebook of cat if compression is
// enabled.
func (v *View) PushString(cat Category, s string) {
	if v.compression == nil {
		v.PushUTF8(s)

		return
	}

	v.PushBytes(cat.smaz(v.compression).Compress(s), false)
}

// GetString reads a string written by PushString with the same category.
func (v *View) GetString(cat Category) (s string) {
	if v.compression == nil {
		return v.GetUTF8()
	}

	return cat.smaz(v.compression).Decompress(v.GetBytes(false))
}

// SizeOfString returns the number of bytes PushString needs for s.
func SizeOfString(cat Category, s string, c *compression.Compression) (n int) {
	if c == nil {
		return SizeOfUTF8(s)
	}

	return SizeOfBytes(cat.smaz(c).CompressedSize(s), false)
}

// SizeOfLength returns the number of bytes PushLength needs for n.
func SizeOfLength(n int) (size int) {
	if n <= 127 {
		return 1
	}

	return 5
}

// SizeOfBytes returns the number of bytes PushBytes needs for a payload of n
// bytes.  With align the result is an upper bound since padding depends on
// the cursor position.
func SizeOfBytes(n int, align bool) (size int) {
	size = n + SizeOfLength(n)
	if align {
		size += 3
	}

	return size
}

// SizeOfUTF8 returns the number of bytes PushUTF8 needs for s.
func SizeOfUTF8(s string) (size int) { return len(s) + SizeOfLength(len(s)) }

// SizeOfASCII returns the number of bytes PushASCII needs for s.
func SizeOfASCII(s string) (size int) { return SizeOfUTF8(s) }

// SizeOfUint32Array returns the number of bytes PushUint32Array needs for
// arr.
func SizeOfUint32Array(arr []uint32) (size int) {
	return 4*len(arr) + SizeOfLength(len(arr))
}
