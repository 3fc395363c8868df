// Package tokens contains the string hashing and tokenization primitives
// shared by filters, requests and indexes.
package tokens

import (
	"slices"
)

const (
	// HashSeed is the initial value of every hash.
	HashSeed uint32 = 7877

	// HashMult is the multiplier applied before mixing in each byte.
	HashMult uint32 = 33
)

// FastHash returns the hash of s.
func FastHash(s string) (h uint32) {
	return FastHashBetween(s, 0, len(s))
}

// FastHashBetween returns the hash of s[begin:end].
func FastHashBetween(s string, begin, end int) (h uint32) {
	h = HashSeed
	for i := begin; i < end; i++ {
		h = h*HashMult ^ uint32(s[i])
	}

	return h
}

// HashStrings appends the hashes of strs to dst.
func HashStrings(dst []uint32, strs []string) (res []uint32) {
	for _, s := range strs {
		dst = append(dst, FastHash(s))
	}

	return dst
}

// Compact sorts arr in place and removes duplicates.
func Compact(arr []uint32) (res []uint32) {
	slices.Sort(arr)

	return slices.Compact(arr)
}

// HasSorted reports whether sorted contains n.
func HasSorted(sorted []uint32, n uint32) (ok bool) {
	_, ok = slices.BinarySearch(sorted, n)

	return ok
}

// HashHostnameBackward hashes hostname from its last byte to its first one,
// which is how domain constraints are keyed.
func HashHostnameBackward(hostname string) (h uint32) {
	h = HashSeed
	for i := len(hostname) - 1; i >= 0; i-- {
		h = h*HashMult ^ uint32(hostname[i])
	}

	return h
}

// AppendLabelHashesBackward appends to dst the backward hash of every suffix
// of hostname[:end] starting on a label boundary before startOfDomain,
// followed by the hash of hostname[:end] itself.  For "a.b.example.com" with
// the domain "example.com" that is "b.example.com", "example.com" and the
// whole hostname, but never "com".
func AppendLabelHashesBackward(dst []uint32, hostname string, end, startOfDomain int) (res []uint32) {
	h := HashSeed
	for i := end - 1; i >= 0; i-- {
		c := hostname[i]
		if c == '.' && i < startOfDomain {
			dst = append(dst, h)
		}
		h = h*HashMult ^ uint32(c)
	}

	return append(dst, h)
}
