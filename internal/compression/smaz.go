// Package compression implements codebook-driven string compression used by
// the binary serialization of filters.
package compression

import (
	"fmt"
	"strings"
)

const (
	// codeVerbatimByte prefixes a single byte copied as is.
	codeVerbatimByte = 254

	// codeVerbatimRun prefixes a length byte followed by that many raw bytes.
	codeVerbatimRun = 255

	// maxVerbatimRun is the longest run of raw bytes a single codeVerbatimRun
	// block can hold.
	maxVerbatimRun = 255

	// maxCodebookSize is the number of codes left once the two verbatim
	// markers are reserved.
	maxCodebookSize = 254
)

type trieNode struct {
	children map[byte]*trieNode
	code     int
}

func newTrieNode() *trieNode {
	return &trieNode{children: map[byte]*trieNode{}, code: -1}
}

// Smaz compresses strings against a fixed codebook.  Each codebook entry
// found in the input is replaced by its one-byte index, the longest entry
// wins.  Bytes not covered by any entry are emitted verbatim.
type Smaz struct {
	root     *trieNode
	codebook []string
}

// NewSmaz builds a compressor for codebook.  It panics if codebook holds more
// entries than a byte can index next to the verbatim markers.
func NewSmaz(codebook []string) (s *Smaz) {
	if len(codebook) > maxCodebookSize {
		panic(fmt.Errorf("codebook has %d entries, max is %d", len(codebook), maxCodebookSize))
	}

	s = &Smaz{root: newTrieNode(), codebook: codebook}
	for code, word := range codebook {
		node := s.root
		for i := range len(word) {
			next, ok := node.children[word[i]]
			if !ok {
				next = newTrieNode()
				node.children[word[i]] = next
			}
			node = next
		}
		node.code = code
	}

	return s
}

// longestMatch returns the code of the longest codebook entry starting at
// str[from:] and the index right after it, or -1 when nothing matches.
func (s *Smaz) longestMatch(str string, from int) (code, end int) {
	code, end = -1, -1
	node := s.root
	for j := from; j < len(str); j++ {
		node = node.children[str[j]]
		if node == nil {
			break
		}

		if node.code != -1 {
			code, end = node.code, j+1
		}
	}

	return code, end
}

// Compress returns the compressed form of str.
func (s *Smaz) Compress(str string) (out []byte) {
	if str == "" {
		return []byte{}
	}

	out = make([]byte, 0, len(str))
	verbatim := make([]byte, 0, maxVerbatimRun)
	flush := func() {
		switch len(verbatim) {
		case 0:
		case 1:
			out = append(out, codeVerbatimByte, verbatim[0])
		default:
			out = append(out, codeVerbatimRun, byte(len(verbatim)))
			out = append(out, verbatim...)
		}
		verbatim = verbatim[:0]
	}

	for i := 0; i < len(str); {
		code, end := s.longestMatch(str, i)
		if code == -1 {
			verbatim = append(verbatim, str[i])
			i++
			if len(verbatim) == maxVerbatimRun {
				flush()
			}

			continue
		}

		flush()
		out = append(out, byte(code))
		i = end
	}
	flush()

	return out
}

// CompressedSize returns len(s.Compress(str)) without allocating the output.
func (s *Smaz) CompressedSize(str string) (size int) {
	verbatim := 0
	flush := func() {
		switch verbatim {
		case 0:
		case 1:
			size += 2
		default:
			size += 2 + verbatim
		}
		verbatim = 0
	}

	for i := 0; i < len(str); {
		code, end := s.longestMatch(str, i)
		if code == -1 {
			verbatim++
			i++
			if verbatim == maxVerbatimRun {
				flush()
			}

			continue
		}

		flush()
		size++
		i = end
	}
	flush()

	return size
}

// Decompress restores the string compressed by Compress.  Malformed input
// is decoded on a best-effort basis: truncated verbatim blocks are cut short
// and unknown codes are skipped.
func (s *Smaz) Decompress(data []byte) (str string) {
	if len(data) == 0 {
		return ""
	}

	b := &strings.Builder{}
	b.Grow(len(data) * 2)
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case codeVerbatimByte:
			if i+1 < len(data) {
				b.WriteByte(data[i+1])
			}
			i++
		case codeVerbatimRun:
			if i+1 >= len(data) {
				return b.String()
			}

			n := int(data[i+1])
			start := i + 2
			end := min(start+n, len(data))
			b.Write(data[start:end])
			i = end - 1
		default:
			if int(c) < len(s.codebook) {
				b.WriteString(s.codebook[c])
			}
		}
	}

	return b.String()
}
