package bucket

import (
	"cmp"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
)

// wildcardToken is the key of the bucket holding filters without a usable
// token.  It is consulted on every lookup.
const wildcardToken uint32 = 0

// bloomFalsePositiveRate is the false positive rate of the token prefilter.
const bloomFalsePositiveRate = 0.01

// DeserializeFunc reads a single filter.
type DeserializeFunc[T filters.Filter] func(v *dataview.View) (f T)

// OptimizeFunc rewrites the filters of an index before they are stored.
type OptimizeFunc[T filters.Filter] func(fs []T) (res []T)

// ReverseIndex maps tokens to the filters indexed by them.  Each alternative
// returned by a filter's Tokens is registered under its least used token, so
// a filter is stored once per alternative.  Filters with an empty
// alternative go to the wildcard bucket.
//
// Filters are kept in their serialized form and only deserialized when a
// lookup reaches them.  Lookups are safe for concurrent use, updates are not.
type ReverseIndex[T filters.Filter] struct {
	deserialize DeserializeFunc[T]
	optimize    OptimizeFunc[T]
	conf        *Config

	// mu protects the lazily built fields below.
	mu *sync.Mutex

	// blob is the serialized index, see encode for its layout.
	blob []byte

	// buckets maps tokens to indexes of filters in offsets.  It is nil until
	// the blob is first read.
	buckets   map[uint32][]uint32
	offsets   []uint32
	loaded    []T
	isSet     []bool
	prefilter *bloom.BloomFilter

	// filtersStart is the position of the first filter in blob.
	filtersStart int
	size         int
}

// NewReverseIndex returns an empty index.  optimize may be nil.
func NewReverseIndex[T filters.Filter](
	conf *Config,
	deserialize DeserializeFunc[T],
	optimize OptimizeFunc[T],
) (idx *ReverseIndex[T]) {
	return &ReverseIndex[T]{
		deserialize: deserialize,
		optimize:    optimize,
		conf:        conf,
		mu:          &sync.Mutex{},
	}
}

// DeserializeReverseIndex reads an index written by Serialize.  Filters are
// not deserialized until they are needed, from the bytes of v which must not
// be modified afterwards.
func DeserializeReverseIndex[T filters.Filter](
	v *dataview.View,
	conf *Config,
	deserialize DeserializeFunc[T],
	optimize OptimizeFunc[T],
) (idx *ReverseIndex[T]) {
	idx = NewReverseIndex(conf, deserialize, optimize)
	if blob := v.GetBytes(false); len(blob) > 0 {
		idx.blob = blob
	}

	return idx
}

// Size returns the number of filters stored.
func (idx *ReverseIndex[T]) Size() (n int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.load()

	return idx.size
}

// Serialize writes the index to v.
func (idx *ReverseIndex[T]) Serialize(v *dataview.View) {
	v.PushBytes(idx.blob, false)
}

// SerializedSize returns the number of bytes Serialize writes.
func (idx *ReverseIndex[T]) SerializedSize() (n int) {
	return dataview.SizeOfBytes(len(idx.blob), false)
}

// Filters returns every filter of the index, each once.
func (idx *ReverseIndex[T]) Filters() (fs []T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.load()

	fs = make([]T, 0, idx.size)
	for i := range idx.size {
		fs = append(fs, idx.filter(uint32(i)))
	}

	return fs
}

// Update adds added and removes the filters whose ids are in removed.  The
// index is only rebuilt when its content changes, in which case changed is
// true.
func (idx *ReverseIndex[T]) Update(added []T, removed map[uint32]struct{}) (changed bool) {
	current := idx.Filters()

	selected := current
	if len(removed) > 0 {
		selected = make([]T, 0, len(current)+len(added))
		for _, f := range current {
			if _, ok := removed[f.ID()]; !ok {
				selected = append(selected, f)
			}
		}
	}

	if len(selected) == len(current) && len(added) == 0 {
		return false
	}

	selected = append(selected, added...)
	if idx.optimize != nil && idx.conf.EnableOptimizations {
		selected = idx.optimize(selected)
	}

	if idx.conf.Debug {
		slices.SortStableFunc(selected, func(a, b T) int { return cmp.Compare(a.ID(), b.ID()) })
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.reset()
	if len(selected) > 0 {
		idx.blob = idx.encode(selected)
	}

	return true
}

// IterMatchingFilters calls visit for every filter registered under one of
// toks or under the wildcard bucket, each once, until visit returns false.
func (idx *ReverseIndex[T]) IterMatchingFilters(toks []uint32, visit func(f T) (cont bool)) {
	idx.mu.Lock()
	idx.load()
	if idx.size == 0 {
		idx.mu.Unlock()

		return
	}

	var ids []uint32
	visited := 0
	for _, tok := range toks {
		if tok == wildcardToken || !idx.mayContain(tok) {
			continue
		}

		if bucket, ok := idx.buckets[tok]; ok {
			ids = append(ids, bucket...)
			visited++
		}
	}

	if bucket, ok := idx.buckets[wildcardToken]; ok {
		ids = append(ids, bucket...)
		visited++
	}

	if visited > 1 {
		ids = dedupe(ids)
	}

	candidates := make([]T, 0, len(ids))
	for _, i := range ids {
		candidates = append(candidates, idx.filter(i))
	}
	idx.mu.Unlock()

	for _, f := range candidates {
		if !visit(f) {
			return
		}
	}
}

// dedupe removes repeated filter indexes keeping the first occurrence.
func dedupe(ids []uint32) (res []uint32) {
	seen := make(map[uint32]struct{}, len(ids))
	res = ids[:0]
	for _, i := range ids {
		if _, ok := seen[i]; !ok {
			seen[i] = struct{}{}
			res = append(res, i)
		}
	}

	return res
}

// mayContain checks tok against the bloom prefilter.
func (idx *ReverseIndex[T]) mayContain(tok uint32) (ok bool) {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], tok)

	return idx.prefilter.Test(key[:])
}

// reset drops the blob and everything derived from it.  idx.mu must be held.
func (idx *ReverseIndex[T]) reset() {
	idx.blob = nil
	idx.buckets = nil
	idx.offsets = nil
	idx.loaded = nil
	idx.isSet = nil
	idx.prefilter = nil
	idx.filtersStart = 0
	idx.size = 0
}

// encode serializes fs:
//
//	u32 number of filters
//	u32 offset of each filter, relative to the first one
//	u32 number of buckets
//	for each bucket: u32 token, u32 array of filter indexes
//	the filters
func (idx *ReverseIndex[T]) encode(fs []T) (blob []byte) {
	buckets := assignTokens(fs)
	toks := make([]uint32, 0, len(buckets))
	for tok := range buckets {
		toks = append(toks, tok)
	}
	slices.Sort(toks)

	filtersSize := 0
	for _, f := range fs {
		filtersSize += f.SerializedSize(idx.conf.Compression)
	}

	fv := dataview.New(filtersSize, idx.conf.Compression)
	offsets := make([]uint32, 0, len(fs))
	for _, f := range fs {
		offsets = append(offsets, uint32(fv.Pos()))
		f.Serialize(fv)
	}

	headerSize := 4 + 4*len(fs) + 4
	for _, tok := range toks {
		headerSize += 4 + dataview.SizeOfUint32Array(buckets[tok])
	}

	v := dataview.New(headerSize+fv.Pos(), idx.conf.Compression)
	v.PushUint32(uint32(len(fs)))
	for _, off := range offsets {
		v.PushUint32(off)
	}

	v.PushUint32(uint32(len(toks)))
	for _, tok := range toks {
		v.PushUint32(tok)
		v.PushUint32Array(buckets[tok])
	}

	return append(v.Bytes(), fv.Bytes()...)
}

// assignTokens returns the buckets of fs: each alternative of a filter is
// registered under its least used token.
func assignTokens[T filters.Filter](fs []T) (buckets map[uint32][]uint32) {
	alternatives := make([][][]uint32, len(fs))
	histogram := map[uint32]int{}
	for i, f := range fs {
		alternatives[i] = f.Tokens()
		for _, alt := range alternatives[i] {
			for _, tok := range alt {
				histogram[tok]++
			}
		}
	}

	buckets = map[uint32][]uint32{}
	for i, alts := range alternatives {
		if len(alts) == 0 {
			buckets[wildcardToken] = appendOnce(buckets[wildcardToken], uint32(i))

			continue
		}

		for _, alt := range alts {
			best, bestCount := wildcardToken, 0
			for _, tok := range alt {
				if count := histogram[tok]; best == wildcardToken || count < bestCount {
					best, bestCount = tok, count
				}
			}

			buckets[best] = appendOnce(buckets[best], uint32(i))
		}
	}

	return buckets
}

// appendOnce appends i to ids unless it is already the last element.
// Filters are appended in order so this is enough to avoid repetitions.
func appendOnce(ids []uint32, i uint32) (res []uint32) {
	if len(ids) > 0 && ids[len(ids)-1] == i {
		return ids
	}

	return append(ids, i)
}

// load parses the header of the blob and builds the bloom prefilter.
// idx.mu must be held.
func (idx *ReverseIndex[T]) load() {
	if idx.buckets != nil || len(idx.blob) == 0 {
		return
	}

	// A corrupted blob behaves as an empty index.
	v := dataview.FromBytes(idx.blob, idx.conf.Compression)
	n := int(v.GetUint32())
	if n > len(idx.blob)/dataview.SizeOfUint32 {
		idx.reset()

		return
	}

	offsets := make([]uint32, 0, n)
	for range n {
		offsets = append(offsets, v.GetUint32())
	}

	nbuckets := int(v.GetUint32())
	if nbuckets > len(idx.blob)/dataview.SizeOfUint32 {
		idx.reset()

		return
	}

	buckets := make(map[uint32][]uint32, nbuckets)
	prefilter := bloom.NewWithEstimates(uint(max(nbuckets, 1)), bloomFalsePositiveRate)
	var key [4]byte
	for range nbuckets {
		tok := v.GetUint32()
		buckets[tok] = v.GetUint32Array()

		binary.BigEndian.PutUint32(key[:], tok)
		prefilter.Add(key[:])
	}

	if v.Err() != nil || !validIndex(offsets, buckets, len(idx.blob)-v.Pos()) {
		idx.reset()

		return
	}

	idx.buckets = buckets
	idx.offsets = offsets
	idx.prefilter = prefilter
	idx.filtersStart = v.Pos()
	idx.size = n
	idx.loaded = make([]T, n)
	idx.isSet = make([]bool, n)
}

// validIndex returns true if every offset points into the filters section of
// filtersLen bytes and every bucket refers to one of the offsets.
func validIndex(offsets []uint32, buckets map[uint32][]uint32, filtersLen int) (ok bool) {
	for _, off := range offsets {
		if int64(off) >= int64(filtersLen) {
			return false
		}
	}

	n := uint32(len(offsets))
	for _, ids := range buckets {
		for _, i := range ids {
			if i >= n {
				return false
			}
		}
	}

	return true
}

// filter returns the i-th filter, deserializing it on first use.  idx.mu
// must be held.
func (idx *ReverseIndex[T]) filter(i uint32) (f T) {
	if idx.isSet[i] {
		return idx.loaded[i]
	}

	v := dataview.FromBytes(idx.blob[idx.filtersStart+int(idx.offsets[i]):], idx.conf.Compression)
	f = idx.deserialize(v)
	idx.loaded[i] = f
	idx.isSet[i] = true

	return f
}
