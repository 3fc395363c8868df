package bucket

import (
	"sync"

	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/request"
)

// OptimizeNetwork drops network filters with the same id as an earlier one.
func OptimizeNetwork(fs []*filters.NetworkFilter) (res []*filters.NetworkFilter) {
	seen := make(map[uint32]struct{}, len(fs))
	res = fs[:0:0]
	for _, f := range fs {
		if _, ok := seen[f.ID()]; ok {
			continue
		}

		seen[f.ID()] = struct{}{}
		res = append(res, f)
	}

	return res
}

// NetworkBucket indexes network filters of one kind, like exceptions or
// redirects.  Bad filters are stored apart and disable every filter they
// cancel.
type NetworkBucket struct {
	index      *ReverseIndex[*filters.NetworkFilter]
	badFilters *FiltersContainer[*filters.NetworkFilter]

	// badMu protects badIDs, which is computed on first use.
	badMu  *sync.Mutex
	badIDs map[uint32]struct{}
}

// NewNetworkBucket returns an empty bucket.
func NewNetworkBucket(conf *Config) (b *NetworkBucket) {
	return &NetworkBucket{
		index:      NewReverseIndex[*filters.NetworkFilter](conf, filters.DeserializeNetwork, OptimizeNetwork),
		badFilters: NewFiltersContainer[*filters.NetworkFilter](conf, filters.DeserializeNetwork),
		badMu:      &sync.Mutex{},
	}
}

// DeserializeNetworkBucket reads a bucket written by Serialize.
func DeserializeNetworkBucket(v *dataview.View, conf *Config) (b *NetworkBucket) {
	return &NetworkBucket{
		index:      DeserializeReverseIndex[*filters.NetworkFilter](v, conf, filters.DeserializeNetwork, OptimizeNetwork),
		badFilters: DeserializeFiltersContainer[*filters.NetworkFilter](v, conf, filters.DeserializeNetwork),
		badMu:      &sync.Mutex{},
	}
}

// Update adds added and removes the filters whose ids are in removed.
func (b *NetworkBucket) Update(added []*filters.NetworkFilter, removed map[uint32]struct{}) {
	var bad, good []*filters.NetworkFilter
	for _, f := range added {
		if f.IsBadFilter() {
			bad = append(bad, f)
		} else {
			good = append(good, f)
		}
	}

	b.badFilters.Update(bad, removed)
	b.index.Update(good, removed)

	b.badMu.Lock()
	defer b.badMu.Unlock()

	b.badIDs = nil
}

// isDisabled reports whether a bad filter cancels f.
func (b *NetworkBucket) isDisabled(f *filters.NetworkFilter) (ok bool) {
	b.badMu.Lock()
	defer b.badMu.Unlock()

	if b.badIDs == nil {
		bad := b.badFilters.Filters()
		b.badIDs = make(map[uint32]struct{}, len(bad))
		for _, bf := range bad {
			b.badIDs[bf.IDWithoutBadFilter()] = struct{}{}
		}
	}

	_, ok = b.badIDs[f.ID()]

	return ok
}

// accept reports whether f applies to r.
func (b *NetworkBucket) accept(f *filters.NetworkFilter, r *request.Request, exclude ExcludeFunc) (ok bool) {
	return f.Match(r) && !b.isDisabled(f) && !exclude.excluded(f.ID())
}

// Match returns the first filter matching r, if any.
func (b *NetworkBucket) Match(r *request.Request, exclude ExcludeFunc) (match *filters.NetworkFilter) {
	b.index.IterMatchingFilters(r.Tokens(), func(f *filters.NetworkFilter) (cont bool) {
		if b.accept(f, r, exclude) {
			match = f

			return false
		}

		return true
	})

	return match
}

// MatchAll returns every filter matching r in index order.
func (b *NetworkBucket) MatchAll(r *request.Request, exclude ExcludeFunc) (matches []*filters.NetworkFilter) {
	b.index.IterMatchingFilters(r.Tokens(), func(f *filters.NetworkFilter) (cont bool) {
		if b.accept(f, r, exclude) {
			matches = append(matches, f)
		}

		return true
	})

	return matches
}

// Filters returns the filters of the bucket, bad filters included.
func (b *NetworkBucket) Filters() (fs []*filters.NetworkFilter) {
	return append(b.index.Filters(), b.badFilters.Filters()...)
}

// Size returns the number of filters of the bucket, bad filters included.
func (b *NetworkBucket) Size() (n int) {
	return b.index.Size() + b.badFilters.Size()
}

// Serialize writes the bucket to v.
func (b *NetworkBucket) Serialize(v *dataview.View) {
	b.index.Serialize(v)
	b.badFilters.Serialize(v)
}

// SerializedSize returns the number of bytes Serialize writes.
func (b *NetworkBucket) SerializedSize() (n int) {
	return b.index.SerializedSize() + b.badFilters.SerializedSize()
}
