package bucket

import (
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/request"
)

// HTMLFilters are the filters rewriting the HTML of a document.
type HTMLFilters struct {
	// Network are the $replace filters and Exceptions the exceptions that
	// may cancel them.
	Network    []*filters.NetworkFilter
	Exceptions []*filters.NetworkFilter

	// Cosmetic are the ##^ filters and Unhides the #@#^ filters that may
	// cancel them.
	Cosmetic []*filters.CosmeticFilter
	Unhides  []*filters.CosmeticFilter
}

// HTMLBucket stores the filters applied to document bodies: $replace network
// filters and ##^ cosmetic filters, with their exceptions.
type HTMLBucket struct {
	networkIndex    *ReverseIndex[*filters.NetworkFilter]
	exceptionsIndex *ReverseIndex[*filters.NetworkFilter]
	cosmeticIndex   *ReverseIndex[*filters.CosmeticFilter]
	unhideIndex     *ReverseIndex[*filters.CosmeticFilter]

	conf *Config
}

// NewHTMLBucket returns an empty bucket.
func NewHTMLBucket(conf *Config) (b *HTMLBucket) {
	return &HTMLBucket{
		networkIndex:    NewReverseIndex[*filters.NetworkFilter](conf, filters.DeserializeNetwork, OptimizeNetwork),
		exceptionsIndex: NewReverseIndex[*filters.NetworkFilter](conf, filters.DeserializeNetwork, OptimizeNetwork),
		cosmeticIndex:   NewReverseIndex[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic, nil),
		unhideIndex:     NewReverseIndex[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic, nil),
		conf:            conf,
	}
}

// DeserializeHTMLBucket reads a bucket written by Serialize.
func DeserializeHTMLBucket(v *dataview.View, conf *Config) (b *HTMLBucket) {
	b = &HTMLBucket{conf: conf}
	b.networkIndex = DeserializeReverseIndex[*filters.NetworkFilter](v, conf, filters.DeserializeNetwork, OptimizeNetwork)
	b.exceptionsIndex = DeserializeReverseIndex[*filters.NetworkFilter](v, conf, filters.DeserializeNetwork, OptimizeNetwork)
	b.cosmeticIndex = DeserializeReverseIndex[*filters.CosmeticFilter](v, conf, filters.DeserializeCosmetic, nil)
	b.unhideIndex = DeserializeReverseIndex[*filters.CosmeticFilter](v, conf, filters.DeserializeCosmetic, nil)

	return b
}

// Update dispatches the added filters and removes the filters whose ids are
// in removed.
func (b *HTMLBucket) Update(
	network []*filters.NetworkFilter,
	cosmetic []*filters.CosmeticFilter,
	removed map[uint32]struct{},
) {
	var replaces, exceptions []*filters.NetworkFilter
	for _, f := range network {
		if f.IsException() {
			exceptions = append(exceptions, f)
		} else {
			replaces = append(replaces, f)
		}
	}

	var selectors, unhides []*filters.CosmeticFilter
	for _, f := range cosmetic {
		if f.IsUnhide() {
			unhides = append(unhides, f)
		} else {
			selectors = append(selectors, f)
		}
	}

	b.networkIndex.Update(replaces, removed)
	b.exceptionsIndex.Update(exceptions, removed)
	b.cosmeticIndex.Update(selectors, removed)
	b.unhideIndex.Update(unhides, removed)
}

// HTMLFilters returns the filters applying to the document requested by r.
// Cosmetic filters are only considered for main frame documents.
func (b *HTMLBucket) HTMLFilters(r *request.Request, exclude ExcludeFunc) (res *HTMLFilters) {
	res = &HTMLFilters{}
	matchNetwork := func(dst *[]*filters.NetworkFilter) func(f *filters.NetworkFilter) bool {
		return func(f *filters.NetworkFilter) (cont bool) {
			if f.Match(r) && !exclude.excluded(f.ID()) {
				*dst = append(*dst, f)
			}

			return true
		}
	}

	if b.conf.LoadNetworkFilters {
		b.networkIndex.IterMatchingFilters(r.Tokens(), matchNetwork(&res.Network))
		if len(res.Network) > 0 {
			b.exceptionsIndex.IterMatchingFilters(r.Tokens(), matchNetwork(&res.Exceptions))
		}
	}

	if !b.conf.LoadCosmeticFilters || !r.IsMainFrame() {
		return res
	}

	hostnameTokens := LookupTokens(r.Hostname, r.Domain)
	matchCosmetic := func(dst *[]*filters.CosmeticFilter) func(f *filters.CosmeticFilter) bool {
		return func(f *filters.CosmeticFilter) (cont bool) {
			if f.Match(r.Hostname, r.Domain) && !exclude.excluded(f.ID()) {
				*dst = append(*dst, f)
			}

			return true
		}
	}

	b.cosmeticIndex.IterMatchingFilters(hostnameTokens, matchCosmetic(&res.Cosmetic))
	if len(res.Cosmetic) > 0 {
		b.unhideIndex.IterMatchingFilters(hostnameTokens, matchCosmetic(&res.Unhides))
	}

	return res
}

// Filters returns every filter of the bucket.
func (b *HTMLBucket) Filters() (network []*filters.NetworkFilter, cosmetic []*filters.CosmeticFilter) {
	network = append(b.networkIndex.Filters(), b.exceptionsIndex.Filters()...)
	cosmetic = append(b.cosmeticIndex.Filters(), b.unhideIndex.Filters()...)

	return network, cosmetic
}

// Size returns the number of filters of the bucket.
func (b *HTMLBucket) Size() (n int) {
	return b.networkIndex.Size() + b.exceptionsIndex.Size() + b.cosmeticIndex.Size() + b.unhideIndex.Size()
}

// Serialize writes the bucket to v.
func (b *HTMLBucket) Serialize(v *dataview.View) {
	b.networkIndex.Serialize(v)
	b.exceptionsIndex.Serialize(v)
	b.cosmeticIndex.Serialize(v)
	b.unhideIndex.Serialize(v)
}

// SerializedSize returns the number of bytes Serialize writes.
func (b *HTMLBucket) SerializedSize() (n int) {
	return b.networkIndex.SerializedSize() +
		b.exceptionsIndex.SerializedSize() +
		b.cosmeticIndex.SerializedSize() +
		b.unhideIndex.SerializedSize()
}
