// Package bucket contains the indexes the engine stores its filters in.
package bucket

import (
	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/request"
)

// Config is the part of the engine configuration the buckets depend on.
type Config struct {
	// Compression is used to serialize filters, nil disables it.
	Compression *compression.Compression

	// Debug makes updates deterministic by sorting filters by id.
	Debug bool

	// EnableOptimizations drops duplicate network filters on update.
	EnableOptimizations bool

	LoadNetworkFilters    bool
	LoadCosmeticFilters   bool
	LoadExtendedSelectors bool
}

// ExcludeFunc reports whether a filter is disabled, typically by a
// preprocessor condition.  A nil ExcludeFunc excludes nothing.
type ExcludeFunc func(id uint32) (excluded bool)

// excluded is a nil-safe helper for ExcludeFunc.
func (f ExcludeFunc) excluded(id uint32) (ok bool) {
	return f != nil && f(id)
}

// LookupTokens returns the tokens cosmetic filters scoped to hostname are
// indexed by: its hostname hashes followed by its entity hashes.
func LookupTokens(hostname, domain string) (toks []uint32) {
	toks = request.HostnameHashes(hostname, domain)

	return append(toks, request.EntityHashes(hostname, domain)...)
}
