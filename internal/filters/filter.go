package filters

import (
	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
)

// Filter is the common interface of network and cosmetic filters, used by
// the indexes storing them.
type Filter interface {
	// ID returns the content hash of the filter.
	ID() (id uint32)

	// Tokens returns the alternative sets of tokens the filter can be found
	// by.  A nil result means the filter has no usable token.
	Tokens() (alternatives [][]uint32)

	// Serialize writes the filter to v.
	Serialize(v *dataview.View)

	// SerializedSize returns the size Serialize writes with compression c.
	SerializedSize(c *compression.Compression) (n int)

	// String returns the filter in filter list syntax.
	String() (s string)
}

// type check
var (
	_ Filter = (*NetworkFilter)(nil)
	_ Filter = (*CosmeticFilter)(nil)
)
