package bucket

import (
	"cmp"
	"slices"

	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
)

// FiltersContainer is a flat list of filters kept in serialized form.  It
// suits filters that are always read together, like generic cosmetic rules
// or bad filters.
type FiltersContainer[T filters.Filter] struct {
	deserialize DeserializeFunc[T]
	conf        *Config

	// blob is a u32 count followed by the filters, nil when empty.
	blob []byte
}

// NewFiltersContainer returns an empty container.
func NewFiltersContainer[T filters.Filter](conf *Config, deserialize DeserializeFunc[T]) (c *FiltersContainer[T]) {
	return &FiltersContainer[T]{
		deserialize: deserialize,
		conf:        conf,
	}
}

// DeserializeFiltersContainer reads a container written by Serialize.  The
// container refers to the bytes of v, which must not be modified afterwards.
func DeserializeFiltersContainer[T filters.Filter](
	v *dataview.View,
	conf *Config,
	deserialize DeserializeFunc[T],
) (c *FiltersContainer[T]) {
	c = NewFiltersContainer(conf, deserialize)
	if blob := v.GetBytes(false); len(blob) > 4 {
		c.blob = blob
	}

	return c
}

// Update adds added and removes the filters whose ids are in removed.  It
// returns true if the content changed.
func (c *FiltersContainer[T]) Update(added []T, removed map[uint32]struct{}) (changed bool) {
	current := c.Filters()

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
	if len(selected) == 0 {
		c.blob = nil

		return true
	}

	if c.conf.Debug {
		slices.SortStableFunc(selected, func(a, b T) int { return cmp.Compare(a.ID(), b.ID()) })
	}

	size := 4
	for _, f := range selected {
		size += f.SerializedSize(c.conf.Compression)
	}

	v := dataview.New(size, c.conf.Compression)
	v.PushUint32(uint32(len(selected)))
	for _, f := range selected {
		f.Serialize(v)
	}
	c.blob = v.Bytes()

	return true
}

// Filters deserializes and returns all filters.
func (c *FiltersContainer[T]) Filters() (fs []T) {
	if len(c.blob) <= 4 {
		return nil
	}

	v := dataview.FromBytes(c.blob, c.conf.Compression)
	n := int(v.GetUint32())
	fs = make([]T, 0, min(n, len(c.blob)))
	for range n {
		f := c.deserialize(v)
		if v.Err() != nil {
			break
		}

		fs = append(fs, f)
	}

	return fs
}

// Size returns the number of filters stored.
func (c *FiltersContainer[T]) Size() (n int) {
	if len(c.blob) <= 4 {
		return 0
	}

	return int(dataview.FromBytes(c.blob, nil).GetUint32())
}

// Serialize writes the container to v.
func (c *FiltersContainer[T]) Serialize(v *dataview.View) {
	v.PushBytes(c.blob, false)
}

// SerializedSize returns the number of bytes Serialize writes.
func (c *FiltersContainer[T]) SerializedSize() (n int) {
	return dataview.SizeOfBytes(len(c.blob), false)
}
