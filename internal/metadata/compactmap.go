package metadata

import (
	"slices"

	"github.com/bnema/adblock-engine/internal/dataview"
)

// Codec serializes the values of a CompactMap.
type Codec[V any] struct {
	// Keys returns the keys a value is found by.  A value may have several
	// keys and several values may share a key.
	Keys func(v *V) (keys []uint32)

	Serialize      func(v *V, dv *dataview.View)
	SerializedSize func(v *V) (n int)
	Deserialize    func(dv *dataview.View) (v *V)
}

// CompactMap is a read-only multimap from 32-bit keys to values.  Only the
// values are serialized, the index is rebuilt when reading them back.
type CompactMap[V any] struct {
	codec  *Codec[V]
	index  map[uint32][]int
	values []*V
}

// NewCompactMap indexes values by the keys codec returns for them.
func NewCompactMap[V any](codec *Codec[V], values []*V) (m *CompactMap[V]) {
	m = &CompactMap[V]{
		codec:  codec,
		index:  make(map[uint32][]int, len(values)),
		values: values,
	}

	for i, v := range values {
		for _, k := range codec.Keys(v) {
			if idxs := m.index[k]; !slices.Contains(idxs, i) {
				m.index[k] = append(idxs, i)
			}
		}
	}

	return m
}

// DeserializeCompactMap reads a map written by Serialize.
func DeserializeCompactMap[V any](dv *dataview.View, codec *Codec[V]) (m *CompactMap[V]) {
	n := int(dv.GetUint32())
	values := make([]*V, 0, min(n, dv.Len()))
	for range n {
		if dv.Err() != nil {
			break
		}

		values = append(values, codec.Deserialize(dv))
	}

	return NewCompactMap(codec, values)
}

// Get returns the values stored under key.
func (m *CompactMap[V]) Get(key uint32) (values []*V) {
	idxs := m.index[key]
	if len(idxs) == 0 {
		return nil
	}

	values = make([]*V, 0, len(idxs))
	for _, i := range idxs {
		values = append(values, m.values[i])
	}

	return values
}

// Values returns every value of m in insertion order.
func (m *CompactMap[V]) Values() (values []*V) { return m.values }

// Len returns the number of values.
func (m *CompactMap[V]) Len() (n int) { return len(m.values) }

// Serialize writes the values of m to dv.
func (m *CompactMap[V]) Serialize(dv *dataview.View) {
	dv.PushUint32(uint32(len(m.values)))
	for _, v := range m.values {
		m.codec.Serialize(v, dv)
	}
}

// SerializedSize returns the number of bytes Serialize writes.
func (m *CompactMap[V]) SerializedSize() (n int) {
	n = 4
	for _, v := range m.values {
		n += m.codec.SerializedSize(v)
	}

	return n
}
