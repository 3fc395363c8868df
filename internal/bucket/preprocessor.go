package bucket

import (
	"maps"
	"slices"

	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/preprocessor"
)

// PreprocessorBucket keeps the preprocessor conditions of the loaded lists
// and the ids of the filters they currently exclude.
type PreprocessorBucket struct {
	excluded      map[uint32]struct{}
	preprocessors []*preprocessor.Preprocessor
}

// NewPreprocessorBucket returns an empty bucket.
func NewPreprocessorBucket() (b *PreprocessorBucket) {
	return &PreprocessorBucket{
		excluded: map[uint32]struct{}{},
	}
}

// DeserializePreprocessorBucket reads a bucket written by Serialize.
func DeserializePreprocessorBucket(v *dataview.View) (b *PreprocessorBucket) {
	b = NewPreprocessorBucket()
	n := v.GetUint32()
	for range n {
		if v.Err() != nil {
			return b
		}
		b.excluded[v.GetUint32()] = struct{}{}
	}

	n = v.GetUint32()
	for range n {
		if v.Err() != nil {
			return b
		}
		b.preprocessors = append(b.preprocessors, preprocessor.Deserialize(v))
	}

	return b
}

// IsExcluded reports whether the filter with id is disabled by a condition.
// It can be used as an ExcludeFunc.
func (b *PreprocessorBucket) IsExcluded(id uint32) (ok bool) {
	_, ok = b.excluded[id]

	return ok
}

// Preprocessors returns the conditions of the bucket.
func (b *PreprocessorBucket) Preprocessors() (ps []*preprocessor.Preprocessor) {
	return b.preprocessors
}

// Excluded returns the number of excluded filters.
func (b *PreprocessorBucket) Excluded() (n int) {
	return len(b.excluded)
}

// UpdateEnv recomputes the excluded filters: a filter is excluded when one of
// the conditions gating it is false in env.
func (b *PreprocessorBucket) UpdateEnv(env preprocessor.Env) {
	clear(b.excluded)
	for _, p := range b.preprocessors {
		if p.Evaluate(env) {
			continue
		}

		for id := range p.FilterIDs {
			b.excluded[id] = struct{}{}
		}
	}
}

// find returns the local preprocessor with the condition cond, if any.
func (b *PreprocessorBucket) find(cond string) (p *preprocessor.Preprocessor) {
	i := slices.IndexFunc(b.preprocessors, func(local *preprocessor.Preprocessor) bool {
		return local.Condition == cond
	})
	if i == -1 {
		return nil
	}

	return b.preprocessors[i]
}

// Update merges the filter ids of added into the preprocessors with the same
// condition and removes the ones of removed, then reevaluates env if
// anything was given.
func (b *PreprocessorBucket) Update(added, removed []*preprocessor.Preprocessor, env preprocessor.Env) {
	for _, p := range removed {
		local := b.find(p.Condition)
		if local == nil {
			continue
		}

		for id := range p.FilterIDs {
			delete(local.FilterIDs, id)
		}
	}

	for _, p := range added {
		local := b.find(p.Condition)
		if local == nil {
			b.preprocessors = append(b.preprocessors, preprocessor.FromCondition(p.Condition, p.SortedIDs()...))

			continue
		}

		maps.Copy(local.FilterIDs, p.FilterIDs)
	}

	if len(added) > 0 || len(removed) > 0 {
		b.UpdateEnv(env)
	}
}

// Serialize writes the bucket to v.  Excluded ids are sorted so that equal
// buckets serialize to equal bytes.
func (b *PreprocessorBucket) Serialize(v *dataview.View) {
	v.PushUint32(uint32(len(b.excluded)))
	for _, id := range slices.Sorted(maps.Keys(b.excluded)) {
		v.PushUint32(id)
	}

	v.PushUint32(uint32(len(b.preprocessors)))
	for _, p := range b.preprocessors {
		p.Serialize(v)
	}
}

// SerializedSize returns the number of bytes Serialize writes.
func (b *PreprocessorBucket) SerializedSize() (n int) {
	n = (1+len(b.excluded))*4 + 4
	for _, p := range b.preprocessors {
		n += p.SerializedSize()
	}

	return n
}
