package parser

// Diff is a set of filter lines to add to and remove from an engine.
// Preprocessors holds the lines gated by a condition, keyed by the
// condition.
type Diff struct {
	Preprocessors map[string]*PreprocessorDiff `json:"preprocessors,omitempty"`
	Added         []string                     `json:"added,omitempty"`
	Removed       []string                     `json:"removed,omitempty"`
}

// PreprocessorDiff is the part of a Diff gated by a condition
type PreprocessorDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// orderedSet is a set of strings remembering insertion order
type orderedSet struct {
	index map[string]int
	items []string
}

func newOrderedSet(items []string) *orderedSet {
	s := &orderedSet{index: map[string]int{}}
	for _, item := range items {
		s.add(item)
	}

	return s
}

func (s *orderedSet) add(item string) {
	if _, ok := s.index[item]; ok {
		return
	}

	s.index[item] = len(s.items)
	s.items = append(s.items, item)
}

func (s *orderedSet) remove(item string) {
	delete(s.index, item)
}

func (s *orderedSet) values() []string {
	res := make([]string, 0, len(s.index))
	for i, item := range s.items {
		if j, ok := s.index[item]; ok && i == j {
			res = append(res, item)
		}
	}

	return res
}

// accumulate records added and removed lines, a later diff cancelling what
// an earlier one did.
func accumulate(added, removed *orderedSet, add, rem []string) {
	for _, line := range add {
		removed.remove(line)
		added.add(line)
	}

	for _, line := range rem {
		added.remove(line)
		removed.add(line)
	}
}

// MergeDiffs merges several diffs into one.  A line added by a diff and
// removed by a later one ends up removed, and the other way round.
func MergeDiffs(diffs ...*Diff) *Diff {
	added, removed := newOrderedSet(nil), newOrderedSet(nil)
	type pair struct{ added, removed *orderedSet }
	conds := map[string]*pair{}

	for _, d := range diffs {
		if d == nil {
			continue
		}

		accumulate(added, removed, d.Added, d.Removed)
		for cond, pd := range d.Preprocessors {
			if pd == nil {
				continue
			}

			c, ok := conds[cond]
			if !ok {
				conds[cond] = &pair{added: newOrderedSet(pd.Added), removed: newOrderedSet(pd.Removed)}

				continue
			}

			accumulate(c.added, c.removed, pd.Added, pd.Removed)
		}
	}

	res := &Diff{
		Added:         added.values(),
		Removed:       removed.values(),
		Preprocessors: make(map[string]*PreprocessorDiff, len(conds)),
	}

	for cond, c := range conds {
		res.Preprocessors[cond] = &PreprocessorDiff{
			Added:   c.added.values(),
			Removed: c.removed.values(),
		}
	}

	return res
}
