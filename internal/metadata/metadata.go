// Package metadata attributes network filters and domains to the trackers,
// organizations and categories of a tracker database.
package metadata

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/tokens"
)

// ErrInvalidDump is returned when a tracker database dump is not a JSON
// object of the expected shape.
const ErrInvalidDump errors.Error = "cannot parse tracker database"

// Metadata is a tracker database.  It is read-only and safe for concurrent
// use.
type Metadata struct {
	Organizations *CompactMap[Organization]
	Categories    *CompactMap[Category]
	Patterns      *CompactMap[Pattern]
}

// PatternInfo is a pattern with its category and organization.
// Organization is nil for patterns without one.
type PatternInfo struct {
	Pattern      *Pattern
	Category     *Category
	Organization *Organization
}

// New returns the database of the given entries.  Invalid entries are
// skipped.
func New(orgs []*Organization, cats []*Category, patterns []*Pattern) (m *Metadata) {
	return &Metadata{
		Organizations: NewCompactMap(organizationCodec, validOnly(orgs)),
		Categories:    NewCompactMap(categoryCodec, validOnly(cats)),
		Patterns:      NewCompactMap(patternCodec, validOnly(patterns)),
	}
}

// validator is implemented by database entries.
type validator interface {
	IsValid() (ok bool)
}

func validOnly[V any, P interface {
	*V
	validator
}](values []*V) (res []*V) {
	res = make([]*V, 0, len(values))
	for _, v := range values {
		if v != nil && P(v).IsValid() {
			res = append(res, v)
		}
	}

	return res
}

// rawDump is the JSON layout of a tracker database dump.  Entries are keyed
// by their key, which may be omitted from the entry itself.
type rawDump struct {
	Organizations map[string]*Organization `json:"organizations"`
	Categories    map[string]*Category     `json:"categories"`
	Patterns      map[string]*Pattern      `json:"patterns"`
}

// Parse reads a JSON tracker database dump.
func Parse(data []byte) (m *Metadata, err error) {
	raw := &rawDump{}
	err = json.Unmarshal(data, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}

	return New(
		withKeys(raw.Organizations, func(o *Organization, k string) { o.Key = k }, func(o *Organization) string { return o.Key }),
		withKeys(raw.Categories, func(c *Category, k string) { c.Key = k }, func(c *Category) string { return c.Key }),
		withKeys(raw.Patterns, func(p *Pattern, k string) { p.Key = k }, func(p *Pattern) string { return p.Key }),
	), nil
}

// withKeys returns the values of entries, with missing keys filled in from
// the map, sorted by key for determinism.
func withKeys[V any](
	entries map[string]*V,
	setKey func(v *V, k string),
	getKey func(v *V) (k string),
) (values []*V) {
	values = make([]*V, 0, len(entries))
	for k, v := range entries {
		if v == nil {
			continue
		}

		if getKey(v) == "" {
			setKey(v, k)
		}

		values = append(values, v)
	}

	slices.SortFunc(values, func(a, b *V) int { return strings.Compare(getKey(a), getKey(b)) })

	return values
}

// FromID returns the patterns registered under the filter id.
func (m *Metadata) FromID(id uint32) (infos []*PatternInfo) {
	for _, p := range m.Patterns.Get(id) {
		info := &PatternInfo{Pattern: p}
		if cats := m.Categories.Get(tokens.FastHash(p.Category)); len(cats) > 0 {
			info.Category = cats[0]
		}

		if p.Organization != "" {
			if orgs := m.Organizations.Get(tokens.FastHash(p.Organization)); len(orgs) > 0 {
				info.Organization = orgs[0]
			}
		}

		infos = append(infos, info)
	}

	return infos
}

// FromFilter returns the patterns f belongs to.
func (m *Metadata) FromFilter(f *filters.NetworkFilter) (infos []*PatternInfo) {
	return m.FromID(f.ID())
}

// FromDomain returns the patterns of the closest parent of hostname listed
// in the database, hostname included.
func (m *Metadata) FromDomain(hostname string) (infos []*PatternInfo) {
	labels := strings.Split(hostname, ".")
	for ; len(labels) >= 2; labels = labels[1:] {
		f := filters.ParseNetwork(domainFilter(strings.Join(labels, ".")), false)
		if f == nil {
			continue
		}

		if infos = m.FromID(f.ID()); len(infos) > 0 {
			return infos
		}
	}

	return nil
}

// Serialize writes m to v.
func (m *Metadata) Serialize(v *dataview.View) {
	m.Organizations.Serialize(v)
	m.Categories.Serialize(v)
	m.Patterns.Serialize(v)
}

// SerializedSize returns the number of bytes Serialize writes.
func (m *Metadata) SerializedSize() (n int) {
	return m.Organizations.SerializedSize() + m.Categories.SerializedSize() + m.Patterns.SerializedSize()
}

// Deserialize reads a database written by Serialize.
func Deserialize(v *dataview.View) (m *Metadata, err error) {
	m = &Metadata{
		Organizations: DeserializeCompactMap(v, organizationCodec),
		Categories:    DeserializeCompactMap(v, categoryCodec),
		Patterns:      DeserializeCompactMap(v, patternCodec),
	}

	if err = v.Err(); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	return m, nil
}

// Merge returns the union of dbs.  The first entry with a given key wins.
func Merge(dbs ...*Metadata) (m *Metadata) {
	var orgs []*Organization
	var cats []*Category
	var patterns []*Pattern

	seenOrgs, seenCats, seenPatterns := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, db := range dbs {
		if db == nil {
			continue
		}

		orgs = appendNew(orgs, db.Organizations.Values(), seenOrgs, func(o *Organization) string { return o.Key })
		cats = appendNew(cats, db.Categories.Values(), seenCats, func(c *Category) string { return c.Key })
		patterns = appendNew(patterns, db.Patterns.Values(), seenPatterns, func(p *Pattern) string { return p.Key })
	}

	if len(orgs)+len(cats)+len(patterns) == 0 {
		return nil
	}

	return New(orgs, cats, patterns)
}

// appendNew appends the values of src whose key is not in seen.
func appendNew[V any](dst, src []*V, seen map[string]bool, key func(v *V) string) (res []*V) {
	for _, v := range src {
		if k := key(v); !seen[k] {
			seen[k] = true
			dst = append(dst, v)
		}
	}

	return dst
}
