package bucket

import (
	"strings"
	"sync"

	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/tokens"
)

// maxSelectorsPerRule is the number of selectors grouped in one CSS rule.
// Browsers reject rules with too many selectors.
const maxSelectorsPerRule = 1024

// CosmeticQuery describes a page cosmetic filters are requested for.
type CosmeticQuery struct {
	// Exclude disables filters, typically the ones gated by preprocessors.
	Exclude ExcludeFunc

	Hostname string
	Domain   string

	// HidingStyle is the style of filters without a custom one.  Empty means
	// filters.DefaultHidingStyle.
	HidingStyle string

	// Classes, IDs and Hrefs are found in the DOM of the page.
	Classes []string
	IDs     []string
	Hrefs   []string

	AllowGenericHides    bool
	AllowSpecificHides   bool
	GetRulesFromDOM      bool
	GetRulesFromHostname bool
}

// hidingStyle returns the effective hiding style of q.
func (q *CosmeticQuery) hidingStyle() (style string) {
	if q.HidingStyle == "" {
		return filters.DefaultHidingStyle
	}

	return q.HidingStyle
}

// ExtendedSelector is an extended filter to apply from a content script.
type ExtendedSelector struct {
	Selector string

	// Attribute marks styled elements, empty for removals.
	Attribute string

	Remove bool
}

// CosmeticBucket stores cosmetic filters in indexes matching how they are
// looked up: by hostname, by DOM class, id or href, and generic rules.
type CosmeticBucket struct {
	genericRules  *FiltersContainer[*filters.CosmeticFilter]
	classesIndex  *ReverseIndex[*filters.CosmeticFilter]
	hostnameIndex *ReverseIndex[*filters.CosmeticFilter]
	hrefsIndex    *ReverseIndex[*filters.CosmeticFilter]
	idsIndex      *ReverseIndex[*filters.CosmeticFilter]
	unhideIndex   *ReverseIndex[*filters.CosmeticFilter]

	conf *Config

	// cacheMu protects the fields below, computed on first use.
	cacheMu *sync.Mutex

	// baseStylesheet hides the generic selectors no unhide rule refers to,
	// for baseStyle.
	baseStylesheet string
	baseStyle      string

	// unhideableRules are generic rules that may be unhidden on some pages.
	unhideableRules []*filters.CosmeticFilter
	cached          bool
}

// NewCosmeticBucket returns an empty bucket.
func NewCosmeticBucket(conf *Config) (b *CosmeticBucket) {
	newIndex := func() *ReverseIndex[*filters.CosmeticFilter] {
		return NewReverseIndex[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic, nil)
	}

	return &CosmeticBucket{
		genericRules:  NewFiltersContainer[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic),
		classesIndex:  newIndex(),
		hostnameIndex: newIndex(),
		hrefsIndex:    newIndex(),
		idsIndex:      newIndex(),
		unhideIndex:   newIndex(),
		conf:          conf,
		cacheMu:       &sync.Mutex{},
	}
}

// DeserializeCosmeticBucket reads a bucket written by Serialize.
func DeserializeCosmeticBucket(v *dataview.View, conf *Config) (b *CosmeticBucket) {
	readIndex := func() *ReverseIndex[*filters.CosmeticFilter] {
		return DeserializeReverseIndex[*filters.CosmeticFilter](v, conf, filters.DeserializeCosmetic, nil)
	}

	b = &CosmeticBucket{
		conf:    conf,
		cacheMu: &sync.Mutex{},
	}

	b.genericRules = DeserializeFiltersContainer[*filters.CosmeticFilter](v, conf, filters.DeserializeCosmetic)
	b.classesIndex = readIndex()
	b.hostnameIndex = readIndex()
	b.hrefsIndex = readIndex()
	b.idsIndex = readIndex()
	b.unhideIndex = readIndex()

	return b
}

// Update dispatches added to the indexes and removes the filters whose ids
// are in removed.
func (b *CosmeticBucket) Update(added []*filters.CosmeticFilter, removed map[uint32]struct{}) {
	var classes, generic, hostname, hrefs, ids, unhides []*filters.CosmeticFilter
	for _, f := range added {
		switch {
		case f.IsUnhide():
			unhides = append(unhides, f)
		case f.IsGenericHide():
			switch {
			case f.IsClassSelector():
				classes = append(classes, f)
			case f.IsIDSelector():
				ids = append(ids, f)
			case f.IsHrefSelector():
				hrefs = append(hrefs, f)
			default:
				generic = append(generic, f)
			}
		case !f.IsExtended(), b.conf.LoadExtendedSelectors, f.IsPureHasSelector():
			hostname = append(hostname, f)
		}
	}

	b.genericRules.Update(generic, removed)
	b.classesIndex.Update(classes, removed)
	b.hostnameIndex.Update(hostname, removed)
	b.hrefsIndex.Update(hrefs, removed)
	b.idsIndex.Update(ids, removed)
	b.unhideIndex.Update(unhides, removed)

	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	b.cached = false
	b.baseStylesheet, b.baseStyle, b.unhideableRules = "", "", nil
}

// Filters returns every filter of the bucket.
func (b *CosmeticBucket) Filters() (fs []*filters.CosmeticFilter) {
	fs = append(fs, b.genericRules.Filters()...)
	fs = append(fs, b.classesIndex.Filters()...)
	fs = append(fs, b.hostnameIndex.Filters()...)
	fs = append(fs, b.hrefsIndex.Filters()...)
	fs = append(fs, b.idsIndex.Filters()...)

	return append(fs, b.unhideIndex.Filters()...)
}

// Size returns the number of filters of the bucket.
func (b *CosmeticBucket) Size() (n int) {
	return b.genericRules.Size() +
		b.classesIndex.Size() +
		b.hostnameIndex.Size() +
		b.hrefsIndex.Size() +
		b.idsIndex.Size() +
		b.unhideIndex.Size()
}

// Serialize writes the bucket to v.
func (b *CosmeticBucket) Serialize(v *dataview.View) {
	b.genericRules.Serialize(v)
	b.classesIndex.Serialize(v)
	b.hostnameIndex.Serialize(v)
	b.hrefsIndex.Serialize(v)
	b.idsIndex.Serialize(v)
	b.unhideIndex.Serialize(v)
}

// SerializedSize returns the number of bytes Serialize writes.
func (b *CosmeticBucket) SerializedSize() (n int) {
	return b.genericRules.SerializedSize() +
		b.classesIndex.SerializedSize() +
		b.hostnameIndex.SerializedSize() +
		b.hrefsIndex.SerializedSize() +
		b.idsIndex.SerializedSize() +
		b.unhideIndex.SerializedSize()
}

// CosmeticsFilters returns the filters applying to the page described by q
// and the unhide filters that may cancel some of them.  Unhides are only
// looked up when at least one filter applies.
func (b *CosmeticBucket) CosmeticsFilters(q *CosmeticQuery) (fs, unhides []*filters.CosmeticFilter) {
	hostnameTokens := LookupTokens(q.Hostname, q.Domain)
	accept := func(f *filters.CosmeticFilter) bool {
		return f.Match(q.Hostname, q.Domain) && !q.Exclude.excluded(f.ID())
	}
	collect := func(f *filters.CosmeticFilter) (cont bool) {
		if accept(f) {
			fs = append(fs, f)
		}

		return true
	}

	if q.GetRulesFromHostname {
		b.hostnameIndex.IterMatchingFilters(hostnameTokens, func(f *filters.CosmeticFilter) (cont bool) {
			if q.AllowSpecificHides || f.IsScriptInject() {
				collect(f)
			}

			return true
		})
	}

	if q.AllowGenericHides && q.GetRulesFromHostname {
		for _, f := range b.unhideable(q.hidingStyle()) {
			collect(f)
		}
	}

	if q.AllowGenericHides && q.GetRulesFromDOM {
		if len(q.Classes) > 0 {
			b.classesIndex.IterMatchingFilters(tokens.HashStrings(nil, q.Classes), collect)
		}

		if len(q.IDs) > 0 {
			b.idsIndex.IterMatchingFilters(tokens.HashStrings(nil, q.IDs), collect)
		}

		if len(q.Hrefs) > 0 {
			var hrefTokens []uint32
			for _, href := range q.Hrefs {
				hrefTokens = tokens.AppendNoSkip(hrefTokens, href)
			}

			b.hrefsIndex.IterMatchingFilters(tokens.Compact(hrefTokens), collect)
		}
	}

	if len(fs) > 0 {
		b.unhideIndex.IterMatchingFilters(hostnameTokens, func(f *filters.CosmeticFilter) (cont bool) {
			if accept(f) {
				unhides = append(unhides, f)
			}

			return true
		})
	}

	return fs, unhides
}

// StylesheetOptions configure Stylesheet.
type StylesheetOptions struct {
	HidingStyle       string
	GetBaseRules      bool
	AllowGenericHides bool
}

// Stylesheet returns the stylesheet hiding fs, preceded by the base
// stylesheet if requested, and the selectors of the extended filters with
// their styles appended to the stylesheet.
func (b *CosmeticBucket) Stylesheet(
	fs []*filters.CosmeticFilter,
	extendedFilters []*filters.CosmeticFilter,
	opts StylesheetOptions,
) (stylesheet string, extended []ExtendedSelector) {
	hidingStyle := opts.HidingStyle
	if hidingStyle == "" {
		hidingStyle = filters.DefaultHidingStyle
	}

	sb := &strings.Builder{}
	if opts.GetBaseRules && opts.AllowGenericHides {
		sb.WriteString(b.base(hidingStyle))
	}

	if len(fs) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(StylesheetFromFilters(fs, hidingStyle))
	}

	if len(extendedFilters) == 0 {
		return sb.String(), nil
	}

	var styles []string
	attrs := map[string]string{}
	for _, f := range extendedFilters {
		sel := ExtendedSelector{
			Selector: f.Selector,
			Remove:   f.IsRemove(),
		}

		if !sel.Remove {
			sel.Attribute = f.StyleAttributeHash()
			style := f.GetStyle(hidingStyle)
			if _, ok := attrs[style]; !ok {
				styles = append(styles, style)
			}
			attrs[style] = sel.Attribute
		}

		extended = append(extended, sel)
	}

	for _, style := range styles {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("[" + attrs[style] + "] { " + style + " }")
	}

	return sb.String(), extended
}

// unhideable returns the generic rules that may be unhidden on some pages.
func (b *CosmeticBucket) unhideable(hidingStyle string) (fs []*filters.CosmeticFilter) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	b.populateCache(hidingStyle)

	return b.unhideableRules
}

// base returns the stylesheet of generic rules that no unhide rule refers to.
func (b *CosmeticBucket) base(hidingStyle string) (stylesheet string) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	b.populateCache(hidingStyle)

	return b.baseStylesheet
}

// populateCache splits generic rules into the ones that may be unhidden and
// the ones always applied, which form the base stylesheet.  b.cacheMu must
// be held.
func (b *CosmeticBucket) populateCache(hidingStyle string) {
	if b.cached && b.baseStyle == hidingStyle {
		return
	}

	unhidden := map[string]struct{}{}
	for _, f := range b.unhideIndex.Filters() {
		unhidden[f.Selector] = struct{}{}
	}

	var always []*filters.CosmeticFilter
	b.unhideableRules = nil
	for _, f := range b.genericRules.Filters() {
		_, isUnhidden := unhidden[f.Selector]
		if f.HasCustomStyle() || f.IsScriptInject() || f.HasHostnameConstraint() || isUnhidden {
			b.unhideableRules = append(b.unhideableRules, f)
		} else {
			always = append(always, f)
		}
	}

	b.baseStylesheet = StylesheetFromFilters(always, hidingStyle)
	b.baseStyle = hidingStyle
	b.cached = true
}

// StylesheetFromFilters returns a stylesheet hiding the selectors of fs.
// Filters with custom styles get one group of rules per style.
func StylesheetFromFilters(fs []*filters.CosmeticFilter, hidingStyle string) (stylesheet string) {
	custom := false
	selectors := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.HasCustomStyle() {
			custom = true

			break
		}
		selectors = append(selectors, f.Selector)
	}

	if !custom {
		return CreateStylesheet(selectors, hidingStyle)
	}

	var styles []string
	perStyle := map[string][]string{}
	for _, f := range fs {
		style := f.GetStyle(hidingStyle)
		if _, ok := perStyle[style]; !ok {
			styles = append(styles, style)
		}
		perStyle[style] = append(perStyle[style], f.Selector)
	}

	sheets := make([]string, 0, len(styles))
	for _, style := range styles {
		sheets = append(sheets, CreateStylesheet(perStyle[style], style))
	}

	return strings.Join(sheets, "\n\n")
}

// CreateStylesheet returns CSS applying style to selectors, with at most
// maxSelectorsPerRule selectors per rule.
func CreateStylesheet(selectors []string, style string) (stylesheet string) {
	if len(selectors) == 0 {
		return ""
	}

	rules := make([]string, 0, len(selectors)/maxSelectorsPerRule+1)
	for i := 0; i < len(selectors); i += maxSelectorsPerRule {
		end := min(i+maxSelectorsPerRule, len(selectors))
		rules = append(rules, strings.Join(selectors[i:end], ",\n")+" { "+style+" }")
	}

	return strings.Join(rules, "\n")
}
