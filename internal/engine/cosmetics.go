package engine

import (
	"github.com/bnema/adblock-engine/internal/bucket"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/request"
)

// CosmeticsQuery describes a page, or frame, cosmetics are requested for.
// Use NewCosmeticsQuery to get one with every kind of rule enabled.
type CosmeticsQuery struct {
	URL      string
	Hostname string
	Domain   string

	// HidingStyle is the style of filters without a custom one.  Empty means
	// filters.DefaultHidingStyle.
	HidingStyle string

	// Classes, IDs and Hrefs are found in the DOM of the page.
	Classes []string
	IDs     []string
	Hrefs   []string

	GetBaseRules         bool
	GetInjectionRules    bool
	GetExtendedRules     bool
	GetRulesFromDOM      bool
	GetRulesFromHostname bool

	// InjectPureHasSafely makes selectors using only :has() part of the
	// stylesheet instead of the extended selectors.
	InjectPureHasSafely bool
}

// NewCosmeticsQuery returns a query for the page at rawURL requesting every
// kind of rule.
func NewCosmeticsQuery(rawURL, hostname, domain string) (q *CosmeticsQuery) {
	return &CosmeticsQuery{
		URL:                  rawURL,
		Hostname:             hostname,
		Domain:               domain,
		GetBaseRules:         true,
		GetInjectionRules:    true,
		GetExtendedRules:     true,
		GetRulesFromDOM:      true,
		GetRulesFromHostname: true,
	}
}

// CosmeticsResult is what to inject into a page.
type CosmeticsResult struct {
	// Styles is the stylesheet to inject.
	Styles string

	// Scripts are the scriptlets to inject, arguments substituted.
	Scripts []string

	// Extended are the selectors to apply from a content script.
	Extended []bucket.ExtendedSelector

	// Active is false if cosmetic filtering is disabled.
	Active bool
}

// shouldApplyHideException returns true if the $generichide or
// $specifichide filters in fs disable hiding.  Important filters win over
// blocking ones, which win over exceptions.
func shouldApplyHideException(fs []*filters.NetworkFilter) (ok bool) {
	var best *filters.NetworkFilter
	score := 0
	for _, f := range fs {
		s := 2
		if f.IsException() {
			s = 1
		}

		if f.IsImportant() {
			s |= 4
		}

		if s >= score {
			score = s
			best = f
		}
	}

	return best != nil && best.IsException()
}

// hidesAllowed returns whether generic and specific hiding rules apply to the
// page described by q, according to the hide exceptions of e.
func (e *Engine) hidesAllowed(q *CosmeticsQuery) (generic, specific bool) {
	r := request.New(request.Details{
		URL:      q.URL,
		Hostname: q.Hostname,
		Domain:   q.Domain,
		Type:     request.TypeMainFrame,
	}, e.hostnameParser)

	var generics, specifics []*filters.NetworkFilter
	for _, f := range e.hideExceptions.MatchAll(r, e.isExcluded) {
		switch {
		case f.IsElemHide():
			return false, false
		case f.IsSpecificHide():
			specifics = append(specifics, f)
		case f.IsGenericHide():
			generics = append(generics, f)
		}
	}

	return !shouldApplyHideException(generics), !shouldApplyHideException(specifics)
}

// GetCosmeticsFilters returns the styles, scripts and extended selectors to
// inject into the page described by q.
func (e *Engine) GetCosmeticsFilters(q *CosmeticsQuery) (res *CosmeticsResult) {
	if !e.conf.LoadCosmeticFilters {
		return &CosmeticsResult{}
	}

	allowGeneric, allowSpecific := e.hidesAllowed(q)
	fs, unhides := e.cosmetics.CosmeticsFilters(&bucket.CosmeticQuery{
		Exclude:              e.isExcluded,
		Hostname:             q.Hostname,
		Domain:               q.Domain,
		HidingStyle:          q.HidingStyle,
		Classes:              q.Classes,
		IDs:                  q.IDs,
		Hrefs:                q.Hrefs,
		AllowGenericHides:    allowGeneric,
		AllowSpecificHides:   allowSpecific,
		GetRulesFromDOM:      q.GetRulesFromDOM,
		GetRulesFromHostname: q.GetRulesFromHostname,
	})

	canonical := e.resources.CanonicalName
	injectionsDisabled := false
	unhidden := make(map[string]*filters.CosmeticFilter, len(unhides))
	for _, u := range unhides {
		if u.IsScriptInject() && u.IsUnhide() && u.Selector == "" {
			injectionsDisabled = true
		}

		unhidden[u.NormalizedSelector(canonical)] = u
	}

	var injections, styles, extended, pureHas []*filters.CosmeticFilter
	for _, f := range fs {
		if _, ok := unhidden[f.NormalizedSelector(canonical)]; ok {
			continue
		}

		applied := false
		switch {
		case f.IsScriptInject():
			if q.GetInjectionRules && !injectionsDisabled {
				injections = append(injections, f)
				applied = true
			}
		case f.IsExtended():
			if q.InjectPureHasSafely && f.IsPureHasSelector() {
				pureHas = append(pureHas, f)
				applied = true
			}

			if e.conf.LoadExtendedSelectors && q.GetExtendedRules {
				extended = append(extended, f)
				applied = true
			}
		default:
			styles = append(styles, f)
			applied = true
		}

		if applied {
			e.events.emit(EventFilterMatched, func() (ev *Event) {
				return &Event{URL: q.URL, Filter: f, FilterType: models.FilterTypeCosmetic}
			})
		}
	}

	res = &CosmeticsResult{Active: true}
	for _, f := range injections {
		script, ok := f.Script(e.resources)
		if !ok {
			continue
		}

		e.events.emit(EventScriptInjected, func() (ev *Event) {
			return &Event{URL: q.URL, Content: script}
		})
		res.Scripts = append(res.Scripts, script)
	}

	res.Styles, res.Extended = e.cosmetics.Stylesheet(styles, extended, bucket.StylesheetOptions{
		HidingStyle:       q.HidingStyle,
		GetBaseRules:      q.GetBaseRules,
		AllowGenericHides: allowGeneric,
	})

	hidingStyle := q.HidingStyle
	if hidingStyle == "" {
		hidingStyle = filters.DefaultHidingStyle
	}

	for _, f := range pureHas {
		res.Styles += "\n\n" + bucket.CreateStylesheet([]string{f.Selector}, hidingStyle)
	}

	if res.Styles != "" {
		e.events.emit(EventStyleInjected, func() (ev *Event) {
			return &Event{URL: q.URL, Content: res.Styles}
		})
	}

	return res
}

// GetHTMLFilters returns the rewrites to apply to the HTML document
// requested by r.
func (e *Engine) GetHTMLFilters(r *request.Request) (sels []filters.HTMLSelector) {
	if !e.conf.EnableHTMLFiltering {
		return nil
	}

	hf := e.htmlFilters.HTMLFilters(r, e.isExcluded)

	if len(hf.Cosmetic) > 0 {
		unhidden := make(map[string]*filters.CosmeticFilter, len(hf.Unhides))
		for _, u := range hf.Unhides {
			unhidden[u.Selector] = u
		}

		for _, f := range hf.Cosmetic {
			sel, ok := f.HTMLSelector()
			if !ok {
				continue
			}

			u := unhidden[f.Selector]
			if u == nil {
				sels = append(sels, sel)
			}

			e.events.emit(EventFilterMatched, func() (ev *Event) {
				return &Event{
					Request:    r,
					Filter:     f,
					Exception:  cosmeticFilter(u),
					FilterType: models.FilterTypeCosmetic,
				}
			})
		}
	}

	if len(hf.Network) > 0 {
		var disableAll *filters.NetworkFilter
		exceptions := make(map[string]*filters.NetworkFilter, len(hf.Exceptions))
		for _, ex := range hf.Exceptions {
			if ex.OptionValue == "" {
				disableAll = ex

				break
			}

			exceptions[ex.OptionValue] = ex
		}

		for _, f := range hf.Network {
			mod := f.HTMLModifier()
			if mod == nil {
				continue
			}

			ex := disableAll
			if ex == nil {
				ex = exceptions[f.OptionValue]
			}

			e.events.emit(EventFilterMatched, func() (ev *Event) {
				return &Event{
					Request:    r,
					Filter:     f,
					Exception:  networkFilter(ex),
					FilterType: models.FilterTypeNetwork,
				}
			})

			if ex == nil {
				sels = append(sels, filters.HTMLSelector{Kind: filters.HTMLSelectorReplace, Replace: mod})
			}
		}
	}

	if len(sels) > 0 {
		e.events.emit(EventHTMLFiltered, func() (ev *Event) {
			return &Event{Request: r, URL: r.URL, HTMLSelectors: sels}
		})
	}

	return sels
}
