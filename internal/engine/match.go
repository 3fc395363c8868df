package engine

import (
	"cmp"
	"slices"
	"strings"

	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/metadata"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/resources"
)

// redirectNone is the resource name of redirect exceptions cancelling every
// redirection.
const redirectNone = "none"

// MatchResult is the decision for a network request.
type MatchResult struct {
	// Filter is the blocking or redirecting filter matching the request.
	Filter *filters.NetworkFilter

	// Exception is the exception cancelling Filter, if any.
	Exception *filters.NetworkFilter

	// Redirect is the resource the request is redirected to.
	Redirect *resources.Redirect

	// Metadata describes the trackers matched, when requested.
	Metadata []*metadata.PatternInfo

	// Match is true if the request must be blocked or redirected.
	Match bool
}

// Match returns the decision for r.  If withMetadata is true and e has a
// tracker database, the matched trackers are described as well.
func (e *Engine) Match(r *request.Request, withMetadata bool) (res *MatchResult) {
	res = &MatchResult{}
	if !e.conf.LoadNetworkFilters {
		return res
	}

	var redirectNoneFilter *filters.NetworkFilter
	if r.IsSupported {
		redirectNoneFilter = e.matchFilters(r, res)
	}

	if res.Filter != nil && res.Exception == nil && res.Filter.IsRedirect() {
		if redirectNoneFilter != nil {
			res.Exception = redirectNoneFilter
		} else {
			red := e.resources.GetResource(res.Filter.RedirectResource())
			res.Redirect = &red
		}
	}

	res.Match = res.Exception == nil && res.Filter != nil

	e.emitMatch(r, res)

	if withMetadata && e.metadata != nil && res.Filter != nil {
		res.Metadata = e.metadata.FromFilter(res.Filter)
	}

	return res
}

// matchFilters sets the filter and exception of res.  Important filters are
// not subject to exceptions.  It returns the $redirect=none filter matching
// r, if any.
func (e *Engine) matchFilters(r *request.Request, res *MatchResult) (redirectNoneFilter *filters.NetworkFilter) {
	exclude := e.isExcluded
	res.Filter = e.importants.Match(r, exclude)
	if res.Filter != nil {
		return nil
	}

	redirects := e.redirects.MatchAll(r, exclude)
	slices.SortStableFunc(redirects, func(a, b *filters.NetworkFilter) int {
		return cmp.Compare(b.RedirectPriority(), a.RedirectPriority())
	})

	var redirectRule *filters.NetworkFilter
	for _, f := range redirects {
		switch {
		case f.RedirectResource() == redirectNone:
			redirectNoneFilter = f
		case f.IsRedirectRule():
			if redirectRule == nil {
				redirectRule = f
			}
		case res.Filter == nil:
			res.Filter = f
		}
	}

	if res.Filter == nil {
		res.Filter = e.filters.Match(r, exclude)
		if redirectRule != nil && res.Filter != nil {
			res.Filter = redirectRule
		}
	}

	if res.Filter != nil {
		res.Exception = e.exceptions.Match(r, exclude)
	}

	return redirectNoneFilter
}

// emitMatch emits the events describing res.
func (e *Engine) emitMatch(r *request.Request, res *MatchResult) {
	if res.Filter != nil {
		e.events.emit(EventFilterMatched, func() (ev *Event) {
			return &Event{
				Request:    r,
				Filter:     res.Filter,
				Exception:  networkFilter(res.Exception),
				FilterType: models.FilterTypeNetwork,
			}
		})
	}

	kind := EventRequestAllowed
	switch {
	case res.Exception != nil:
		kind = EventRequestWhitelisted
	case res.Redirect != nil:
		kind = EventRequestRedirected
	case res.Filter != nil:
		kind = EventRequestBlocked
	}

	e.events.emit(kind, func() (ev *Event) {
		return &Event{Request: r, Result: res}
	})
}

// MatchAll returns every network filter matching r, deduplicated by id.
func (e *Engine) MatchAll(r *request.Request) (fs []*filters.NetworkFilter) {
	if !r.IsSupported {
		return nil
	}

	exclude := e.isExcluded
	seen := map[uint32]struct{}{}
	add := func(matches []*filters.NetworkFilter) {
		for _, f := range matches {
			if _, ok := seen[f.ID()]; ok {
				continue
			}

			seen[f.ID()] = struct{}{}
			fs = append(fs, f)
		}
	}

	add(e.importants.MatchAll(r, exclude))
	add(e.filters.MatchAll(r, exclude))
	add(e.exceptions.MatchAll(r, exclude))
	add(e.csp.MatchAll(r, exclude))
	add(e.hideExceptions.MatchAll(r, exclude))
	add(e.redirects.MatchAll(r, exclude))

	return fs
}

// GetCSPDirectives returns the Content-Security-Policy directives to inject
// into the main frame document requested by r, joined by "; ".
func (e *Engine) GetCSPDirectives(r *request.Request) (directives string) {
	if !e.conf.LoadNetworkFilters || !r.IsSupported || !r.IsMainFrame() {
		return ""
	}

	matches := e.csp.MatchAll(r, e.isExcluded)

	var enabled []*filters.NetworkFilter
	disabled := map[string]struct{}{}
	for _, f := range matches {
		if !f.IsException() {
			enabled = append(enabled, f)

			continue
		}

		if f.OptionValue == "" {
			e.events.emit(EventFilterMatched, func() (ev *Event) {
				return &Event{Request: r, Exception: f, FilterType: models.FilterTypeNetwork}
			})

			return ""
		}

		disabled[f.OptionValue] = struct{}{}
	}

	var csps []string
	seen := map[string]struct{}{}
	for _, f := range enabled {
		if _, ok := disabled[f.OptionValue]; ok {
			continue
		}

		if _, ok := seen[f.OptionValue]; !ok {
			seen[f.OptionValue] = struct{}{}
			csps = append(csps, f.OptionValue)
		}

		e.events.emit(EventFilterMatched, func() (ev *Event) {
			return &Event{Request: r, Filter: f, FilterType: models.FilterTypeNetwork}
		})
	}

	directives = strings.Join(csps, "; ")
	if directives != "" {
		e.events.emit(EventCSPInjected, func() (ev *Event) {
			return &Event{Request: r, Content: directives}
		})
	}

	return directives
}

// GetPatternMetadata returns the trackers the filters matching r belong to.
// If withDomains is true, trackers known by the hostname of r are included.
func (e *Engine) GetPatternMetadata(r *request.Request, withDomains bool) (infos []*metadata.PatternInfo) {
	if e.metadata == nil {
		return nil
	}

	seen := map[string]struct{}{}
	add := func(found []*metadata.PatternInfo) {
		for _, info := range found {
			if _, ok := seen[info.Pattern.Key]; ok {
				continue
			}

			seen[info.Pattern.Key] = struct{}{}
			infos = append(infos, info)
		}
	}

	for _, f := range e.MatchAll(r) {
		add(e.metadata.FromFilter(f))
	}

	if withDomains {
		add(e.metadata.FromDomain(r.Hostname))
	}

	return infos
}
