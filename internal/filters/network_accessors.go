package filters

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/tokens"
)

// ID returns the content hash identifying f.
func (f *NetworkFilter) ID() (id uint32) { return f.id }

// IDWithoutBadFilter returns the id f would have without $badfilter, which
// is the id of the filter it cancels.
func (f *NetworkFilter) IDWithoutBadFilter() (id uint32) {
	return computeFilterID(f.Mask&^IsBadFilter, f.Filter, f.Hostname, f.Domains, f.Denyallow, f.OptionValue)
}

// CptMask returns the content-type bits of f.
func (f *NetworkFilter) CptMask() (m NetworkMask) { return f.Mask & FromAny }

// FromAny reports whether f applies to all content types.
func (f *NetworkFilter) FromAny() (ok bool) { return f.CptMask() == FromAny }

// IsException reports whether f is an "@@" filter.
func (f *NetworkFilter) IsException() (ok bool) { return f.Mask.Has(IsException) }

// IsImportant reports whether f has the $important option.
func (f *NetworkFilter) IsImportant() (ok bool) { return f.Mask.Has(IsImportant) }

// IsBadFilter reports whether f has the $badfilter option.
func (f *NetworkFilter) IsBadFilter() (ok bool) { return f.Mask.Has(IsBadFilter) }

// IsCSP reports whether f injects CSP directives.
func (f *NetworkFilter) IsCSP() (ok bool) { return f.Mask.Has(IsCSP) }

// IsRedirect reports whether f redirects requests.
func (f *NetworkFilter) IsRedirect() (ok bool) { return f.Mask.Has(IsRedirect) }

// IsRedirectRule reports whether f only redirects requests otherwise
// blocked.
func (f *NetworkFilter) IsRedirectRule() (ok bool) { return f.Mask.Has(IsRedirectRule) }

// IsReplace reports whether f has the $replace option.
func (f *NetworkFilter) IsReplace() (ok bool) { return f.Mask.Has(IsReplace) }

// IsHTMLFilteringRule reports whether f modifies response bodies.
func (f *NetworkFilter) IsHTMLFilteringRule() (ok bool) { return f.IsReplace() }

// IsGenericHide reports whether f disables generic cosmetic filters.
func (f *NetworkFilter) IsGenericHide() (ok bool) { return f.Mask.Has(IsGenericHide) }

// IsSpecificHide reports whether f disables hostname-specific cosmetic
// filters.
func (f *NetworkFilter) IsSpecificHide() (ok bool) { return f.Mask.Has(IsSpecificHide) }

// IsElemHide reports whether f disables all cosmetic filters.  It is set by
// $elemhide as well as by combining $generichide and $specifichide.
func (f *NetworkFilter) IsElemHide() (ok bool) {
	return f.Mask.Has(IsGenericHide | IsSpecificHide)
}

// IsHostnameAnchor reports whether f starts with "||".
func (f *NetworkFilter) IsHostnameAnchor() (ok bool) { return f.Mask.Has(IsHostnameAnchor) }

// IsLeftAnchor reports whether the pattern of f must start the URL, or the
// part following the hostname for "||" filters.
func (f *NetworkFilter) IsLeftAnchor() (ok bool) { return f.Mask.Has(IsLeftAnchor) }

// IsRightAnchor reports whether the pattern of f must end the URL.
func (f *NetworkFilter) IsRightAnchor() (ok bool) { return f.Mask.Has(IsRightAnchor) }

// IsFullRegex reports whether f is a "/regex/" filter.
func (f *NetworkFilter) IsFullRegex() (ok bool) { return f.Mask.Has(IsFullRegex) }

// IsRegex reports whether f is matched with a regular expression.
func (f *NetworkFilter) IsRegex() (ok bool) { return f.Mask&(IsRegex|IsFullRegex) != 0 }

// IsUnicode reports whether f had non-ASCII characters.
func (f *NetworkFilter) IsUnicode() (ok bool) { return f.Mask.Has(IsUnicode) }

// FirstParty reports whether f applies to first-party requests.
func (f *NetworkFilter) FirstParty() (ok bool) { return f.Mask.Has(FirstParty) }

// ThirdParty reports whether f applies to third-party requests.
func (f *NetworkFilter) ThirdParty() (ok bool) { return f.Mask.Has(ThirdParty) }

// FromHTTP reports whether f applies to http requests.
func (f *NetworkFilter) FromHTTP() (ok bool) { return f.Mask.Has(FromHTTP) }

// FromHTTPS reports whether f applies to https requests.
func (f *NetworkFilter) FromHTTPS() (ok bool) { return f.Mask.Has(FromHTTPS) }

// IsCptAllowed reports whether f applies to requests of type t.  Unknown
// types are only matched by filters without content-type options.
func (f *NetworkFilter) IsCptAllowed(t request.Type) (ok bool) {
	if bit, known := requestTypeMasks[t]; known {
		return f.Mask.Has(bit)
	}

	return f.FromAny()
}

// CSP returns the directives of a CSP filter.
func (f *NetworkFilter) CSP() (csp string, ok bool) {
	if !f.IsCSP() {
		return "", false
	}

	return f.OptionValue, true
}

// Redirect is the target of a redirect filter.
type Redirect struct {
	Resource string
	Priority float64
}

// Redirect returns the redirection of f.
func (f *NetworkFilter) Redirect() (r Redirect, ok bool) {
	if !f.IsRedirect() {
		return Redirect{}, false
	}

	return Redirect{Resource: f.RedirectResource(), Priority: f.RedirectPriority()}, true
}

// RedirectResource returns the resource name of a redirect filter, without
// its priority.
func (f *NetworkFilter) RedirectResource() (name string) {
	i := strings.LastIndexByte(f.OptionValue, ':')
	if i == -1 {
		return f.OptionValue
	}

	return f.OptionValue[:i]
}

// RedirectPriority returns the priority of a redirect filter, zero when it
// has none.
func (f *NetworkFilter) RedirectPriority() (prio float64) {
	i := strings.LastIndexByte(f.OptionValue, ':')
	if i == -1 {
		return 0
	}

	prio, err := strconv.ParseFloat(f.OptionValue[i+1:], 64)
	if err != nil {
		return 0
	}

	return prio
}

// HTMLModifier returns the compiled $replace option of f.  It returns nil for
// exceptions disabling all modifiers.
func (f *NetworkFilter) HTMLModifier() (m *ReplaceModifier) {
	if !f.IsReplace() || f.OptionValue == "" {
		return nil
	}

	return parseReplaceModifier(f.OptionValue)
}

// Regex returns the regular expression of f, compiled on first use.
// Filters matched without regular expressions get one matching everything.
func (f *NetworkFilter) Regex() (re *regexp.Regexp) {
	f.regexOnce.Do(func() {
		f.regex = matchAll
		if f.Filter == "" || !f.IsRegex() {
			return
		}

		compiled, err := compileRegex(f.Filter, f.IsLeftAnchor(), f.IsRightAnchor(), f.IsFullRegex())
		if err == nil {
			f.regex = compiled
		}
	})

	return f.regex
}

var (
	httpHash  = tokens.FastHash("http")
	httpsHash = tokens.FastHash("https")
)

// Tokens returns the index keys of f.  Each inner slice is an alternative:
// f can be found by a request containing all tokens of any of them.
func (f *NetworkFilter) Tokens() (alternatives [][]uint32) {
	var toks []uint32
	if f.Domains != nil && f.Domains.IsPositiveHostnamesOnly() && len(f.Domains.Hostnames) == 1 {
		toks = append(toks, f.Domains.Hostnames[0])
	}

	if !f.IsFullRegex() {
		if f.Filter != "" {
			toks = tokens.AppendWithWildcards(toks, f.Filter, !f.IsLeftAnchor(), !f.IsRightAnchor())
		}

		if f.Hostname != "" {
			toks = tokens.Append(toks, f.Hostname, false, strings.HasPrefix(f.Filter, "*"))
		}
	} else if f.Filter != "" {
		toks = tokens.AppendRegex(toks, f.Filter[1:len(f.Filter)-1])
	}

	if len(toks) == 0 && f.Domains != nil && f.Domains.IsPositiveHostnamesOnly() {
		for _, h := range f.Domains.Hostnames {
			alternatives = append(alternatives, []uint32{h})
		}

		return alternatives
	}

	if len(toks) == 0 && !f.FromAny() {
		for _, opt := range cptOptions {
			if f.Mask.Has(opt.bit) {
				alternatives = append(alternatives, []uint32{request.TypeToken(opt.typ)})
			}
		}

		if len(alternatives) > 0 {
			return alternatives
		}
	}

	if f.FromHTTP() && !f.FromHTTPS() {
		toks = append(toks, httpHash)
	} else if f.FromHTTPS() && !f.FromHTTP() {
		toks = append(toks, httpsHash)
	}

	return [][]uint32{toks}
}
