// Package filters contains the parsed representations of network and
// cosmetic filters.
package filters

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/adblock-engine/internal/tokens"
)

// Values of the inline-script and inline-font options.
const (
	inlineScriptCSP = "script-src 'self' 'unsafe-eval' http: https: data: blob: mediastream: filesystem:"
	inlineFontCSP   = "font-src 'self' 'unsafe-eval' http: https: data: blob: mediastream: filesystem:"
)

// NetworkFilter is a parsed network filter.  It is immutable once built and
// safe for concurrent use.
type NetworkFilter struct {
	Domains   *Domains
	Denyallow *Domains

	regex     *regexp.Regexp
	regexOnce sync.Once

	// Filter is the lower-cased pattern, without anchors and with full
	// regular expressions kept between their slashes.
	Filter string

	// Hostname is the hostname of "||" filters, in punycode.
	Hostname string

	// OptionValue holds the CSP directives, the redirect resource (with an
	// optional ":priority" suffix) or the $replace expression, depending on
	// the kind of filter.
	OptionValue string

	// RawLine is the original line.  It is only kept in debug mode.
	RawLine string

	Mask NetworkMask
	id   uint32
}

// newNetworkFilter returns a filter with its id computed.
func newNetworkFilter(f *NetworkFilter) (res *NetworkFilter) {
	f.id = computeFilterID(f.Mask, f.Filter, f.Hostname, f.Domains, f.Denyallow, f.OptionValue)

	return f
}

// computeFilterID hashes the parts of a filter which define its behavior.
func computeFilterID(
	mask NetworkMask,
	filter string,
	hostname string,
	domains *Domains,
	denyallow *Domains,
	optionValue string,
) (id uint32) {
	h := tokens.HashSeed*tokens.HashMult ^ uint32(mask)
	if domains != nil {
		h = domains.UpdateID(h)
	}

	if denyallow != nil {
		h = denyallow.UpdateID(h)
	}

	for _, s := range []string{filter, hostname, optionValue} {
		for i := range len(s) {
			h = h*tokens.HashMult ^ uint32(s[i])
		}
	}

	return h
}

// ParseNetwork parses a network filter line.  It returns nil if the line is
// not a valid or supported network filter.  In debug mode the raw line and
// domain lists are kept for String.
func ParseNetwork(line string, debug bool) (f *NetworkFilter) {
	p := &networkParser{
		line:        line,
		end:         len(line),
		mask:        ThirdParty | FirstParty | FromHTTPS | FromHTTP,
		cptNegative: FromAny,
		debug:       debug,
	}

	if strings.HasPrefix(line, "@@") {
		p.start = 2
		p.mask |= IsException
	}

	if i := lastIndexOfUnescaped(line, '$'); i != -1 && (i+1 >= len(line) || line[i+1] != '/') {
		p.end = i
		for _, opt := range parseOptions(line, i+1, len(line)) {
			if !p.applyOption(opt) {
				return nil
			}
		}
	}

	switch {
	case p.cptPositive == 0:
		p.mask |= p.cptNegative
	case p.cptNegative == FromAny:
		p.mask |= p.cptPositive
	default:
		p.mask |= p.cptPositive & p.cptNegative
	}

	if !p.parsePattern() {
		return nil
	}

	f = &NetworkFilter{
		Mask:        p.mask,
		Filter:      p.filter,
		Hostname:    p.hostname,
		Domains:     p.domains,
		Denyallow:   p.denyallow,
		OptionValue: p.optionValue,
	}
	if debug {
		f.RawLine = line
	}

	return newNetworkFilter(f)
}

// networkParser holds the state of ParseNetwork.
type networkParser struct {
	domains     *Domains
	denyallow   *Domains
	line        string
	filter      string
	hostname    string
	optionValue string
	start       int
	end         int
	mask        NetworkMask
	cptPositive NetworkMask
	cptNegative NetworkMask
	debug       bool
}

// applyOption updates the parser state with opt.  It returns false if opt
// makes the filter invalid.
func (p *networkParser) applyOption(opt filterOption) (ok bool) {
	name, value := opt.name, opt.value
	negation := strings.HasPrefix(name, "~")
	if negation {
		name = name[1:]
		if _, isCpt := cptOptionBits[name]; !isCpt && !negatableOptions[name] {
			return false
		}
	}

	switch name {
	case "denyallow":
		p.denyallow = ParseDomains(strings.Split(value, "|"), p.debug)
	case "domain", "from":
		if strings.HasPrefix(value, "|") || strings.HasSuffix(value, "|") {
			return false
		}
		p.domains = ParseDomains(strings.Split(value, "|"), p.debug)
	case "badfilter":
		p.mask |= IsBadFilter
	case "important":
		p.mask |= IsImportant
	case "match-case":
		// All filters are case-insensitive.
	case "3p", "third-party":
		if negation {
			p.mask &^= ThirdParty
		} else {
			p.mask &^= FirstParty
		}
	case "1p", "first-party":
		if negation {
			p.mask &^= FirstParty
		} else {
			p.mask &^= ThirdParty
		}
	case "redirect", "redirect-rule":
		if !validRedirect(value) {
			return false
		}

		p.mask |= IsRedirect
		if name == "redirect-rule" {
			p.mask |= IsRedirectRule
		}
		p.optionValue = value
	case "csp":
		p.mask |= IsCSP
		if value != "" {
			p.optionValue = value
		}
	case "ehide", "elemhide":
		p.mask |= IsGenericHide | IsSpecificHide
	case "shide", "specifichide":
		p.mask |= IsSpecificHide
	case "ghide", "generichide":
		p.mask |= IsGenericHide
	case "inline-script":
		p.mask |= IsCSP
		p.optionValue = inlineScriptCSP
	case "inline-font":
		p.mask |= IsCSP
		p.optionValue = inlineFontCSP
	case "replace", "content":
		if value == "" {
			if !p.mask.Has(IsException) {
				return false
			}
		} else if parseReplaceModifier(value) == nil {
			return false
		}

		p.mask |= IsReplace
		p.optionValue = value
	case "all":
	default:
		return p.applyContentType(name, negation)
	}

	return true
}

// negatableOptions are the options accepting a "~" prefix.  Content types
// are handled separately.
var negatableOptions = map[string]bool{
	"denyallow":   true,
	"domain":      true,
	"from":        true,
	"badfilter":   true,
	"3p":          true,
	"third-party": true,
	"1p":          true,
	"first-party": true,
}

// applyContentType handles content-type options such as "script" or
// "~image".
func (p *networkParser) applyContentType(name string, negation bool) (ok bool) {
	bit, ok := cptOptionBits[name]
	if !ok {
		return false
	}

	if negation {
		p.cptNegative &^= bit
	} else {
		p.cptPositive |= bit
	}

	return true
}

// validRedirect reports whether value names a resource with an optional
// numeric ":priority" suffix.
func validRedirect(value string) (ok bool) {
	if value == "" {
		return false
	}

	i := strings.LastIndexByte(value, ':')
	switch {
	case i == -1:
		return true
	case i == 0, i == len(value)-1:
		return false
	default:
		_, err := strconv.ParseFloat(value[i+1:], 64)

		return err == nil
	}
}

// parsePattern classifies line[p.start:p.end].  It returns false for
// invalid regular expressions.
func (p *networkParser) parsePattern() (ok bool) {
	line := p.line
	if p.end-p.start >= 2 && line[p.start] == '/' && line[p.end-1] == '/' {
		p.filter = line[p.start:p.end]
		if _, err := compileRegex(p.filter, false, false, true); err != nil {
			return false
		}
		p.mask |= IsFullRegex

		return true
	}

	if p.end > 0 && p.end > p.start && line[p.end-1] == '|' {
		p.mask |= IsRightAnchor
		p.end--
	}

	if p.start < p.end && line[p.start] == '|' {
		if p.start < p.end-1 && line[p.start+1] == '|' {
			p.mask |= IsHostnameAnchor
			p.start += 2
		} else {
			p.mask |= IsLeftAnchor
			p.start++
		}
	}

	if p.mask.Has(IsHostnameAnchor) {
		p.splitHostname()
	}

	if p.end > p.start && line[p.end-1] == '*' {
		p.end--
	}

	if !p.mask.Has(IsHostnameAnchor) && p.end > p.start && line[p.start] == '*' {
		p.mask &^= IsLeftAnchor
		p.start++
	}

	if p.mask.Has(IsLeftAnchor) {
		p.applyProtocol()
	}

	if p.end > p.start {
		p.filter = strings.ToLower(line[p.start:p.end])
		p.mask = p.mask.set(IsUnicode, hasUnicode(p.filter))
		if !p.mask.Has(IsRegex) {
			p.mask = p.mask.set(IsRegex, isRegexPattern(p.filter))
		}
	}

	if p.hostname != "" {
		p.hostname = strings.ToLower(p.hostname)
		if hasUnicode(p.hostname) {
			p.mask |= IsUnicode
			p.hostname = toASCII(p.hostname)
		}
	}

	return true
}

func isHostnameByte(c byte) (ok bool) {
	return (c >= '0' && c <= '9') || isAlpha(c) || c == '_' || c == '-' || c == '.' || c >= 0x80
}

// splitHostname extracts the hostname of a "||" filter and sets the anchor
// bits implied by the separator following it.
func (p *networkParser) splitHostname() {
	line := p.line
	sep := p.start
	for sep < p.end && isHostnameByte(line[sep]) {
		sep++
	}

	p.hostname = line[p.start:sep]
	p.start = sep
	if sep == p.end {
		return
	}

	switch line[sep] {
	case '^':
		if p.end-p.start == 1 {
			p.start = p.end
			p.mask |= IsRightAnchor
		} else {
			p.mask |= IsRegex | IsLeftAnchor
		}
	case '*':
		p.mask |= IsRegex
	default:
		p.mask |= IsLeftAnchor
	}
}

// applyProtocol turns a bare protocol pattern such as "|https://" into
// protocol bits.
func (p *networkParser) applyProtocol() {
	switch p.line[p.start:p.end] {
	case "ws://":
		p.mask |= FromWebsocket
		p.mask &^= IsLeftAnchor | FromHTTP | FromHTTPS
	case "http://":
		p.mask |= FromHTTP
		p.mask &^= FromHTTPS | IsLeftAnchor
	case "https://":
		p.mask |= FromHTTPS
		p.mask &^= FromHTTP | IsLeftAnchor
	case "http*://":
		p.mask |= FromHTTP | FromHTTPS
		p.mask &^= IsLeftAnchor
	default:
		return
	}

	p.start = p.end
}
