package filters

import (
	"strings"

	"github.com/bnema/adblock-engine/internal/request"
)

// Match reports whether f applies to r.
func (f *NetworkFilter) Match(r *request.Request) (ok bool) {
	return f.checkOptions(r) && f.checkPattern(r)
}

// checkOptions matches the type, protocol, party and domain constraints.
func (f *NetworkFilter) checkOptions(r *request.Request) (ok bool) {
	switch {
	case !f.IsCptAllowed(r.Type),
		r.IsHTTPS && !f.FromHTTPS(),
		r.IsHTTP && !f.FromHTTP(),
		!f.FirstParty() && r.IsFirstParty,
		!f.ThirdParty() && r.IsThirdParty:
		return false
	case f.Domains != nil && !f.Domains.Match(r.SourceHostnameHashes, r.SourceEntityHashes):
		return false
	case f.Denyallow != nil && f.Denyallow.Match(r.HostnameHashes(), r.EntityHashes()):
		return false
	default:
		return true
	}
}

// checkPattern matches the hostname and pattern of f against the URL.
func (f *NetworkFilter) checkPattern(r *request.Request) (ok bool) {
	if f.IsHostnameAnchor() {
		return f.checkHostnamePattern(r)
	}

	url, pattern := r.URL, f.Filter
	switch {
	case f.IsRegex():
		return f.Regex().MatchString(url)
	case f.IsLeftAnchor() && f.IsRightAnchor():
		return url == pattern
	case f.IsLeftAnchor():
		return strings.HasPrefix(url, pattern)
	case f.IsRightAnchor():
		return strings.HasSuffix(url, pattern)
	default:
		return strings.Contains(url, pattern)
	}
}

// checkHostnamePattern matches "||" filters: the hostname must anchor the
// request hostname and the pattern is matched against the rest of the URL.
func (f *NetworkFilter) checkHostnamePattern(r *request.Request) (ok bool) {
	pattern := f.Filter
	if !IsAnchoredByHostname(f.Hostname, r.Hostname, strings.HasPrefix(pattern, "*")) {
		return false
	}

	after := 0
	if i := strings.Index(r.URL, f.Hostname); i != -1 {
		after = i + len(f.Hostname)
	}
	rest := r.URL[after:]

	switch {
	case f.IsRegex():
		return f.Regex().MatchString(rest)
	case f.IsLeftAnchor() && f.IsRightAnchor():
		return rest == pattern
	case f.IsRightAnchor() && pattern == "":
		return strings.HasSuffix(r.Hostname, f.Hostname)
	case f.IsRightAnchor():
		return strings.HasSuffix(r.URL, pattern)
	case f.IsLeftAnchor():
		return strings.HasPrefix(rest, pattern)
	default:
		return strings.Contains(rest, pattern)
	}
}

// IsAnchoredByHostname reports whether the "||" hostname of a filter anchors
// hostname.  Partial labels only match when the filter hostname starts or
// ends with a dot, or is followed by a wildcard.
func IsAnchoredByHostname(filterHostname, hostname string, followedByWildcard bool) (ok bool) {
	switch {
	case filterHostname == "":
		return true
	case len(filterHostname) > len(hostname):
		return false
	case len(filterHostname) == len(hostname):
		return filterHostname == hostname
	}

	i := strings.Index(hostname, filterHostname)
	if i == -1 {
		return false
	}

	end := i + len(filterHostname)
	leftOK := i == 0 || hostname[i-1] == '.' || filterHostname[0] == '.'
	rightOK := end == len(hostname) ||
		followedByWildcard ||
		hostname[end] == '.' ||
		filterHostname[len(filterHostname)-1] == '.'

	return leftOK && rightOK
}
