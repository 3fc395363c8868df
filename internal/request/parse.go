package request

import (
	"net"
	"strings"

	"github.com/bluele/gcache"
	"golang.org/x/net/publicsuffix"
)

// HostnameParser extracts the hostname and registrable domain of a URL or of
// a bare hostname.  Both results are empty when they cannot be determined.
type HostnameParser interface {
	Parse(rawURL string) (hostname, domain string)
}

// hostnameResult is the value stored in the parser cache.
type hostnameResult struct {
	hostname string
	domain   string
}

// Parser is a HostnameParser backed by the public suffix list.  It is safe
// for concurrent use.
type Parser struct {
	// cache maps inputs to their hostnameResult.  It is nil when caching is
	// disabled.
	cache gcache.Cache
}

// type check
var _ HostnameParser = (*Parser)(nil)

// NewParser returns a Parser caching up to cacheSize results.  A cacheSize of
// zero disables caching.
func NewParser(cacheSize int) (p *Parser) {
	p = &Parser{}
	if cacheSize > 0 {
		p.cache = gcache.New(cacheSize).LRU().Build()
	}

	return p
}

// Parse implements the HostnameParser interface for *Parser.
func (p *Parser) Parse(rawURL string) (hostname, domain string) {
	if p.cache != nil {
		if v, err := p.cache.Get(rawURL); err == nil {
			res := v.(hostnameResult)

			return res.hostname, res.domain
		}
	}

	hostname = ExtractHostname(rawURL)
	domain = DomainOf(hostname)

	if p.cache != nil {
		_ = p.cache.Set(rawURL, hostnameResult{hostname: hostname, domain: domain})
	}

	return hostname, domain
}

// ExtractHostname returns the lower-cased hostname of rawURL.  rawURL may
// also be a bare hostname.
func ExtractHostname(rawURL string) (hostname string) {
	s := rawURL
	if i := strings.Index(s, "://"); i != -1 {
		s = s[i+3:]
	} else if strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "about:") {
		return ""
	}

	if i := strings.IndexAny(s, "/?#"); i != -1 {
		s = s[:i]
	}

	if i := strings.LastIndexByte(s, '@'); i != -1 {
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end != -1 {
			return strings.ToLower(s[1:end])
		}
	} else if i := strings.LastIndexByte(s, ':'); i != -1 {
		s = s[:i]
	}

	return strings.TrimSuffix(strings.ToLower(s), ".")
}

// DomainOf returns the registrable domain of hostname, or an empty string for
// IP addresses and public suffixes.
func DomainOf(hostname string) (domain string) {
	if hostname == "" || net.ParseIP(hostname) != nil {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return ""
	}

	return domain
}
