// Package request contains the normalized description of a network request
// that filters are matched against.
package request

import (
	"strings"

	"github.com/bnema/adblock-engine/internal/tokens"
)

// Details are the raw attributes of a request as reported by the browser.
// Hostname and Domain, as well as their source counterparts, are computed from
// the URLs when left empty.
type Details struct {
	RequestID      string
	TabID          int
	URL            string
	Hostname       string
	Domain         string
	SourceURL      string
	SourceHostname string
	SourceDomain   string
	Type           Type
}

// Request is a normalized request.  Hashes and tokens are computed on first
// use, so a Request must not be shared between goroutines.
type Request struct {
	ID    string
	TabID int
	Type  Type

	// URL is lower-cased.  For data: URLs only the part before the first
	// comma is kept.
	URL            string
	Hostname       string
	Domain         string
	SourceHostname string
	SourceDomain   string

	SourceHostnameHashes []uint32
	SourceEntityHashes   []uint32

	tokens         []uint32
	hostnameHashes []uint32
	entityHashes   []uint32

	IsThirdParty bool
	IsFirstParty bool
	IsHTTP       bool
	IsHTTPS      bool
	IsSupported  bool

	hasTokens         bool
	hasHostnameHashes bool
	hasEntityHashes   bool
}

// New normalizes d.  p is used to fill in missing hostnames and domains, a
// nil p parses without caching.
func New(d Details, p HostnameParser) (r *Request) {
	if p == nil {
		p = &Parser{}
	}

	url := strings.ToLower(d.URL)
	hostname, domain := d.Hostname, d.Domain
	if hostname == "" || domain == "" {
		h, dom := p.Parse(url)
		hostname = firstNonEmpty(hostname, h)
		domain = firstNonEmpty(domain, dom)
	}

	srcHostname, srcDomain := d.SourceHostname, d.SourceDomain
	if srcHostname == "" || srcDomain == "" {
		h, dom := p.Parse(firstNonEmpty(srcHostname, srcDomain, strings.ToLower(d.SourceURL)))
		srcHostname = firstNonEmpty(srcHostname, h)
		srcDomain = firstNonEmpty(srcDomain, dom, srcHostname)
	}

	typ := d.Type
	if typ == "" {
		typ = TypeMainFrame
	}

	r = &Request{
		ID:             d.RequestID,
		TabID:          d.TabID,
		Type:           typ,
		URL:            url,
		Hostname:       hostname,
		Domain:         domain,
		SourceHostname: srcHostname,
		SourceDomain:   srcDomain,
		IsSupported:    true,
	}

	if srcHostname != "" {
		r.SourceHostnameHashes = HostnameHashes(srcHostname, srcDomain)
		r.SourceEntityHashes = EntityHashes(srcHostname, srcDomain)
	}

	r.IsThirdParty = isThirdParty(hostname, domain, srcHostname, srcDomain, typ)
	r.IsFirstParty = !r.IsThirdParty
	r.setProtocol()

	return r
}

// setProtocol classifies the scheme of r.URL.
func (r *Request) setProtocol() {
	switch {
	case r.Type == TypeWebSocket || r.Type == TypeWebSocketCamel ||
		strings.HasPrefix(r.URL, "ws:") || strings.HasPrefix(r.URL, "wss:"):
		r.Type = TypeWebSocket
	case strings.HasPrefix(r.URL, "http:"):
		r.IsHTTP = true
	case strings.HasPrefix(r.URL, "https:"):
		r.IsHTTPS = true
	case strings.HasPrefix(r.URL, "data:"):
		if i := strings.IndexByte(r.URL, ','); i != -1 {
			r.URL = r.URL[:i]
		}
	default:
		r.IsSupported = false
	}
}

func firstNonEmpty(strs ...string) (s string) {
	for _, s = range strs {
		if s != "" {
			return s
		}
	}

	return ""
}

func isThirdParty(hostname, domain, srcHostname, srcDomain string, t Type) (ok bool) {
	switch {
	case t.IsMainFrame():
		return false
	case domain != "" && srcDomain != "":
		return domain != srcDomain
	case domain != "" && srcHostname != "":
		return domain != srcHostname
	case srcDomain != "" && hostname != "":
		return hostname != srcDomain
	default:
		return false
	}
}

// HostnameHashes returns the backward hashes of hostname and of each of its
// parent hostnames down to domain.
func HostnameHashes(hostname, domain string) (hashes []uint32) {
	return tokens.AppendLabelHashesBackward(nil, hostname, len(hostname), len(hostname)-len(domain))
}

// WithoutPublicSuffix returns hostname stripped of the public suffix of
// domain, and false if domain has no suffix to strip.
func WithoutPublicSuffix(hostname, domain string) (entity string, ok bool) {
	i := strings.IndexByte(domain, '.')
	if i == -1 {
		return "", false
	}

	suffixLen := len(domain) - i
	if suffixLen > len(hostname) {
		return "", false
	}

	return hostname[:len(hostname)-suffixLen], true
}

// EntityHashes returns the hashes of hostname and its parents with the public
// suffix removed, so that "example.*" constraints match "example.com" and
// "example.co.uk".
func EntityHashes(hostname, domain string) (hashes []uint32) {
	entity, ok := WithoutPublicSuffix(hostname, domain)
	if !ok {
		return nil
	}

	return tokens.AppendLabelHashesBackward(nil, entity, len(entity), len(entity))
}

// HostnameHashes returns the hashes of the request hostname and its parents.
func (r *Request) HostnameHashes() (hashes []uint32) {
	if !r.hasHostnameHashes {
		if r.Hostname != "" {
			r.hostnameHashes = HostnameHashes(r.Hostname, r.Domain)
		}
		r.hasHostnameHashes = true
	}

	return r.hostnameHashes
}

// EntityHashes returns the entity hashes of the request hostname.
func (r *Request) EntityHashes() (hashes []uint32) {
	if !r.hasEntityHashes {
		if r.Hostname != "" {
			r.entityHashes = EntityHashes(r.Hostname, r.Domain)
		}
		r.hasEntityHashes = true
	}

	return r.entityHashes
}

// Tokens returns the tokens used to look up candidate filters: the source
// hostname hashes, the type token and the tokens of the URL.
func (r *Request) Tokens() (toks []uint32) {
	if !r.hasTokens {
		toks = make([]uint32, 0, len(r.SourceHostnameHashes)+1+len(r.URL)/4)
		toks = append(toks, r.SourceHostnameHashes...)
		toks = append(toks, TypeToken(r.Type))
		r.tokens = tokens.AppendNoSkip(toks, r.URL)
		r.hasTokens = true
	}

	return r.tokens
}

// IsMainFrame reports whether r loads a top-level document.
func (r *Request) IsMainFrame() (ok bool) { return r.Type.IsMainFrame() }

// IsSubFrame reports whether r loads an embedded document.
func (r *Request) IsSubFrame() (ok bool) { return r.Type.IsSubFrame() }

// GuessType replaces the type of r with the one guessed from its URL and
// returns it.
func (r *Request) GuessType() (t Type) {
	t = GuessTypeFromURL(r.URL)
	if t != r.Type {
		r.Type = t
		r.hasTokens = false
		r.tokens = nil
	}

	return t
}
