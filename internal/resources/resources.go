// Package resources contains the redirect resources and scriptlets filters
// refer to by name.
package resources

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrInvalidResources is returned when the resources document is not a
	// JSON object.
	ErrInvalidResources errors.Error = "cannot parse resources.json"

	// ErrInvalidRedirect is returned for malformed redirect resources.
	ErrInvalidRedirect errors.Error = "cannot parse redirect resource"

	// ErrInvalidScriptlet is returned for malformed scriptlets.
	ErrInvalidScriptlet errors.Error = "cannot parse scriptlet"

	// ErrDuplicateName is returned when two resources or two scriptlets
	// share a name or an alias.
	ErrDuplicateName errors.Error = "name or alias already exists"

	// ErrMissingDependency is returned when a scriptlet depends on an
	// unknown scriptlet.
	ErrMissingDependency errors.Error = "missing dependency"
)

// Execution worlds of scriptlets.
const (
	WorldMain     = "MAIN"
	WorldIsolated = "ISOLATED"
)

// Resource is a redirect target.
type Resource struct {
	Name        string   `json:"name"`
	Body        string   `json:"body"`
	ContentType string   `json:"contentType"`
	Aliases     []string `json:"aliases"`
}

// Scriptlet is a script template injected by "+js(...)" filters.
type Scriptlet struct {
	// RequiresTrust is nil when the distribution does not say.
	RequiresTrust *bool `json:"requiresTrust,omitempty"`

	Name string `json:"name"`
	Body string `json:"body"`

	// ExecutionWorld is WorldMain, WorldIsolated or empty.
	ExecutionWorld string `json:"executionWorld,omitempty"`

	Aliases      []string `json:"aliases"`
	Dependencies []string `json:"dependencies"`
}

// Redirect is a resolved redirect target.
type Redirect struct {
	Body        string
	ContentType string
	DataURL     string
}

// Resources is the set of redirect resources and scriptlets.  It is safe for
// concurrent use.
type Resources struct {
	resourcesByName  map[string]*Resource
	scriptletsByName map[string]*Scriptlet

	// cache holds assembled scriptlets by canonical name.
	cacheMu *sync.Mutex
	cache   map[string]string

	Checksum   string
	Resources  []Resource
	Scriptlets []Scriptlet
}

// New returns resources indexed by name and alias.  It returns an error if a
// name is used twice or a dependency is missing.
func New(checksum string, res []Resource, scriptlets []Scriptlet) (r *Resources, err error) {
	r = &Resources{
		Checksum:         checksum,
		Resources:        res,
		Scriptlets:       scriptlets,
		resourcesByName:  make(map[string]*Resource, len(res)),
		scriptletsByName: make(map[string]*Scriptlet, len(scriptlets)),
		cacheMu:          &sync.Mutex{},
		cache:            map[string]string{},
	}

	for i := range r.Resources {
		rsc := &r.Resources[i]
		for _, name := range append([]string{rsc.Name}, rsc.Aliases...) {
			if _, ok := r.resourcesByName[name]; ok {
				return nil, fmt.Errorf("resource %q: %w", name, ErrDuplicateName)
			}
			r.resourcesByName[name] = rsc
		}
	}

	for i := range r.Scriptlets {
		s := &r.Scriptlets[i]
		for _, name := range append([]string{s.Name}, s.Aliases...) {
			if _, ok := r.scriptletsByName[name]; ok {
				return nil, fmt.Errorf("scriptlet %q: %w", name, ErrDuplicateName)
			}
			r.scriptletsByName[name] = s
		}
	}

	for _, s := range r.Scriptlets {
		for _, dep := range s.Dependencies {
			if _, ok := r.scriptletsByName[dep]; !ok {
				return nil, fmt.Errorf("scriptlet %q needs %q: %w", s.Name, dep, ErrMissingDependency)
			}
		}
	}

	return r, nil
}

// Empty returns resources with no entries.
func Empty() (r *Resources) {
	r, _ = New("", nil, nil)

	return r
}

// rawResource is a redirect resource as found in resources.json.  Pointers
// tell missing fields apart from empty ones.
type rawResource struct {
	Name        *string   `json:"name"`
	Body        *string   `json:"body"`
	ContentType *string   `json:"contentType"`
	Aliases     *[]string `json:"aliases"`
}

// rawScriptlet is a scriptlet as found in resources.json.
type rawScriptlet struct {
	RequiresTrust  *bool     `json:"requiresTrust"`
	Name           *string   `json:"name"`
	Body           *string   `json:"body"`
	ExecutionWorld *string   `json:"executionWorld"`
	Aliases        *[]string `json:"aliases"`
	Dependencies   *[]string `json:"dependencies"`
}

// Parse parses a resources.json document:
//
//	{"redirects": [{"name", "aliases", "body", "contentType"}],
//	 "scriptlets": [{"name", "aliases", "body", "dependencies",
//	                 "executionWorld", "requiresTrust"}]}
func Parse(data []byte, checksum string) (r *Resources, err error) {
	var doc struct {
		Redirects  []json.RawMessage `json:"redirects"`
		Scriptlets []json.RawMessage `json:"scriptlets"`
	}

	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResources, err)
	}

	res := make([]Resource, 0, len(doc.Redirects))
	for _, msg := range doc.Redirects {
		raw := rawResource{}
		err = json.Unmarshal(msg, &raw)
		if err != nil || raw.Name == nil || raw.Body == nil || raw.ContentType == nil || raw.Aliases == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRedirect, msg)
		}

		res = append(res, Resource{
			Name:        *raw.Name,
			Aliases:     *raw.Aliases,
			Body:        *raw.Body,
			ContentType: *raw.ContentType,
		})
	}

	scriptlets := make([]Scriptlet, 0, len(doc.Scriptlets))
	for _, msg := range doc.Scriptlets {
		s, ok := parseScriptlet(msg)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidScriptlet, msg)
		}

		scriptlets = append(scriptlets, s)
	}

	return New(checksum, res, scriptlets)
}

// parseScriptlet decodes and validates a single scriptlet.
func parseScriptlet(msg json.RawMessage) (s Scriptlet, ok bool) {
	raw := rawScriptlet{}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Scriptlet{}, false
	}

	if raw.Name == nil || raw.Body == nil || raw.Aliases == nil || raw.Dependencies == nil {
		return Scriptlet{}, false
	}

	s = Scriptlet{
		Name:          *raw.Name,
		Aliases:       *raw.Aliases,
		Body:          *raw.Body,
		Dependencies:  *raw.Dependencies,
		RequiresTrust: raw.RequiresTrust,
	}

	if raw.ExecutionWorld != nil {
		switch w := *raw.ExecutionWorld; w {
		case WorldMain, WorldIsolated:
			s.ExecutionWorld = w
		default:
			return Scriptlet{}, false
		}
	}

	return s, true
}

// Copy returns a deep copy of r.
func (r *Resources) Copy() (c *Resources) {
	res := make([]Resource, 0, len(r.Resources))
	for _, rsc := range r.Resources {
		rsc.Aliases = slices.Clone(rsc.Aliases)
		res = append(res, rsc)
	}

	scriptlets := make([]Scriptlet, 0, len(r.Scriptlets))
	for _, s := range r.Scriptlets {
		s.Aliases = slices.Clone(s.Aliases)
		s.Dependencies = slices.Clone(s.Dependencies)
		if s.RequiresTrust != nil {
			trust := *s.RequiresTrust
			s.RequiresTrust = &trust
		}
		scriptlets = append(scriptlets, s)
	}

	// r was validated on construction so the copy cannot fail.
	c, _ = New(r.Checksum, res, scriptlets)

	return c
}

// GetResource resolves the redirect target name.  Unknown names fall back to
// a built-in resource matching their extension or MIME type.
func (r *Resources) GetResource(name string) (red Redirect) {
	body, contentType := "", ""
	if res, ok := r.resourcesByName[name]; ok {
		body, contentType = res.Body, res.ContentType
	} else {
		body, contentType = fallbackResource(name)
	}

	red = Redirect{Body: body, ContentType: contentType}
	if strings.Contains(contentType, ";") {
		red.DataURL = "data:" + contentType + "," + body
	} else {
		red.DataURL = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString([]byte(body))
	}

	return red
}

// rawScriptlet returns the scriptlet name refers to.  Names ending with
// ".fn" are dependencies only and the ".js" suffix is optional.
func (r *Resources) rawScriptlet(name string) (s *Scriptlet, ok bool) {
	if strings.HasSuffix(name, ".fn") {
		return nil, false
	}

	if s, ok = r.scriptletsByName[name]; ok || strings.HasSuffix(name, ".js") {
		return s, ok
	}

	s, ok = r.scriptletsByName[name+".js"]

	return s, ok
}

// CanonicalName returns the primary name of the scriptlet name refers to, or
// name itself when it is unknown.
func (r *Resources) CanonicalName(name string) (canonical string) {
	if s, ok := r.rawScriptlet(name); ok {
		return s.Name
	}

	return name
}

// GetScriptlet returns the code of the scriptlet name refers to, ready for
// argument substitution.  Unknown names fall back to JavaScript redirect
// resources.
func (r *Resources) GetScriptlet(name string) (script string, ok bool) {
	s, ok := r.rawScriptlet(name)
	if !ok {
		return r.surrogate(name)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	script, ok = r.cache[s.Name]
	if !ok {
		script = assembleScript(s.Body, r.dependencies(s))
		r.cache[s.Name] = script
	}

	return script, script != ""
}

// surrogate returns the body of the JavaScript resource name refers to.
func (r *Resources) surrogate(name string) (script string, ok bool) {
	if !strings.HasSuffix(name, ".js") {
		name += ".js"
	}

	res, ok := r.resourcesByName[name]
	if !ok || res.ContentType != "application/javascript" {
		return "", false
	}

	return res.Body, true
}

// dependencies returns the bodies of the transitive dependencies of s, each
// once.
func (r *Resources) dependencies(s *Scriptlet) (bodies []string) {
	seen := map[string]struct{}{}
	queue := append([]string(nil), s.Dependencies...)
	for len(queue) > 0 {
		name := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		dep := r.scriptletsByName[name]
		bodies = append(bodies, dep.Body)
		queue = append(queue, dep.Dependencies...)
	}

	return bodies
}

// scriptletPrelude declares the object scriptlets share state through.
const scriptletPrelude = `if (typeof scriptletGlobals === 'undefined') { var scriptletGlobals = {}; }`

// scriptletCall calls the scriptlet function with the arguments substituted
// for the placeholders still present.
const scriptletCall = `)(...['{{1}}','{{2}}','{{3}}','{{4}}','{{5}}','{{6}}','{{7}}','{{8}}','{{9}}','{{10}}']` +
	`.filter((a,i) => a !== '{{'+(i+1)+'}}').map((a) => decodeURIComponent(a)))`

// assembleScript joins the prelude, the dependencies and the call of body.
func assembleScript(body string, deps []string) (script string) {
	parts := make([]string, 0, len(deps)+2)
	parts = append(parts, scriptletPrelude)
	parts = append(parts, deps...)
	parts = append(parts, "("+body+scriptletCall)

	return strings.Join(parts, ";")
}
