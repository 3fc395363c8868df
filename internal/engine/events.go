package engine

import (
	"sync"

	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/request"
)

// EventKind is the kind of an engine event.
type EventKind string

// EventKind values.
const (
	EventRequestAllowed     EventKind = "request-allowed"
	EventRequestBlocked     EventKind = "request-blocked"
	EventRequestRedirected  EventKind = "request-redirected"
	EventRequestWhitelisted EventKind = "request-whitelisted"
	EventFilterMatched      EventKind = "filter-matched"
	EventStyleInjected      EventKind = "style-injected"
	EventScriptInjected     EventKind = "script-injected"
	EventCSPInjected        EventKind = "csp-injected"
	EventHTMLFiltered       EventKind = "html-filtered"
)

// Event is emitted by the query methods of an engine.  Only the fields
// relevant to Kind are set.
type Event struct {
	// Request is the request being processed, nil for cosmetic events.
	Request *request.Request

	// Result is set for the request-* events.
	Result *MatchResult

	// Filter and Exception are set for filter-matched events.  Filter may
	// be nil when a CSP exception disables every directive.
	Filter    filters.Filter
	Exception filters.Filter

	// URL is the URL of the page for cosmetic and HTML events.
	URL string

	// Content is the injected stylesheet, script or CSP directives.
	Content string

	// HTMLSelectors are set for html-filtered events.
	HTMLSelectors []filters.HTMLSelector

	Kind EventKind

	// FilterType is the kind of filter of filter-matched events.
	FilterType models.FilterType
}

// Listener receives engine events.  It is called synchronously from the
// method triggering the event and must not update the engine.
type Listener interface {
	OnEvent(e *Event)
}

// ListenerFunc is a function implementing Listener.
type ListenerFunc func(e *Event)

// type check
var _ Listener = ListenerFunc(nil)

// OnEvent implements the Listener interface for ListenerFunc.
func (f ListenerFunc) OnEvent(e *Event) { f(e) }

// subscription is a registered listener.  An empty kind matches every
// event.
type subscription struct {
	l    Listener
	kind EventKind
	id   uint64
}

// emitter dispatches events to listeners.  It is safe for concurrent use.
type emitter struct {
	mu     *sync.RWMutex
	subs   []subscription
	nextID uint64
}

func newEmitter() (em *emitter) {
	return &emitter{mu: &sync.RWMutex{}}
}

// subscribe registers l for kind and returns the function removing it.
func (em *emitter) subscribe(kind EventKind, l Listener) (unsubscribe func()) {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.nextID++
	id := em.nextID
	em.subs = append(em.subs, subscription{l: l, kind: kind, id: id})

	return func() {
		em.mu.Lock()
		defer em.mu.Unlock()

		for i, s := range em.subs {
			if s.id == id {
				em.subs = append(em.subs[:i:i], em.subs[i+1:]...)

				return
			}
		}
	}
}

// emit calls the listeners of e.Kind.  newEvent is only called if there is
// at least one.
func (em *emitter) emit(kind EventKind, newEvent func() (e *Event)) {
	em.mu.RLock()
	var targets []Listener
	for _, s := range em.subs {
		if s.kind == "" || s.kind == kind {
			targets = append(targets, s.l)
		}
	}
	em.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	e := newEvent()
	e.Kind = kind
	for _, l := range targets {
		l.OnEvent(e)
	}
}

// On registers fn for the events of kind.  It returns the function removing
// the registration.
func (e *Engine) On(kind EventKind, fn func(ev *Event)) (unsubscribe func()) {
	return e.events.subscribe(kind, ListenerFunc(fn))
}

// AddListener registers l for every event.  It returns the function removing
// the registration.
func (e *Engine) AddListener(l Listener) (unsubscribe func()) {
	return e.events.subscribe("", l)
}

// networkFilter converts f to a filters.Filter, keeping nil untyped.
func networkFilter(f *filters.NetworkFilter) (res filters.Filter) {
	if f == nil {
		return nil
	}

	return f
}

// cosmeticFilter converts f to a filters.Filter, keeping nil untyped.
func cosmeticFilter(f *filters.CosmeticFilter) (res filters.Filter) {
	if f == nil {
		return nil
	}

	return f
}
