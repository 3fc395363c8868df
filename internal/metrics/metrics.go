// Package metrics exposes engine events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the namespace of every metric.
const Namespace = "adblock"

// Listener counts engine events.  It is safe for concurrent use.
type Listener struct {
	events        *prometheus.CounterVec
	filterMatches *prometheus.CounterVec
	injected      *prometheus.HistogramVec
}

// type check
var _ engine.Listener = (*Listener)(nil)

// NewListener returns a listener whose metrics are registered in reg.
func NewListener(reg prometheus.Registerer) (l *Listener, err error) {
	l = &Listener{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "engine_events_total",
			Help:      "Total number of engine events by kind",
		}, []string{"kind"}),
		filterMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "filter_matches_total",
			Help:      "Total number of filter matches by filter type and outcome",
		}, []string{"type", "outcome"}),
		injected: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "injected_content_bytes",
			Help:      "Size of the styles, scripts and CSP directives injected into pages",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{l.events, l.filterMatches, l.injected} {
		if err = reg.Register(c); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Outcomes of filter matches.
const (
	OutcomeApplied   = "applied"
	OutcomeExcepted  = "excepted"
	OutcomeException = "exception"
)

// OnEvent implements the [engine.Listener] interface for *Listener.
func (l *Listener) OnEvent(e *engine.Event) {
	l.events.WithLabelValues(string(e.Kind)).Inc()

	switch e.Kind {
	case engine.EventFilterMatched:
		outcome := OutcomeApplied
		switch {
		case e.Filter == nil:
			outcome = OutcomeException
		case e.Exception != nil:
			outcome = OutcomeExcepted
		}

		l.filterMatches.WithLabelValues(e.FilterType.String(), outcome).Inc()
	case engine.EventStyleInjected, engine.EventScriptInjected, engine.EventCSPInjected:
		l.injected.WithLabelValues(string(e.Kind)).Observe(float64(len(e.Content)))
	}
}

// Handler returns the HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) (h http.Handler) {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
