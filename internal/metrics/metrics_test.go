package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `||ads.example.com^
@@||ads.example.com/allowed^
||tracker.example.net^$redirect=noopjs
example.com##.banner`

func newTestListener(t *testing.T) (l *Listener, reg *prometheus.Registry) {
	t.Helper()

	reg = prometheus.NewRegistry()
	l, err := NewListener(reg)
	require.NoError(t, err)

	return l, reg
}

func TestListener(t *testing.T) {
	l, _ := newTestListener(t)

	e, _ := engine.Parse(testList, nil)
	unsubscribe := e.AddListener(l)

	match := func(url string, typ request.Type) {
		e.Match(e.NewRequest(request.Details{
			URL:       url,
			SourceURL: "https://www.example.com/",
			Type:      typ,
		}), false)
	}

	match("https://ads.example.com/banner.png", request.TypeImage)
	match("https://ads.example.com/allowed/x.png", request.TypeImage)
	match("https://tracker.example.net/t.js", request.TypeScript)
	match("https://cdn.example.org/app.js", request.TypeScript)

	q := engine.NewCosmeticsQuery("https://www.example.com/", "www.example.com", "example.com")
	e.GetCosmeticsFilters(q)

	events := func(kind engine.EventKind) (n float64) {
		return testutil.ToFloat64(l.events.WithLabelValues(string(kind)))
	}

	assert.Equal(t, 1.0, events(engine.EventRequestBlocked))
	assert.Equal(t, 1.0, events(engine.EventRequestWhitelisted))
	assert.Equal(t, 1.0, events(engine.EventRequestRedirected))
	assert.Equal(t, 1.0, events(engine.EventRequestAllowed))
	assert.Equal(t, 1.0, events(engine.EventStyleInjected))

	network := models.FilterTypeNetwork.String()
	assert.Equal(t, 2.0, testutil.ToFloat64(l.filterMatches.WithLabelValues(network, OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.filterMatches.WithLabelValues(network, OutcomeExcepted)))

	unsubscribe()
	match("https://ads.example.com/banner.png", request.TypeImage)
	assert.Equal(t, 1.0, events(engine.EventRequestBlocked))
}

func TestListener_OnEvent_injected(t *testing.T) {
	l, reg := newTestListener(t)

	l.OnEvent(&engine.Event{Kind: engine.EventCSPInjected, Content: "script-src 'self'"})
	l.OnEvent(&engine.Event{Kind: engine.EventCSPInjected, Content: "img-src 'none'"})

	n, err := testutil.GatherAndCount(reg, "adblock_injected_content_bytes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2.0, testutil.ToFloat64(l.events.WithLabelValues(string(engine.EventCSPInjected))))
}

func TestNewListener_duplicate(t *testing.T) {
	_, reg := newTestListener(t)

	_, err := NewListener(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	l, reg := newTestListener(t)
	l.OnEvent(&engine.Event{Kind: engine.EventRequestAllowed})

	rw := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), `adblock_engine_events_total{kind="request-allowed"} 1`)
}
