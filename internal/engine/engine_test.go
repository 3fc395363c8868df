package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/parser"
	"github.com/bnema/adblock-engine/internal/preprocessor"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResources = `{
	"redirects": [{
		"name": "noop.js",
		"aliases": ["noopjs"],
		"body": "(function() {})()",
		"contentType": "application/javascript"
	}],
	"scriptlets": [{
		"name": "set-constant.js",
		"aliases": ["set", "set-constant"],
		"body": "function setConstant(a, b) {}",
		"dependencies": []
	}]
}`

const testDump = `{
	"organizations": {
		"acme": {"name": "Acme Corp", "country": "US"}
	},
	"categories": {
		"advertising": {"name": "Advertising", "color": "#cb55cd", "description": "Ads"}
	},
	"patterns": {
		"acme_ads": {
			"name": "Acme Ads",
			"category": "advertising",
			"organization": "acme",
			"domains": ["acme-ads.com"],
			"filters": ["||acme-ads.com/pixel$image"]
		}
	}
}`

// newEngine is a helper returning an engine with conf and the filters of
// lines.  A nil conf means the default configuration.
func newEngine(tb testing.TB, conf *engine.Config, lines ...string) (e *engine.Engine) {
	tb.Helper()

	e, res := engine.Parse(strings.Join(lines, "\n"), &engine.Options{Config: conf})
	require.Empty(tb, res.NotSupported)

	return e
}

// newRequest is a helper returning a request normalized by e.
func newRequest(e *engine.Engine, url string, typ request.Type, sourceURL string) (r *request.Request) {
	return e.NewRequest(request.Details{URL: url, Type: typ, SourceURL: sourceURL})
}

// filterID is a helper returning the id of the network filter line.
func filterID(tb testing.TB, line string) (id uint32) {
	tb.Helper()

	f := filters.ParseNetwork(line, false)
	require.NotNil(tb, f)

	return f.ID()
}

func TestEngine_Match(t *testing.T) {
	e := newEngine(t, nil,
		"||ads.com^",
		"@@||ads.com/allowed^",
		"||tracker.com^$important",
		"@@||tracker.com^",
		"||cdn.com/lib.js$script,redirect=noopjs",
		"||cdn.com/other.js$script,redirect=noopjs",
		"||cdn.com/other.js$script,redirect=none",
		"||rr.com^",
		"||rr.com/a.js$script,redirect-rule=noopjs",
		"||rr2.com/a.js$script,redirect-rule=noopjs",
		"||bad.com^",
		"||bad.com^$badfilter",
	)

	tests := []struct {
		name          string
		url           string
		typ           request.Type
		wantFilter    string
		wantException string
		wantRedirect  bool
		wantMatch     bool
	}{{
		name:       "blocked",
		url:        "https://ads.com/banner.js",
		typ:        request.TypeScript,
		wantFilter: "||ads.com^",
		wantMatch:  true,
	}, {
		name:          "exception",
		url:           "https://ads.com/allowed/banner.js",
		typ:           request.TypeScript,
		wantFilter:    "||ads.com^",
		wantException: "@@||ads.com/allowed^",
		wantMatch:     false,
	}, {
		name:       "important",
		url:        "https://tracker.com/pixel.gif",
		typ:        request.TypeImage,
		wantFilter: "||tracker.com^$important",
		wantMatch:  true,
	}, {
		name:         "redirect",
		url:          "https://cdn.com/lib.js",
		typ:          request.TypeScript,
		wantFilter:   "||cdn.com/lib.js$script,redirect=noopjs",
		wantRedirect: true,
		wantMatch:    true,
	}, {
		name:          "redirect_none",
		url:           "https://cdn.com/other.js",
		typ:           request.TypeScript,
		wantFilter:    "||cdn.com/other.js$script,redirect=noopjs",
		wantException: "||cdn.com/other.js$script,redirect=none",
		wantMatch:     false,
	}, {
		name:         "redirect_rule",
		url:          "https://rr.com/a.js",
		typ:          request.TypeScript,
		wantFilter:   "||rr.com/a.js$script,redirect-rule=noopjs",
		wantRedirect: true,
		wantMatch:    true,
	}, {
		name:      "redirect_rule_not_blocked",
		url:       "https://rr2.com/a.js",
		typ:       request.TypeScript,
		wantMatch: false,
	}, {
		name:      "badfilter",
		url:       "https://bad.com/x.js",
		typ:       request.TypeScript,
		wantMatch: false,
	}, {
		name:      "no_match",
		url:       "https://example.org/x.js",
		typ:       request.TypeScript,
		wantMatch: false,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Match(newRequest(e, tc.url, tc.typ, "https://example.com"), false)
			assert.Equal(t, tc.wantMatch, res.Match)

			if tc.wantFilter == "" {
				assert.Nil(t, res.Filter)
			} else {
				require.NotNil(t, res.Filter)
				assert.Equal(t, filterID(t, tc.wantFilter), res.Filter.ID())
			}

			if tc.wantException == "" {
				assert.Nil(t, res.Exception)
			} else {
				require.NotNil(t, res.Exception)
				assert.Equal(t, filterID(t, tc.wantException), res.Exception.ID())
			}

			if !tc.wantRedirect {
				assert.Nil(t, res.Redirect)

				return
			}

			require.NotNil(t, res.Redirect)
			assert.Equal(t, "application/javascript", res.Redirect.ContentType)
			assert.True(t, strings.HasPrefix(res.Redirect.DataURL, "data:application/javascript"))
		})
	}

	t.Run("disabled", func(t *testing.T) {
		conf := engine.DefaultConfig()
		conf.LoadNetworkFilters = false

		off := newEngine(t, conf, "||ads.com^")
		res := off.Match(newRequest(off, "https://ads.com/x.js", request.TypeScript, ""), false)
		assert.Equal(t, &engine.MatchResult{}, res)
	})

	t.Run("metadata", func(t *testing.T) {
		tdb, err := engine.FromTrackerDB([]byte(testDump), nil)
		require.NoError(t, err)

		r := newRequest(tdb, "https://acme-ads.com/pixel", request.TypeImage, "https://example.com")
		res := tdb.Match(r, true)
		require.True(t, res.Match)
		require.Len(t, res.Metadata, 1)
		assert.Equal(t, "acme_ads", res.Metadata[0].Pattern.Key)
		assert.Equal(t, "Acme Corp", res.Metadata[0].Organization.Name)

		assert.Empty(t, tdb.Match(r, false).Metadata)
	})
}

func TestEngine_Match_redirectRulePriority(t *testing.T) {
	const (
		low  = "||prio.com/a.js$script,redirect-rule=noop.txt:1"
		high = "||prio.com/a.js$script,redirect-rule=noopjs:5"
	)

	tests := []struct {
		name  string
		lines []string
	}{{
		name:  "highest_last",
		lines: []string{"||prio.com^", low, high},
	}, {
		name:  "highest_first",
		lines: []string{"||prio.com^", high, low},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, nil, tc.lines...)
			res := e.Match(newRequest(e, "https://prio.com/a.js", request.TypeScript, "https://example.com"), false)
			require.True(t, res.Match)

			require.NotNil(t, res.Filter)
			assert.Equal(t, filterID(t, high), res.Filter.ID())

			require.NotNil(t, res.Redirect)
			assert.Equal(t, "application/javascript", res.Redirect.ContentType)
		})
	}
}

func TestEngine_Events(t *testing.T) {
	e := newEngine(t, nil, "||ads.com^", "@@||ads.com/ok^")

	var kinds []engine.EventKind
	unsubscribe := e.AddListener(engine.ListenerFunc(func(ev *engine.Event) {
		kinds = append(kinds, ev.Kind)
	}))

	var blocked []*engine.Event
	e.On(engine.EventRequestBlocked, func(ev *engine.Event) {
		blocked = append(blocked, ev)
	})

	e.Match(newRequest(e, "https://ads.com/x.js", request.TypeScript, "https://example.com"), false)
	e.Match(newRequest(e, "https://ads.com/ok/x.js", request.TypeScript, "https://example.com"), false)
	e.Match(newRequest(e, "https://example.org/", request.TypeScript, "https://example.com"), false)

	assert.Equal(t, []engine.EventKind{
		engine.EventFilterMatched,
		engine.EventRequestBlocked,
		engine.EventFilterMatched,
		engine.EventRequestWhitelisted,
		engine.EventRequestAllowed,
	}, kinds)

	require.Len(t, blocked, 1)
	assert.True(t, blocked[0].Result.Match)
	assert.Equal(t, "https://ads.com/x.js", blocked[0].Request.URL)

	unsubscribe()
	e.Match(newRequest(e, "https://ads.com/x.js", request.TypeScript, "https://example.com"), false)
	assert.Len(t, kinds, 5)
	assert.Len(t, blocked, 2)
}

func TestEngine_GetCSPDirectives(t *testing.T) {
	e := newEngine(t, nil,
		"||example.com^$csp=script-src 'self'",
		"||example.com^$csp=img-src 'none'",
		"@@||example.com/safe$csp=img-src 'none'",
		"@@||example.com/nocsp$csp",
	)

	var injected []string
	e.On(engine.EventCSPInjected, func(ev *engine.Event) {
		injected = append(injected, ev.Content)
	})

	tests := []struct {
		name string
		url  string
		typ  request.Type
		want []string
	}{{
		name: "all",
		url:  "https://example.com/",
		typ:  request.TypeMainFrame,
		want: []string{"script-src 'self'", "img-src 'none'"},
	}, {
		name: "exception",
		url:  "https://example.com/safe",
		typ:  request.TypeMainFrame,
		want: []string{"script-src 'self'"},
	}, {
		name: "disabled",
		url:  "https://example.com/nocsp",
		typ:  request.TypeMainFrame,
		want: nil,
	}, {
		name: "subframe",
		url:  "https://example.com/",
		typ:  request.TypeSubFrame,
		want: nil,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.GetCSPDirectives(newRequest(e, tc.url, tc.typ, ""))
			if tc.want == nil {
				assert.Empty(t, got)

				return
			}

			assert.ElementsMatch(t, tc.want, strings.Split(got, "; "))
		})
	}

	assert.Len(t, injected, 2)
}

func TestEngine_GetCosmeticsFilters(t *testing.T) {
	e := newEngine(t, nil,
		"example.com##.banner",
		"##.generic-ad",
		"example.com##.unhidden",
		"example.com#@#.unhidden",
		"example.com##+js(set, foo, 1)",
		"other.com##+js(set, foo, 1)",
		"other.com#@#+js(set-constant, foo, 1)",
	)

	updated, err := e.UpdateResources([]byte(testResources), "v1")
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = e.UpdateResources([]byte(testResources), "v1")
	require.NoError(t, err)
	assert.False(t, updated)

	var styles []string
	e.On(engine.EventStyleInjected, func(ev *engine.Event) {
		styles = append(styles, ev.Content)
	})

	q := engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com")
	q.Classes = []string{"generic-ad"}

	res := e.GetCosmeticsFilters(q)
	require.True(t, res.Active)

	assert.Contains(t, res.Styles, ".banner")
	assert.Contains(t, res.Styles, ".generic-ad")
	assert.NotContains(t, res.Styles, ".unhidden")
	require.Len(t, res.Scripts, 1)
	assert.Contains(t, res.Scripts[0], "function setConstant(a, b) {}")
	assert.Contains(t, res.Scripts[0], "['foo','1',")
	assert.Equal(t, []string{res.Styles}, styles)

	t.Run("unhidden_scriptlet_alias", func(t *testing.T) {
		res = e.GetCosmeticsFilters(engine.NewCosmeticsQuery("https://other.com/", "other.com", "other.com"))
		assert.Empty(t, res.Scripts)
	})

	t.Run("no_injections", func(t *testing.T) {
		q := engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com")
		q.GetInjectionRules = false

		res = e.GetCosmeticsFilters(q)
		assert.Empty(t, res.Scripts)
		assert.Contains(t, res.Styles, ".banner")
	})

	t.Run("disabled", func(t *testing.T) {
		conf := engine.DefaultConfig()
		conf.LoadCosmeticFilters = false

		off := newEngine(t, conf, "example.com##.banner")
		res = off.GetCosmeticsFilters(engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com"))
		assert.Equal(t, &engine.CosmeticsResult{}, res)
	})
}

func TestEngine_GetCosmeticsFilters_scriptletsDisabled(t *testing.T) {
	e := newEngine(t, nil,
		"example.com##.banner",
		"example.com##+js(set, foo, 1)",
		"example.com##+js(set-constant, bar, 2)",
		"example.com#@#+js()",
		"other.com##+js(set, foo, 1)",
	)

	_, err := e.UpdateResources([]byte(testResources), "v1")
	require.NoError(t, err)

	var injected []string
	e.On(engine.EventScriptInjected, func(ev *engine.Event) {
		injected = append(injected, ev.Content)
	})

	res := e.GetCosmeticsFilters(engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com"))
	require.True(t, res.Active)
	assert.Empty(t, res.Scripts)
	assert.Empty(t, injected)
	assert.Contains(t, res.Styles, ".banner")

	res = e.GetCosmeticsFilters(engine.NewCosmeticsQuery("https://other.com/", "other.com", "other.com"))
	assert.Len(t, res.Scripts, 1)
	assert.Len(t, injected, 1)
}

func TestEngine_GetCosmeticsFilters_hideExceptions(t *testing.T) {
	lines := []string{
		"##.generic-ad",
		"example.com##.banner",
	}

	tests := []struct {
		name        string
		exceptions  []string
		wantGeneric bool
		wantBanner  bool
	}{{
		name:        "none",
		exceptions:  nil,
		wantGeneric: true,
		wantBanner:  true,
	}, {
		name:        "generichide",
		exceptions:  []string{"@@||example.com^$generichide"},
		wantGeneric: false,
		wantBanner:  true,
	}, {
		name:        "specifichide",
		exceptions:  []string{"@@||example.com^$specifichide"},
		wantGeneric: true,
		wantBanner:  false,
	}, {
		name:        "elemhide",
		exceptions:  []string{"@@||example.com^$elemhide"},
		wantGeneric: false,
		wantBanner:  false,
	}, {
		name: "important_generichide",
		exceptions: []string{
			"@@||example.com^$generichide",
			"||example.com^$generichide,important",
		},
		wantGeneric: true,
		wantBanner:  true,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, nil, append(tc.exceptions, lines...)...)
			q := engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com")
			q.Classes = []string{"generic-ad"}

			res := e.GetCosmeticsFilters(q)

			assert.Equal(t, tc.wantGeneric, strings.Contains(res.Styles, ".generic-ad"))
			assert.Equal(t, tc.wantBanner, strings.Contains(res.Styles, ".banner"))
		})
	}
}

func TestEngine_GetHTMLFilters(t *testing.T) {
	conf := engine.DefaultConfig()
	conf.EnableHTMLFiltering = true

	lines := []string{
		"example.com##^script:has-text(adblock)",
		"||example.com^$replace=/ads/x/",
		"@@||example.com/safe$replace",
	}
	e := newEngine(t, conf, lines...)

	var filtered int
	e.On(engine.EventHTMLFiltered, func(_ *engine.Event) { filtered++ })

	sels := e.GetHTMLFilters(newRequest(e, "https://example.com/page", request.TypeMainFrame, ""))
	require.Len(t, sels, 2)

	assert.Equal(t, filters.HTMLSelectorScript, sels[0].Kind)
	assert.Equal(t, []string{"adblock"}, sels[0].Texts)
	assert.Equal(t, filters.HTMLSelectorReplace, sels[1].Kind)
	require.NotNil(t, sels[1].Replace)
	assert.Equal(t, "<p>x</p>", sels[1].Replace.Apply("<p>ads</p>"))

	sels = e.GetHTMLFilters(newRequest(e, "https://example.com/safe", request.TypeMainFrame, ""))
	require.Len(t, sels, 1)
	assert.Equal(t, filters.HTMLSelectorScript, sels[0].Kind)

	assert.Equal(t, 2, filtered)

	t.Run("disabled", func(t *testing.T) {
		off := newEngine(t, nil, lines...)
		assert.Empty(t, off.GetHTMLFilters(newRequest(off, "https://example.com/page", request.TypeMainFrame, "")))
	})
}

func TestEngine_Serialize(t *testing.T) {
	compressed := engine.DefaultConfig()
	compressed.EnableCompression = true

	noIntegrity := engine.DefaultConfig()
	noIntegrity.IntegrityCheck = false

	lines := []string{
		"||ads.com^",
		"@@||ads.com/allowed^",
		"||tracker.com^$important",
		"||cdn.com/lib.js$script,redirect=noopjs",
		"||example.com^$csp=script-src 'self'",
		"@@||example.com^$generichide",
		"example.com##.banner",
		"##.generic-ad",
		"example.com##+js(set, foo, 1)",
	}

	tests := []struct {
		conf *engine.Config
		name string
	}{{
		conf: engine.DefaultConfig(),
		name: "default",
	}, {
		conf: compressed,
		name: "compression",
	}, {
		conf: noIntegrity,
		name: "no_integrity",
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, tc.conf, lines...)
			_, err := e.UpdateResources([]byte(testResources), "v1")
			require.NoError(t, err)

			e.SetList("easylist", "42")

			data := e.Serialize()
			assert.Equal(t, e.SerializedSize(), len(data))

			got, err := engine.Deserialize(data, nil)
			require.NoError(t, err)

			assert.Equal(t, data, got.Serialize())
			assert.Equal(t, e.Config(), got.Config())
			assert.Equal(t, e.Stats(), got.Stats())
			assert.True(t, got.HasList("easylist", "42"))

			r := newRequest(got, "https://ads.com/x.js", request.TypeScript, "https://example.com")
			assert.True(t, got.Match(r, false).Match)

			res := got.GetCosmeticsFilters(engine.NewCosmeticsQuery("https://example.com/", "example.com", "example.com"))
			assert.Contains(t, res.Styles, ".banner")
			assert.Len(t, res.Scripts, 1)
		})
	}

	t.Run("metadata", func(t *testing.T) {
		e, err := engine.FromTrackerDB([]byte(testDump), nil)
		require.NoError(t, err)

		got, err := engine.Deserialize(e.Serialize(), nil)
		require.NoError(t, err)
		require.NotNil(t, got.Metadata())
		assert.Equal(t, 1, got.Metadata().Patterns.Len())
	})
}

func TestDeserialize_errors(t *testing.T) {
	data := newEngine(t, nil, "||ads.com^", "example.com##.banner").Serialize()
	corrupt := func(mutate func(b []byte) []byte) []byte {
		return mutate(append([]byte(nil), data...))
	}

	tests := []struct {
		wantErr error
		name    string
		data    []byte
	}{{
		wantErr: engine.ErrVersionMismatch,
		name:    "version",
		data:    corrupt(func(b []byte) []byte { b[0] ^= 0xff; return b }),
	}, {
		wantErr: engine.ErrChecksumMismatch,
		name:    "checksum",
		data:    corrupt(func(b []byte) []byte { b[len(b)/2] ^= 0xff; return b }),
	}, {
		wantErr: engine.ErrChecksumMismatch,
		name:    "stored_checksum",
		data:    corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }),
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Deserialize(tc.data, nil)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("truncated", func(t *testing.T) {
		_, err := engine.Deserialize(data[:8], nil)
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := engine.Deserialize(nil, nil)
		require.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	a := engine.New(&engine.Options{Lists: map[string]string{"a": "1"}})
	a.UpdateFromDiff(&parser.Diff{Added: []string{"||a.com^", "example.com##.x"}}, nil)

	b := engine.New(&engine.Options{Lists: map[string]string{"a": "2", "b": "1"}})
	b.UpdateFromDiff(&parser.Diff{Added: []string{"||b.com^", "example.com##.x"}}, nil)

	merged, err := engine.Merge([]*engine.Engine{a, b}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, merged.Stats().Filters)
	assert.Equal(t, 1, merged.Stats().Cosmetics)
	assert.Equal(t, []string{"a", "b"}, merged.LoadedLists())
	assert.True(t, merged.HasList("a", "1"))

	for _, url := range []string{"https://a.com/", "https://b.com/"} {
		r := newRequest(merged, url, request.TypeScript, "https://example.com")
		assert.True(t, merged.Match(r, false).Match, url)
	}

	t.Run("too_few", func(t *testing.T) {
		_, err = engine.Merge([]*engine.Engine{a}, false)
		assert.ErrorIs(t, err, engine.ErrMergeTooFew)
	})

	t.Run("config", func(t *testing.T) {
		conf := engine.DefaultConfig()
		conf.Debug = true

		_, err = engine.Merge([]*engine.Engine{a, engine.Empty(conf)}, false)
		require.ErrorIs(t, err, engine.ErrIncompatibleEngines)
		testutil.AssertErrorMsg(t, `incompatible engines: config "debug" of all merged engines must be the same`, err)
	})

	t.Run("resources", func(t *testing.T) {
		c := engine.Empty(nil)
		_, err = c.UpdateResources([]byte(testResources), "other")
		require.NoError(t, err)

		_, err = engine.Merge([]*engine.Engine{a, c}, false)
		require.ErrorIs(t, err, engine.ErrIncompatibleEngines)

		merged, err = engine.Merge([]*engine.Engine{a, c}, true)
		require.NoError(t, err)
		assert.Zero(t, merged.Stats().Scriptlets)
	})
}

func TestEngine_UpdateFromDiff(t *testing.T) {
	conf := engine.DefaultConfig()
	conf.LoadPreprocessors = true

	e := newEngine(t, conf, "||a.com^")
	req := func(host string) *request.Request {
		return newRequest(e, "https://"+host+"/x.js", request.TypeScript, "https://example.com")
	}

	updated := e.UpdateFromDiff(&parser.Diff{
		Added:   []string{"||b.com^", "||ff.com^"},
		Removed: []string{"||a.com^"},
		Preprocessors: map[string]*parser.PreprocessorDiff{
			"env_firefox": {Added: []string{"||ff.com^"}},
		},
	}, nil)
	require.True(t, updated)

	assert.False(t, e.Match(req("a.com"), false).Match)
	assert.True(t, e.Match(req("b.com"), false).Match)
	assert.False(t, e.Match(req("ff.com"), false).Match)

	e.UpdateEnv(preprocessor.Env{"env_firefox": true})
	assert.True(t, e.Match(req("ff.com"), false).Match)

	updated = e.UpdateFromDiff(&parser.Diff{
		Preprocessors: map[string]*parser.PreprocessorDiff{
			"env_firefox": {Removed: []string{"||ff.com^"}},
		},
	}, preprocessor.Env{})
	require.True(t, updated)
	assert.True(t, e.Match(req("ff.com"), false).Match)

	assert.False(t, e.UpdateFromDiff(&parser.Diff{}, nil))
}

func TestParse_preprocessors(t *testing.T) {
	conf := engine.DefaultConfig()
	conf.LoadPreprocessors = true

	e := newEngine(t, conf, "!#if env_firefox", "||ff.com^", "!#endif", "||all.com^")
	req := func(host string) *request.Request {
		return newRequest(e, "https://"+host+"/", request.TypeImage, "https://example.com")
	}

	assert.False(t, e.Match(req("ff.com"), false).Match)
	assert.True(t, e.Match(req("all.com"), false).Match)
	assert.Equal(t, 1, e.Stats().Excluded)

	e.UpdateEnv(preprocessor.Env{"env_firefox": true})
	assert.True(t, e.Match(req("ff.com"), false).Match)
}

func TestEngine_Block(t *testing.T) {
	tests := []struct {
		block       func(e *engine.Engine) *engine.Engine
		name        string
		typ         request.Type
		contentType string
	}{{
		block:       (*engine.Engine).BlockScripts,
		name:        "scripts",
		typ:         request.TypeScript,
		contentType: "application/javascript",
	}, {
		block:       (*engine.Engine).BlockImages,
		name:        "images",
		typ:         request.TypeImage,
		contentType: "image/gif;base64",
	}, {
		block:       (*engine.Engine).BlockMedias,
		name:        "medias",
		typ:         request.TypeMedia,
		contentType: "video/mp4",
	}, {
		block:       (*engine.Engine).BlockFrames,
		name:        "frames",
		typ:         request.TypeSubFrame,
		contentType: "text/html",
	}, {
		block: (*engine.Engine).BlockFonts,
		name:  "fonts",
		typ:   request.TypeFont,
	}, {
		block: (*engine.Engine).BlockStyles,
		name:  "styles",
		typ:   request.TypeStylesheet,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.block(engine.Empty(nil))

			res := e.Match(newRequest(e, "https://cdn.example.org/res", tc.typ, "https://example.com"), false)
			require.True(t, res.Match)

			if tc.contentType == "" {
				assert.Nil(t, res.Redirect)
			} else {
				require.NotNil(t, res.Redirect)
				assert.Equal(t, tc.contentType, res.Redirect.ContentType)
			}

			other := e.Match(newRequest(e, "https://cdn.example.org/res", request.TypeXHR, "https://example.com"), false)
			assert.False(t, other.Match)
		})
	}
}

func TestEngine_GetPatternMetadata(t *testing.T) {
	e, err := engine.FromTrackerDB([]byte(testDump), nil)
	require.NoError(t, err)

	r := newRequest(e, "https://acme-ads.com/other", request.TypeScript, "https://example.com")
	assert.Empty(t, e.GetPatternMetadata(r, false))

	infos := e.GetPatternMetadata(r, true)
	require.Len(t, infos, 1)
	assert.Equal(t, "Advertising", infos[0].Category.Name)

	assert.Nil(t, engine.Empty(nil).GetPatternMetadata(r, true))
}

// memCache is a Cache keeping the data in memory.
type memCache struct {
	data   []byte
	reads  int
	writes int
}

// type check
var _ engine.Cache = (*memCache)(nil)

// Read implements the engine.Cache interface for *memCache.
func (c *memCache) Read(_ context.Context) (data []byte, err error) {
	c.reads++
	if c.data == nil {
		return nil, errors.Error("no data")
	}

	return c.data, nil
}

// Write implements the engine.Cache interface for *memCache.
func (c *memCache) Write(_ context.Context, data []byte) (err error) {
	c.writes++
	c.data = data

	return nil
}

// mapFetcher is a Fetcher serving documents from a map.
type mapFetcher map[string]string

// Fetch implements the engine.Fetcher interface for mapFetcher.
func (f mapFetcher) Fetch(_ context.Context, url string) (data []byte, err error) {
	doc, ok := f[url]
	if !ok {
		return nil, errors.Error("not found")
	}

	return []byte(doc), nil
}

func TestFromLists(t *testing.T) {
	ctx := context.Background()
	fetcher := mapFetcher{
		"https://lists.example/ads.txt":     "||ads.com^\n",
		"https://lists.example/privacy.txt": "||tracker.com^\nexample.com##.banner\n",
		"https://lists.example/res.json":    testResources,
	}

	cache := &memCache{}
	src := &engine.ListsSource{
		Fetcher:      fetcher,
		Cache:        cache,
		URLs:         []string{"https://lists.example/ads.txt", "https://lists.example/privacy.txt"},
		ResourcesURL: "https://lists.example/res.json",
	}

	e, err := engine.FromLists(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 2, e.Stats().Filters)
	assert.Equal(t, 1, e.Stats().Scriptlets)
	assert.Len(t, e.LoadedLists(), 2)

	cached, err := engine.FromLists(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, e.Serialize(), cached.Serialize())

	t.Run("fetch_error", func(t *testing.T) {
		_, err = engine.FromLists(ctx, &engine.ListsSource{
			Fetcher: fetcher,
			URLs:    []string{"https://lists.example/missing.txt"},
		}, nil)
		require.Error(t, err)
	})

	t.Run("corrupted_cache", func(t *testing.T) {
		corrupted := &memCache{data: []byte("garbage")}
		src.Cache = corrupted

		e, err = engine.FromLists(ctx, src, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, corrupted.writes)
		assert.Equal(t, 2, e.Stats().Filters)
	})
}

func TestEngine_GetFilters(t *testing.T) {
	conf := engine.DefaultConfig()
	conf.EnableHTMLFiltering = true

	e := newEngine(t, conf,
		"||ads.com^",
		"@@||ads.com/ok^",
		"||x.com^$important",
		"||y.com^$redirect=noopjs",
		"||z.com^$csp=script-src 'none'",
		"@@||w.com^$generichide",
		"||v.com^$replace=/a/b/",
		"example.com##.ad",
		"example.com##^script:has-text(ad)",
	)

	fs := e.GetFilters()
	assert.Len(t, fs.NetworkFilters, 7)
	assert.Len(t, fs.CosmeticFilters, 2)
}
