package parser_test

import (
	"strings"
	"testing"

	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/parser"
	"github.com/bnema/adblock-engine/internal/preprocessor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadAll returns a configuration keeping every kind of filter.
func loadAll() *parser.Config {
	return &parser.Config{
		LoadNetworkFilters:          true,
		LoadCosmeticFilters:         true,
		LoadGenericCosmeticsFilters: true,
		LoadPreprocessors:           true,
	}
}

func TestDetectFilterType(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		want     models.FilterType
		extended models.FilterType
	}{{
		name:     "empty",
		line:     "",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedEmpty,
	}, {
		name:     "comment",
		line:     "! Title: EasyList",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedComment,
	}, {
		name:     "header",
		line:     "[Adblock Plus 2.0]",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedComment,
	}, {
		name:     "hash_comment",
		line:     "# comment",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedComment,
	}, {
		name:     "hostname_anchor",
		line:     "||ads.com^",
		want:     models.FilterTypeNetwork,
		extended: models.FilterTypeNetwork,
	}, {
		name:     "exception",
		line:     "@@||ads.com^",
		want:     models.FilterTypeNetwork,
		extended: models.FilterTypeNetwork,
	}, {
		name:     "options_only",
		line:     "$script,domain=example.com",
		want:     models.FilterTypeNetwork,
		extended: models.FilterTypeNetwork,
	}, {
		name:     "plain",
		line:     "banner.gif",
		want:     models.FilterTypeNetwork,
		extended: models.FilterTypeNetwork,
	}, {
		name:     "cosmetic",
		line:     "example.com##.ad",
		want:     models.FilterTypeCosmetic,
		extended: models.FilterTypeCosmetic,
	}, {
		name:     "unhide",
		line:     "example.com#@#.ad",
		want:     models.FilterTypeCosmetic,
		extended: models.FilterTypeCosmetic,
	}, {
		name:     "adguard_css",
		line:     "example.com#$#.ad { display: none; }",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedAdGuard,
	}, {
		name:     "adguard_script",
		line:     "example.com#%#window.x = 1;",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedAdGuard,
	}, {
		name:     "adguard_extended",
		line:     "example.com#?#div:has(> a)",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedAdGuard,
	}, {
		name:     "adguard_html",
		line:     "example.com$$script[data-ad]",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedAdGuard,
	}, {
		name:     "adguard_html_exception",
		line:     "example.com$@$script",
		want:     models.FilterTypeNotSupported,
		extended: models.FilterTypeNotSupportedAdGuard,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parser.DetectFilterType(tc.line, false))
			assert.Equal(t, tc.extended, parser.DetectFilterType(tc.line, true))
		})
	}
}

func TestParse(t *testing.T) {
	list := strings.Join([]string{
		"[Adblock Plus 2.0]",
		"! comment",
		"",
		"||ads.com^",
		"@@||ads.com/allowed^",
		"  example.com##.banner  ",
		"##.generic",
		"||bad.com^$unknown-option",
		"##div:has(> a)",
		"example.com#$#.ad { display: none; }",
	}, "\n")

	p := parser.New(loadAll())
	res := p.ParseString(list)

	assert.Len(t, res.NetworkFilters, 2)
	assert.Len(t, res.CosmeticFilters, 2)
	assert.Empty(t, res.Preprocessors)

	require.Len(t, res.NotSupported, 3)
	assert.Equal(t, parser.NotSupported{
		Filter:     "||bad.com^$unknown-option",
		Reason:     parser.ReasonInvalidNetwork,
		LineNumber: 7,
		Type:       models.FilterTypeNetwork,
	}, res.NotSupported[0])
	assert.Equal(t, parser.ReasonInvalidCosmetic, res.NotSupported[1].Reason)
	assert.Equal(t, models.FilterTypeNotSupportedAdGuard, res.NotSupported[2].Type)

	stats := p.Stats()
	assert.Equal(t, 9, stats.Total)
	assert.Equal(t, 1, stats.Network)
	assert.Equal(t, 1, stats.Exception)
	assert.Equal(t, 2, stats.Cosmetic)
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 3, stats.Unsupported)
	assert.Equal(t, 1, stats.SkipReasons[parser.ReasonAdGuard])

	t.Run("no_generic", func(t *testing.T) {
		conf := loadAll()
		conf.LoadGenericCosmeticsFilters = false

		res = parser.Parse(list, conf)
		require.Len(t, res.CosmeticFilters, 1)
		assert.Equal(t, ".banner", res.CosmeticFilters[0].Selector)
	})

	t.Run("network_only", func(t *testing.T) {
		res = parser.Parse(list, &parser.Config{LoadNetworkFilters: true})
		assert.Len(t, res.NetworkFilters, 2)
		assert.Empty(t, res.CosmeticFilters)
	})
}

func TestParse_Continuation(t *testing.T) {
	list := strings.Join([]string{
		`example.com##+js(set, \`,
		`    foo, bar)`,
		`||ads.com^ \`,
		`not-a-continuation.com^`,
	}, "\n")

	res := parser.Parse(list, loadAll())
	require.Len(t, res.CosmeticFilters, 1)
	assert.Equal(t, "set,foo, bar", res.CosmeticFilters[0].Selector)

	require.Len(t, res.NetworkFilters, 2)
	assert.Equal(t, "ads.com", res.NetworkFilters[0].Hostname)
}

func TestParse_Preprocessors(t *testing.T) {
	list := strings.Join([]string{
		"!#if env_firefox",
		"||firefox.com^",
		"!#if !ext_ublock",
		"||nested.com^",
		"!#endif",
		"!#else",
		"||other.com^",
		"!#endif",
		"!#if env_chromium",
		"!#endif",
		"||always.com^",
	}, "\n")

	res := parser.Parse(list, loadAll())
	require.Len(t, res.NetworkFilters, 4)
	require.Len(t, res.Preprocessors, 3)

	conds := make([]string, 0, len(res.Preprocessors))
	for _, pp := range res.Preprocessors {
		conds = append(conds, pp.Condition)
		assert.Len(t, pp.FilterIDs, 1, pp.Condition)
	}

	assert.Equal(t, []string{
		"(env_firefox)&&(!ext_ublock)",
		"env_firefox",
		"!(env_firefox)",
	}, conds)

	env := preprocessor.Env{"env_firefox": true}
	assert.True(t, res.Preprocessors[1].Evaluate(env))
	assert.False(t, res.Preprocessors[2].Evaluate(env))

	t.Run("disabled", func(t *testing.T) {
		conf := loadAll()
		conf.LoadPreprocessors = false

		res = parser.Parse(list, conf)
		assert.Len(t, res.NetworkFilters, 4)
		assert.Empty(t, res.Preprocessors)
	})
}

func TestParser_Parse(t *testing.T) {
	p := parser.New(loadAll())
	res, err := p.Parse(strings.NewReader("||ads.com^\r\nexample.com##.ad\r\n"))
	require.NoError(t, err)

	assert.Len(t, res.NetworkFilters, 1)
	assert.Len(t, res.CosmeticFilters, 1)
}

func TestLinesWithFilters(t *testing.T) {
	list := "! comment\n||ads.com^\nexample.com##.ad\n||ads.com^\n##div:has(a)\n"

	assert.Equal(t, []string{"||ads.com^", "example.com##.ad"}, parser.LinesWithFilters(list, *loadAll()))
}

func TestMergeDiffs(t *testing.T) {
	got := parser.MergeDiffs(&parser.Diff{
		Added:   []string{"a", "b"},
		Removed: []string{"c"},
		Preprocessors: map[string]*parser.PreprocessorDiff{
			"env_firefox": {Added: []string{"x"}},
		},
	}, nil, &parser.Diff{
		Added:   []string{"c"},
		Removed: []string{"a"},
		Preprocessors: map[string]*parser.PreprocessorDiff{
			"env_firefox": {Removed: []string{"x"}},
			"env_chromium": {Added: []string{"y"}},
		},
	})

	assert.Equal(t, []string{"b", "c"}, got.Added)
	assert.Equal(t, []string{"a"}, got.Removed)

	require.Contains(t, got.Preprocessors, "env_firefox")
	assert.Empty(t, got.Preprocessors["env_firefox"].Added)
	assert.Equal(t, []string{"x"}, got.Preprocessors["env_firefox"].Removed)
	assert.Equal(t, []string{"y"}, got.Preprocessors["env_chromium"].Added)
}
