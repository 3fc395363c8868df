package bucket_test

import (
	"encoding/binary"
	"testing"

	"github.com/bnema/adblock-engine/internal/bucket"
	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseNetwork is a helper parsing network filter lines.
func parseNetwork(tb testing.TB, lines ...string) (fs []*filters.NetworkFilter) {
	tb.Helper()

	for _, line := range lines {
		f := filters.ParseNetwork(line, false)
		require.NotNil(tb, f, line)

		fs = append(fs, f)
	}

	return fs
}

// parseCosmetic is a helper parsing cosmetic filter lines.
func parseCosmetic(tb testing.TB, lines ...string) (fs []*filters.CosmeticFilter) {
	tb.Helper()

	for _, line := range lines {
		f := filters.ParseCosmetic(line, false)
		require.NotNil(tb, f, line)

		fs = append(fs, f)
	}

	return fs
}

// newRequest is a helper building a request.
func newRequest(url string, typ request.Type, sourceURL string) (r *request.Request) {
	return request.New(request.Details{URL: url, Type: typ, SourceURL: sourceURL}, nil)
}

// collectStrings returns the string form of the filters visited for toks.
func collectStrings[T filters.Filter](idx *bucket.ReverseIndex[T], toks []uint32) (res []string) {
	idx.IterMatchingFilters(toks, func(f T) (cont bool) {
		res = append(res, f.String())

		return true
	})

	return res
}

func newNetworkIndex(conf *bucket.Config) (idx *bucket.ReverseIndex[*filters.NetworkFilter]) {
	return bucket.NewReverseIndex[*filters.NetworkFilter](conf, filters.DeserializeNetwork, bucket.OptimizeNetwork)
}

func TestReverseIndex_IterMatchingFilters(t *testing.T) {
	conf := &bucket.Config{}
	idx := newNetworkIndex(conf)

	fs := parseNetwork(t, "||ads.com^", "||tracker.net^", "$third-party")
	require.True(t, idx.Update(fs, nil))
	require.Equal(t, 3, idx.Size())

	tests := []struct {
		name string
		url  string
		want []string
	}{{
		name: "token_and_wildcard",
		url:  "https://ads.com/banner.js",
		want: []string{"||ads.com^", "$3p"},
	}, {
		name: "wildcard_only",
		url:  "https://example.org/",
		want: []string{"$3p"},
	}, {
		name: "other_token",
		url:  "https://tracker.net/pixel",
		want: []string{"||tracker.net^", "$3p"},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRequest(tc.url, request.TypeScript, "https://example.com")
			assert.Equal(t, tc.want, collectStrings(idx, r.Tokens()))
		})
	}

	t.Run("stop", func(t *testing.T) {
		r := newRequest("https://ads.com/banner.js", request.TypeScript, "https://example.com")

		visited := 0
		idx.IterMatchingFilters(r.Tokens(), func(_ *filters.NetworkFilter) (cont bool) {
			visited++

			return false
		})

		assert.Equal(t, 1, visited)
	})
}

func TestReverseIndex_VisitOnce(t *testing.T) {
	conf := &bucket.Config{}
	idx := bucket.NewReverseIndex[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic, nil)

	fs := parseCosmetic(t, "a.com,b.com##.ad")
	require.True(t, idx.Update(fs, nil))

	toks := append(bucket.LookupTokens("a.com", "a.com"), bucket.LookupTokens("b.com", "b.com")...)
	toks = append(toks, toks...)

	assert.Len(t, collectStrings(idx, toks), 1)
	assert.Len(t, idx.Filters(), 1)
}

func TestReverseIndex_Update(t *testing.T) {
	conf := &bucket.Config{EnableOptimizations: true}
	idx := newNetworkIndex(conf)

	fs := parseNetwork(t, "||ads.com^", "||tracker.net^")
	require.True(t, idx.Update(fs, nil))

	t.Run("noop", func(t *testing.T) {
		assert.False(t, idx.Update(nil, nil))
		assert.False(t, idx.Update(nil, map[uint32]struct{}{42: {}}))
	})

	t.Run("duplicate", func(t *testing.T) {
		assert.True(t, idx.Update(parseNetwork(t, "||ads.com^"), nil))
		assert.Equal(t, 2, idx.Size())
	})

	t.Run("remove", func(t *testing.T) {
		assert.True(t, idx.Update(nil, map[uint32]struct{}{fs[0].ID(): {}}))
		assert.Equal(t, 1, idx.Size())

		r := newRequest("https://ads.com/", request.TypeScript, "")
		assert.Empty(t, collectStrings(idx, r.Tokens()))
	})

	t.Run("remove_all", func(t *testing.T) {
		assert.True(t, idx.Update(nil, map[uint32]struct{}{fs[1].ID(): {}}))
		assert.Zero(t, idx.Size())
		assert.Equal(t, 1, idx.SerializedSize())
	})
}

func TestReverseIndex_Serialize(t *testing.T) {
	lines := []string{
		"||ads.com^",
		"||tracker.net^$script",
		"$third-party",
		"/banner/*/img^",
		"@@||ads.com^$domain=example.com",
	}

	for _, c := range []*compression.Compression{nil, compression.New()} {
		conf := &bucket.Config{Compression: c}
		idx := newNetworkIndex(conf)
		require.True(t, idx.Update(parseNetwork(t, lines...), nil))

		v := dataview.New(idx.SerializedSize(), c)
		idx.Serialize(v)
		require.Equal(t, idx.SerializedSize(), v.Pos())

		rv := dataview.FromBytes(v.Bytes(), c)
		got := bucket.DeserializeReverseIndex[*filters.NetworkFilter](
			rv,
			conf,
			filters.DeserializeNetwork,
			bucket.OptimizeNetwork,
		)
		require.NoError(t, rv.Err())

		r := newRequest("https://ads.com/banner/x/img.png", request.TypeImage, "https://example.com")
		assert.Equal(t, collectStrings(idx, r.Tokens()), collectStrings(got, r.Tokens()))
		assert.Equal(t, idx.Size(), got.Size())

		want := make([]uint32, 0, len(lines))
		for _, f := range idx.Filters() {
			want = append(want, f.ID())
		}

		gotIDs := make([]uint32, 0, len(lines))
		for _, f := range got.Filters() {
			gotIDs = append(gotIDs, f.ID())
		}

		assert.Equal(t, want, gotIDs)
	}
}

func TestDeserializeReverseIndex_corrupted(t *testing.T) {
	// Blob layout of a single filter index: u32 count, u32 offset, u32
	// bucket count, u32 token, one byte length, u32 filter index.
	tests := []struct {
		corrupt func(blob []byte)
		name    string
		want    []string
	}{{
		corrupt: func(_ []byte) {},
		name:    "intact",
		want:    []string{"||ads.com^"},
	}, {
		corrupt: func(blob []byte) { binary.BigEndian.PutUint32(blob[4:], 0x7fffff00) },
		name:    "offset",
		want:    nil,
	}, {
		corrupt: func(blob []byte) { binary.BigEndian.PutUint32(blob[17:], 42) },
		name:    "bucket_index",
		want:    nil,
	}, {
		corrupt: func(blob []byte) { binary.BigEndian.PutUint32(blob[0:], 0xffffffff) },
		name:    "count",
		want:    nil,
	}, {
		corrupt: func(blob []byte) { binary.BigEndian.PutUint32(blob[8:], 0xffffffff) },
		name:    "bucket_count",
		want:    nil,
	}}

	r := newRequest("https://ads.com/x.js", request.TypeScript, "https://example.com")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := &bucket.Config{}
			idx := newNetworkIndex(conf)
			require.True(t, idx.Update(parseNetwork(t, "||ads.com^"), nil))

			v := dataview.New(idx.SerializedSize(), nil)
			idx.Serialize(v)
			data := v.Bytes()

			blob := dataview.FromBytes(data, nil).GetBytes(false)
			require.Greater(t, len(blob), 21)
			tc.corrupt(blob)

			got := bucket.DeserializeReverseIndex[*filters.NetworkFilter](
				dataview.FromBytes(data, nil),
				conf,
				filters.DeserializeNetwork,
				bucket.OptimizeNetwork,
			)

			var res []string
			require.NotPanics(t, func() { res = collectStrings(got, r.Tokens()) })
			assert.Equal(t, tc.want, res)
			assert.Equal(t, len(tc.want), got.Size())
		})
	}
}

func TestReverseIndex_Debug(t *testing.T) {
	conf := &bucket.Config{Debug: true}
	idx := newNetworkIndex(conf)
	require.True(t, idx.Update(parseNetwork(t, "||b.com^", "||a.com^", "||c.com^"), nil))

	fs := idx.Filters()
	require.Len(t, fs, 3)

	for i := 1; i < len(fs); i++ {
		assert.Less(t, fs[i-1].ID(), fs[i].ID())
	}
}

func TestFiltersContainer(t *testing.T) {
	conf := &bucket.Config{}
	c := bucket.NewFiltersContainer[*filters.CosmeticFilter](conf, filters.DeserializeCosmetic)
	assert.Empty(t, c.Filters())
	assert.Zero(t, c.Size())

	fs := parseCosmetic(t, "##.ad", "##div[data-ad]")
	require.True(t, c.Update(fs, nil))
	assert.Equal(t, 2, c.Size())
	assert.False(t, c.Update(nil, nil))

	v := dataview.New(c.SerializedSize(), nil)
	c.Serialize(v)

	got := bucket.DeserializeFiltersContainer[*filters.CosmeticFilter](
		dataview.FromBytes(v.Bytes(), nil),
		conf,
		filters.DeserializeCosmetic,
	)
	require.Len(t, got.Filters(), 2)
	assert.Equal(t, ".ad", got.Filters()[0].Selector)

	require.True(t, c.Update(nil, map[uint32]struct{}{fs[0].ID(): {}, fs[1].ID(): {}}))
	assert.Empty(t, c.Filters())
}

func TestLookupTokens(t *testing.T) {
	toks := bucket.LookupTokens("sub.example.com", "example.com")

	assert.Contains(t, toks, tokens.HashHostnameBackward("example.com"))
	assert.Contains(t, toks, tokens.HashHostnameBackward("sub.example.com"))
	assert.Contains(t, toks, tokens.HashHostnameBackward("example"))
}
