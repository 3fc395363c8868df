package tokens_test

import (
	"testing"

	"github.com/bnema/adblock-engine/internal/tokens"
	"github.com/stretchr/testify/assert"
)

func hashes(strs ...string) (res []uint32) {
	return tokens.HashStrings(nil, strs)
}

func TestFastHash(t *testing.T) {
	assert.Equal(t, tokens.HashSeed, tokens.FastHash(""))
	assert.Equal(t, tokens.FastHash("bar"), tokens.FastHashBetween("foobar", 3, 6))
	assert.NotEqual(t, tokens.FastHash("ab"), tokens.FastHash("ba"))
	assert.Equal(t, tokens.FastHash("moc.elpmaxe"), tokens.HashHostnameBackward("example.com"))
}

func TestAppendNoSkip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []uint32
	}{{
		name: "url",
		in:   "https://ads.example.com/a/banner.js",
		want: hashes("https", "ads", "example", "com", "banner", "js"),
	}, {
		name: "empty",
		in:   "",
		want: nil,
	}, {
		name: "percent",
		in:   "foo%20bar",
		want: hashes("foo%20bar"),
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tokens.AppendNoSkip(nil, tc.in))
		})
	}
}

func TestAppendWithWildcards(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		skipFirst bool
		skipLast  bool
		want      []uint32
	}{{
		name: "no_skip",
		in:   "foo/bar",
		want: hashes("foo", "bar"),
	}, {
		name:      "skip_both",
		in:        "foo/baz/bar",
		skipFirst: true,
		skipLast:  true,
		want:      hashes("baz"),
	}, {
		name: "wildcards",
		in:   "foo*/baz/*bar/qux",
		want: hashes("baz", "qux"),
	}, {
		name:      "skip_first_only_at_start",
		in:        "/foo/",
		skipFirst: true,
		want:      hashes("foo"),
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tokens.AppendWithWildcards(nil, tc.in, tc.skipFirst, tc.skipLast)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAppendRegex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []uint32
	}{{
		name: "alternation",
		in:   "foo|bar",
		want: nil,
	}, {
		name: "anchored_literal",
		in:   "^https://ads\\.example/banner$",
		want: hashes("https", "ads", "example", "banner"),
	}, {
		name: "prefix_and_suffix",
		in:   "/ads/track[0-9]+/pixel/gif",
		want: hashes("ads", "pixel"),
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tokens.AppendRegex(nil, tc.in))
		})
	}
}

func TestAppendLabelHashesBackward(t *testing.T) {
	got := tokens.AppendLabelHashesBackward(nil, "a.b.example.com", 15, 15-len("example.com"))
	want := []uint32{
		tokens.HashHostnameBackward("example.com"),
		tokens.HashHostnameBackward("b.example.com"),
		tokens.HashHostnameBackward("a.b.example.com"),
	}
	assert.Equal(t, want, got)
}

func TestCompact(t *testing.T) {
	assert.Equal(t, []uint32{1, 2, 3}, tokens.Compact([]uint32{3, 1, 2, 3, 1}))
	assert.True(t, tokens.HasSorted([]uint32{1, 5, 9}, 5))
	assert.False(t, tokens.HasSorted([]uint32{1, 5, 9}, 6))
}
