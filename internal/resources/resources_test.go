package resources_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResources = `{
	"redirects": [{
		"name": "noop.js",
		"aliases": ["noopjs"],
		"body": "(function() {})()",
		"contentType": "application/javascript"
	}, {
		"name": "noop.txt",
		"aliases": [],
		"body": "",
		"contentType": "text/plain;charset=utf-8"
	}],
	"scriptlets": [{
		"name": "set-constant.js",
		"aliases": ["set", "set-constant"],
		"body": "function setConstant(a, b) { safe(); }",
		"dependencies": ["safe.fn"],
		"executionWorld": "MAIN"
	}, {
		"name": "safe.fn",
		"aliases": [],
		"body": "function safe() { base(); }",
		"dependencies": ["base.fn"]
	}, {
		"name": "base.fn",
		"aliases": [],
		"body": "function base() {}",
		"dependencies": [],
		"requiresTrust": true
	}]
}`

// newTestResources is a helper parsing testResources.
func newTestResources(tb testing.TB) (r *resources.Resources) {
	tb.Helper()

	r, err := resources.Parse([]byte(testResources), "abc")
	require.NoError(tb, err)

	return r
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{{
		name:    "not_object",
		data:    `[1, 2]`,
		wantErr: "cannot parse resources.json",
	}, {
		name:    "bad_redirect",
		data:    `{"redirects": [{"name": "a"}]}`,
		wantErr: `cannot parse redirect resource: {"name": "a"}`,
	}, {
		name:    "bad_scriptlet",
		data:    `{"scriptlets": [{"name": "a", "aliases": [], "body": "", "dependencies": [], "executionWorld": "X"}]}`,
		wantErr: `cannot parse scriptlet: {"name": "a", "aliases": [], "body": "", "dependencies": [], "executionWorld": "X"}`,
	}, {
		name: "duplicate_resource",
		data: `{"redirects": [
			{"name": "a", "aliases": ["b"], "body": "", "contentType": "text/plain"},
			{"name": "b", "aliases": [], "body": "", "contentType": "text/plain"}
		]}`,
		wantErr: `resource "b": name or alias already exists`,
	}, {
		name: "duplicate_scriptlet",
		data: `{"scriptlets": [
			{"name": "a.js", "aliases": ["a"], "body": "", "dependencies": []},
			{"name": "a", "aliases": [], "body": "", "dependencies": []}
		]}`,
		wantErr: `scriptlet "a": name or alias already exists`,
	}, {
		name:    "missing_dependency",
		data:    `{"scriptlets": [{"name": "a.js", "aliases": [], "body": "", "dependencies": ["b.fn"]}]}`,
		wantErr: `scriptlet "a.js" needs "b.fn": missing dependency`,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resources.Parse([]byte(tc.data), "")
			if strings.HasPrefix(tc.wantErr, "cannot parse resources.json") {
				require.ErrorIs(t, err, resources.ErrInvalidResources)

				return
			}

			testutil.AssertErrorMsg(t, tc.wantErr, err)
		})
	}
}

func TestResources_GetResource(t *testing.T) {
	r := newTestResources(t)

	t.Run("alias", func(t *testing.T) {
		red := r.GetResource("noopjs")
		assert.Equal(t, "(function() {})()", red.Body)
		assert.Equal(t, "application/javascript", red.ContentType)

		encoded := base64.StdEncoding.EncodeToString([]byte(red.Body))
		assert.Equal(t, "data:application/javascript;base64,"+encoded, red.DataURL)
	})

	t.Run("parameterized_type", func(t *testing.T) {
		red := r.GetResource("noop.txt")
		assert.Equal(t, "data:text/plain;charset=utf-8,", red.DataURL)
	})

	t.Run("fallback_extension", func(t *testing.T) {
		red := r.GetResource("1x1.gif")
		assert.Equal(t, "image/gif;base64", red.ContentType)
		assert.True(t, strings.HasPrefix(red.DataURL, "data:image/gif;base64,R0lGOD"))
	})

	t.Run("fallback_mime", func(t *testing.T) {
		red := r.GetResource("text/html")
		assert.Equal(t, "text/html", red.ContentType)
	})

	t.Run("fallback_unknown", func(t *testing.T) {
		red := r.GetResource("unknown-resource")
		assert.Equal(t, "text/plain", red.ContentType)
		assert.Empty(t, red.Body)
	})
}

func TestResources_GetScriptlet(t *testing.T) {
	r := newTestResources(t)

	script, ok := r.GetScriptlet("set")
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(script, "if (typeof scriptletGlobals === 'undefined')"))
	assert.Contains(t, script, ";function safe() { base(); };function base() {};")
	assert.Contains(t, script, "(function setConstant(a, b) { safe(); })(...['{{1}}','{{2}}'")
	assert.Contains(t, script, "map((a) => decodeURIComponent(a)))")

	cached, ok := r.GetScriptlet("set-constant.js")
	require.True(t, ok)

	assert.Equal(t, script, cached)

	t.Run("dependency_only", func(t *testing.T) {
		_, ok = r.GetScriptlet("safe.fn")
		assert.False(t, ok)
	})

	t.Run("surrogate", func(t *testing.T) {
		body, ok := r.GetScriptlet("noop")
		require.True(t, ok)

		assert.Equal(t, "(function() {})()", body)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok = r.GetScriptlet("missing")
		assert.False(t, ok)
	})

	t.Run("canonical_name", func(t *testing.T) {
		assert.Equal(t, "set-constant.js", r.CanonicalName("set"))
		assert.Equal(t, "missing", r.CanonicalName("missing"))
	})
}

func TestResources_Serialize(t *testing.T) {
	r := newTestResources(t)

	v := dataview.New(r.SerializedSize(), nil)
	r.Serialize(v)
	require.Equal(t, r.SerializedSize(), v.Pos())

	got, err := resources.Deserialize(dataview.FromBytes(v.Bytes(), nil))
	require.NoError(t, err)

	assert.Equal(t, r.Checksum, got.Checksum)
	assert.Equal(t, r.Resources, got.Resources)
	assert.Equal(t, r.Scriptlets, got.Scriptlets)

	t.Run("truncated", func(t *testing.T) {
		_, err = resources.Deserialize(dataview.FromBytes(v.Bytes()[:v.Pos()/2], nil))
		assert.ErrorIs(t, err, dataview.ErrTruncated)
	})
}

func TestResources_Copy(t *testing.T) {
	r := newTestResources(t)
	c := r.Copy()

	assert.Equal(t, r.Resources, c.Resources)
	assert.Equal(t, r.Scriptlets, c.Scriptlets)

	c.Scriptlets[0].Aliases[0] = "changed"
	assert.Equal(t, "set", r.Scriptlets[0].Aliases[0])
}
