package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/bnema/adblock-engine/internal/cache"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// testList is the list the engines of the tests are built from.
const testList = `||ads.example.com^
@@||ads.example.com/allowed^
example.com##.banner`

func newCaches(t *testing.T) (caches map[string]cache.Cache) {
	t.Helper()

	dir := t.TempDir()
	logger := slogutil.NewDiscardLogger()

	b, err := cache.OpenBolt(filepath.Join(dir, "engines.db"), "", logger)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, b.Close)

	return map[string]cache.Cache{
		"file": cache.NewFile(filepath.Join(dir, "engine.bin"), logger),
		"bolt": b,
	}
}

func TestCache(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testutil.ContextWithTimeout(t, testTimeout)

			_, err := c.Read(ctx)
			require.ErrorIs(t, err, cache.ErrNoEngine)

			require.NoError(t, c.Write(ctx, []byte{1, 2, 3}))
			require.NoError(t, c.Write(ctx, []byte{4, 5}))

			data, err := c.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, []byte{4, 5}, data)
		})
	}
}

func TestCache_fromCached(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testutil.ContextWithTimeout(t, testTimeout)

			builds := 0
			build := func(_ context.Context) (e *engine.Engine, err error) {
				builds++
				e, _ = engine.Parse(testList, nil)

				return e, nil
			}

			first, err := engine.FromCached(ctx, c, nil, build)
			require.NoError(t, err)

			second, err := engine.FromCached(ctx, c, nil, build)
			require.NoError(t, err)

			assert.Equal(t, 1, builds)
			assert.Equal(t, first.Serialize(), second.Serialize())

			r := second.NewRequest(request.Details{
				URL:       "https://ads.example.com/script.js",
				SourceURL: "https://news.example.org/",
				Type:      request.TypeScript,
			})
			assert.True(t, second.Match(r, false).Match)
		})
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		conf       *models.CacheConfig
		name       string
		wantErrMsg string
		wantNil    bool
	}{{
		conf:    &models.CacheConfig{},
		name:    "default",
		wantNil: true,
	}, {
		conf:    &models.CacheConfig{Backend: models.CacheBackendNone},
		name:    "none",
		wantNil: true,
	}, {
		conf: &models.CacheConfig{Backend: models.CacheBackendFile, Path: filepath.Join(dir, "e.bin")},
		name: "file",
	}, {
		conf: &models.CacheConfig{
			Backend: models.CacheBackendBolt,
			Path:    filepath.Join(dir, "e.db"),
			Bucket:  "custom",
		},
		name: "bolt",
	}, {
		conf:       &models.CacheConfig{Backend: "redis"},
		name:       "unknown",
		wantErrMsg: `unknown cache backend: "redis"`,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := cache.New(tc.conf, nil)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)
			if tc.wantErrMsg != "" {
				return
			}

			if tc.wantNil {
				assert.Nil(t, c)

				return
			}

			require.NotNil(t, c)
			testutil.CleanupAndRequireSuccess(t, c.Close)
		})
	}
}
