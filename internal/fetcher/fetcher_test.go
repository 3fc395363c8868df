package fetcher

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 5 * time.Second

func newTestFetcher(cfg models.HTTPConfig) *Fetcher {
	f := New(cfg, nil)
	f.backoff = time.Millisecond

	return f
}

func TestFetcher_Fetch(t *testing.T) {
	const list = "||ads.example.com^\n##.banner\n"

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch r.URL.Path {
		case "/list.txt":
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(list))
		case "/flaky.txt":
			if n%2 == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}
			_, _ = w.Write([]byte(list))
		case "/big.txt":
			_, _ = w.Write(make([]byte, 2*datasize.KB))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	f := newTestFetcher(models.HTTPConfig{Retries: 2, MaxSize: datasize.KB})

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "ok", path: "/list.txt", want: list},
		{name: "retried", path: "/flaky.txt", want: list},
		{name: "not_found", path: "/missing.txt", wantErr: true},
		{name: "too_large", path: "/big.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)
			ctx := testutil.ContextWithTimeout(t, testTimeout)

			data, err := f.Fetch(ctx, srv.URL+tt.path)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	t.Run("too_large_not_retried", func(t *testing.T) {
		calls.Store(0)
		ctx := testutil.ContextWithTimeout(t, testTimeout)

		_, err := f.Fetch(ctx, srv.URL+"/big.txt")
		require.ErrorIs(t, err, ErrTooLarge)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestFetcher_Fetch_local(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(path, []byte("||local.example^"), 0o600))

	f := newTestFetcher(models.HTTPConfig{})

	for _, loc := range []string{path, "file://" + path} {
		ctx := testutil.ContextWithTimeout(t, testTimeout)
		data, err := f.Fetch(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, "||local.example^", string(data))
	}

	_, err := f.Fetch(testutil.ContextWithTimeout(t, testTimeout), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_defaults(t *testing.T) {
	f := New(models.HTTPConfig{}, nil)

	assert.Equal(t, DefaultTimeout, f.client.Timeout)
	assert.Equal(t, DefaultRetries, f.retries)
	assert.Equal(t, DefaultMaxSize, f.maxSize)
}
