// Package fetcher downloads filter lists and resources.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/c2h5oh/datasize"
)

// ErrTooLarge is returned when a list is bigger than the configured maximum
// size.
const ErrTooLarge errors.Error = "content too large"

// Defaults used for the zero values of models.HTTPConfig.
const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
	DefaultMaxSize = 64 * datasize.MB
)

// userAgent is sent with every request.
const userAgent = "adblock-engine/1.0"

// Fetcher downloads filter lists
type Fetcher struct {
	logger  *slog.Logger
	client  *http.Client
	backoff time.Duration
	maxSize datasize.ByteSize
	retries int
}

// type check
var _ engine.Fetcher = (*Fetcher)(nil)

// New creates a new fetcher from config.  A nil logger means discard.
func New(cfg models.HTTPConfig, logger *slog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	retries := cfg.Retries
	if retries == 0 {
		retries = DefaultRetries
	}

	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	return &Fetcher{
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
		backoff: time.Second,
		maxSize: maxSize,
		retries: retries,
	}
}

// Fetch downloads content from a URL with retries.  Locations without an
// http or https scheme are read from the local filesystem, with an optional
// file:// prefix.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := localPath(url); ok {
		return f.readFile(path)
	}

	var lastErr error

	for i := 0; i < f.retries; i++ {
		if i > 0 {
			// Linear backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * f.backoff):
			}
		}

		data, err := f.doFetch(ctx, url)
		if err == nil {
			f.logger.DebugContext(ctx, "fetched", "url", url, "size", datasize.ByteSize(len(data)))

			return data, nil
		} else if errors.Is(err, ErrTooLarge) {
			return nil, err
		}

		f.logger.DebugContext(ctx, "fetch attempt failed", "url", url, "attempt", i+1, slogutil.KeyError, err)
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d retries: %w", f.retries, lastErr)
}

func (f *Fetcher) doFetch(ctx context.Context, url string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return f.readLimited(resp.Body)
}

// readFile reads a local list.
func (f *Fetcher) readFile(path string) (data []byte, err error) {
	file, err := os.Open(path)
	if err != nil {
		// Don't wrap the error since it's informative enough as is.
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, file.Close()) }()

	return f.readLimited(file)
}

// readLimited reads r up to the maximum size.
func (f *Fetcher) readLimited(r io.Reader) (data []byte, err error) {
	limit := f.maxSize.Bytes()
	data, err = io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}

	if uint64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, f.maxSize)
	}

	return data, nil
}

// localPath returns the filesystem path of loc, if it is not an HTTP URL.
func localPath(loc string) (path string, ok bool) {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return "", false
	}

	return strings.TrimPrefix(loc, "file://"), true
}
