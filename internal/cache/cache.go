// Package cache stores serialized engines so that they can be loaded without
// fetching and parsing the lists again.
package cache

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/google/renameio/v2"
)

// ErrNoEngine is returned by Read when no engine is stored.
const ErrNoEngine errors.Error = "no cached engine"

// ErrUnknownBackend is returned by New for unsupported backends.
const ErrUnknownBackend errors.Error = "unknown cache backend"

// DefaultPermFile is the permission of the files written by the caches.
const DefaultPermFile fs.FileMode = 0o600

// Cache is an engine cache that must be closed after use.
type Cache interface {
	engine.Cache

	Close() (err error)
}

// New returns the cache described by conf.  It returns nil for the none
// backend.
func New(conf *models.CacheConfig, logger *slog.Logger) (c Cache, err error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	switch conf.Backend {
	case "", models.CacheBackendNone:
		return nil, nil
	case models.CacheBackendFile:
		return NewFile(conf.Path, logger), nil
	case models.CacheBackendBolt:
		var b *Bolt
		b, err = OpenBolt(conf.Path, conf.Bucket, logger)
		if err != nil {
			return nil, err
		}

		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, conf.Backend)
	}
}

// File stores an engine in a single file, replaced atomically on writes.
type File struct {
	logger *slog.Logger
	path   string
}

// type check
var _ Cache = (*File)(nil)

// NewFile returns a cache storing the engine at path.
func NewFile(path string, logger *slog.Logger) (f *File) {
	return &File{
		logger: logger,
		path:   path,
	}
}

// Read implements the [engine.Cache] interface for *File.
func (f *File) Read(ctx context.Context) (data []byte, err error) {
	data, err = os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoEngine
	} else if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	f.logger.DebugContext(ctx, "read cached engine", "path", f.path, "size", len(data))

	return data, nil
}

// Write implements the [engine.Cache] interface for *File.
func (f *File) Write(ctx context.Context, data []byte) (err error) {
	defer func() { err = errors.Annotate(err, "writing cache file: %w") }()

	pf, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(DefaultPermFile))
	if err != nil {
		// Don't wrap the error since it's informative enough as is.
		return err
	}
	defer func() { err = withDeferredCleanup(err, pf) }()

	if _, err = pf.Write(data); err != nil {
		return err
	}

	f.logger.DebugContext(ctx, "cached engine", "path", f.path, "size", len(data))

	return nil
}

// Close implements the [Cache] interface for *File.
func (f *File) Close() (err error) { return nil }

// withDeferredCleanup replaces the destination of pf by it if returned is
// nil and removes pf otherwise.
func withDeferredCleanup(returned error, pf *renameio.PendingFile) (err error) {
	if returned != nil {
		return errors.WithDeferred(returned, pf.Cleanup())
	}

	return errors.WithDeferred(nil, pf.CloseAtomicallyReplace())
}
