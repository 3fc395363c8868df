package engine

import (
	"context"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/metadata"
	"github.com/bnema/adblock-engine/internal/preprocessor"
)

const (
	// ErrMergeTooFew is returned by Merge when given less than two engines.
	ErrMergeTooFew errors.Error = "merging engines requires at least two engines"

	// ErrIncompatibleEngines is returned by Merge when the engines differ in
	// configuration or resources.
	ErrIncompatibleEngines errors.Error = "incompatible engines"
)

// Merge returns an engine with the union of the filters of engines, which
// must share the same configuration.  Unless skipResources is true, they
// must share the same resources too, which are copied from the first one.
// Filters are shared with the source engines.
func Merge(engines []*Engine, skipResources bool) (e *Engine, err error) {
	if len(engines) < 2 {
		return nil, ErrMergeTooFew
	}

	first := engines[0]
	var network []*filters.NetworkFilter
	var cosmetic []*filters.CosmeticFilter
	var preprocessors []*preprocessor.Preprocessor
	var dbs []*metadata.Metadata
	seenNetwork, seenCosmetic := map[uint32]struct{}{}, map[uint32]struct{}{}
	lists := map[string]string{}

	for _, other := range engines {
		if name := first.conf.mismatch(other.conf); name != "" {
			return nil, fmt.Errorf("%w: config %q of all merged engines must be the same", ErrIncompatibleEngines, name)
		}

		fs := other.GetFilters()
		for _, f := range fs.NetworkFilters {
			if _, ok := seenNetwork[f.ID()]; !ok {
				seenNetwork[f.ID()] = struct{}{}
				network = append(network, f)
			}
		}

		for _, f := range fs.CosmeticFilters {
			if _, ok := seenCosmetic[f.ID()]; !ok {
				seenCosmetic[f.ID()] = struct{}{}
				cosmetic = append(cosmetic, f)
			}
		}

		preprocessors = append(preprocessors, other.preprocessors.Preprocessors()...)
		for name, checksum := range other.lists {
			if _, ok := lists[name]; !ok {
				lists[name] = checksum
			}
		}

		dbs = append(dbs, other.metadata)
	}

	if !skipResources {
		want := first.resources.Checksum
		for _, other := range engines[1:] {
			if got := other.resources.Checksum; got != want {
				return nil, fmt.Errorf(
					"%w: resource checksum of all merged engines must match with the first one: %q but got: %q",
					ErrIncompatibleEngines,
					want,
					got,
				)
			}
		}
	}

	e = New(&Options{
		Logger:          first.logger,
		Config:          first.conf,
		HostnameParser:  first.hostnameParser,
		Lists:           lists,
		NetworkFilters:  network,
		CosmeticFilters: cosmetic,
		Preprocessors:   preprocessors,
	})
	e.metadata = metadata.Merge(dbs...)
	if !skipResources {
		e.resources = first.resources.Copy()
	}

	e.logger.Debug("engines merged", "engines", len(engines), "network", len(network), "cosmetic", len(cosmetic))

	return e, nil
}

// Cache stores a serialized engine.
type Cache interface {
	// Read returns the stored engine.  It returns an error if there is none.
	Read(ctx context.Context) (data []byte, err error)

	// Write replaces the stored engine with data.
	Write(ctx context.Context, data []byte) (err error)
}

// FromCached returns the engine stored in cache.  If it can't be read, the
// engine is built by init and stored.  A nil cache means calling init.
func FromCached(
	ctx context.Context,
	cache Cache,
	opts *Options,
	init func(ctx context.Context) (e *Engine, err error),
) (e *Engine, err error) {
	if cache == nil {
		return init(ctx)
	}

	data, err := cache.Read(ctx)
	if err == nil {
		e, err = Deserialize(data, opts)
		if err == nil {
			return e, nil
		}
	}

	if opts != nil && opts.Logger != nil {
		opts.Logger.DebugContext(ctx, "engine cache miss", "reason", err)
	}

	e, err = init(ctx)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	if err = cache.Write(ctx, e.Serialize()); err != nil {
		return nil, fmt.Errorf("caching engine: %w", err)
	}

	return e, nil
}

// Checksum returns the checksum identifying the version of a list or
// resources distribution: the hexadecimal CRC-32 of data.
func Checksum(data []byte) (sum string) {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}

// Fetcher downloads lists and resources.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, err error)
}

// ListsSource describes the lists an engine is built from.
type ListsSource struct {
	// Fetcher downloads the lists and resources.
	Fetcher Fetcher

	// Cache stores the built engine.  It may be nil.
	Cache Cache

	// URLs are the filter lists.
	URLs []string

	// ResourcesURL is the resources distribution.  Empty means the built-in
	// fallbacks only.
	ResourcesURL string
}

// FromLists returns an engine with the filters of the lists of src, or the
// one cached in src.Cache.
func FromLists(ctx context.Context, src *ListsSource, opts *Options) (e *Engine, err error) {
	if opts == nil {
		opts = &Options{}
	}

	return FromCached(ctx, src.Cache, opts, func(ctx context.Context) (e *Engine, err error) {
		contents := make([]string, 0, len(src.URLs))
		lists := make(map[string]string, len(src.URLs))
		for _, u := range src.URLs {
			data, fetchErr := src.Fetcher.Fetch(ctx, u)
			if fetchErr != nil {
				return nil, fmt.Errorf("fetching list %q: %w", u, fetchErr)
			}

			contents = append(contents, string(data))
			lists[u] = Checksum(data)
		}

		var res []byte
		if src.ResourcesURL != "" {
			res, err = src.Fetcher.Fetch(ctx, src.ResourcesURL)
			if err != nil {
				return nil, fmt.Errorf("fetching resources: %w", err)
			}
		}

		o := *opts
		o.Lists = lists
		e, _ = Parse(strings.Join(contents, "\n"), &o)
		if res != nil {
			if _, err = e.UpdateResources(res, Checksum(res)); err != nil {
				return nil, err
			}
		}

		return e, nil
	})
}

// FromTrackerDB returns an engine with the filters of the patterns of the
// tracker database dump, which it keeps as its metadata.
func FromTrackerDB(dump []byte, opts *Options) (e *Engine, err error) {
	m, err := metadata.Parse(dump)
	if err != nil {
		return nil, fmt.Errorf("parsing tracker database: %w", err)
	}

	var lines []string
	for _, p := range m.Patterns.Values() {
		lines = append(lines, p.Filters...)
	}

	if opts == nil {
		opts = &Options{}
	}

	e, _ = Parse(strings.Join(lines, "\n"), opts)
	e.metadata = m

	return e, nil
}
