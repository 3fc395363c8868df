package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/cache"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/fetcher"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/parser"
	"github.com/bnema/adblock-engine/internal/preprocessor"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch the lists, build the engine and cache it",
	RunE:  runBuild,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the contents of a serialized engine",
	RunE:  runInspect,
}

func runBuild(cmd *cobra.Command, args []string) (err error) {
	trackerDB, _ := cmd.Flags().GetString("trackerdb")
	verbose, _ := cmd.Flags().GetBool("verbose")

	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, stats, err := buildEngine(ctx, logger, trackerDB, verbose)
	if err != nil {
		return err
	}

	printStats(stats)

	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return err
	} else if c == nil {
		fmt.Println("\nCache disabled, engine not written")

		return nil
	}
	defer func() { err = errors.WithDeferred(err, c.Close()) }()

	data := e.Serialize()
	if err = c.Write(ctx, data); err != nil {
		return err
	}

	fmt.Printf("\nEngine written to %s cache %s (%d bytes)\n", cfg.Cache.Backend, cfg.Cache.Path, len(data))

	return nil
}

// buildEngine fetches and parses the enabled lists and returns the engine
// with their filters.  trackerDB is the optional tracker database dump merged
// into it.
func buildEngine(
	ctx context.Context,
	logger *slog.Logger,
	trackerDB string,
	verbose bool,
) (e *engine.Engine, stats parser.Stats, err error) {
	enabledLists := cfg.EnabledLists()
	if len(enabledLists) == 0 {
		return nil, stats, fmt.Errorf("no enabled filter lists found in config")
	}

	conf := engine.ConfigFromModel(&cfg.Engine)
	f := fetcher.New(cfg.HTTP, logger)
	p := parser.New(conf.ParserConfig())

	var network []*filters.NetworkFilter
	var cosmetic []*filters.CosmeticFilter
	var preprocessors []*preprocessor.Preprocessor
	lists := map[string]string{}

	fmt.Printf("Building engine from %d filter lists...\n", len(enabledLists))
	for _, list := range enabledLists {
		fmt.Printf("\n  Processing %s...\n", list.Name)

		data, fetchErr := f.Fetch(ctx, list.Source())
		if fetchErr != nil {
			fmt.Printf("    ERROR: %v\n", fetchErr)
			logger.WarnContext(ctx, "skipping list", "name", list.Name, slogutil.KeyError, fetchErr)

			continue
		}
		fmt.Printf("    Downloaded: %d bytes\n", len(data))

		res := p.ParseString(string(data))
		fmt.Printf(
			"    Parsed: %d network, %d cosmetic, %d unsupported\n",
			len(res.NetworkFilters),
			len(res.CosmeticFilters),
			len(res.NotSupported),
		)

		if verbose {
			for _, ns := range res.NotSupported {
				fmt.Printf("      line %d (%s): %s\n", ns.LineNumber+1, ns.Reason, ns.Filter)
			}
		}

		network = append(network, res.NetworkFilters...)
		cosmetic = append(cosmetic, res.CosmeticFilters...)
		preprocessors = append(preprocessors, res.Preprocessors...)
		lists[list.Name] = engine.Checksum(data)
	}

	opts := &engine.Options{
		Logger: logger,
		Config: conf,
	}

	e = engine.New(&engine.Options{
		Logger:          logger,
		Config:          conf,
		Lists:           lists,
		NetworkFilters:  network,
		CosmeticFilters: cosmetic,
		Preprocessors:   preprocessors,
	})

	if trackerDB != "" {
		e, err = mergeTrackerDB(e, trackerDB, opts)
		if err != nil {
			return nil, stats, err
		}
	}

	if cfg.Engine.ResourcesURL != "" {
		res, fetchErr := f.Fetch(ctx, cfg.Engine.ResourcesURL)
		if fetchErr != nil {
			return nil, stats, fmt.Errorf("fetching resources: %w", fetchErr)
		}

		if _, err = e.UpdateResources(res, engine.Checksum(res)); err != nil {
			return nil, stats, err
		}
	}

	e.UpdateEnv(cfg.Engine.Env)

	return e, p.Stats(), nil
}

// mergeTrackerDB returns e merged with the engine built from the tracker
// database dump at path.
func mergeTrackerDB(e *engine.Engine, path string, opts *engine.Options) (merged *engine.Engine, err error) {
	dump, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tracker database: %w", err)
	}

	db, err := engine.FromTrackerDB(dump, opts)
	if err != nil {
		return nil, err
	}

	// Resources are loaded after merging.
	return engine.Merge([]*engine.Engine{e, db}, true)
}

// printStats prints the parsing statistics.
func printStats(s parser.Stats) {
	fmt.Printf("\nParsed %d lines: %d network, %d exceptions, %d cosmetic, %d comments, %d preprocessor directives\n",
		s.Total, s.Network, s.Exception, s.Cosmetic, s.Comments, s.Preprocessor)

	if len(s.SkipReasons) == 0 {
		return
	}

	fmt.Printf("\nSkipped filters summary:\n")
	for _, reason := range slices.Sorted(maps.Keys(s.SkipReasons)) {
		fmt.Printf("  %s: %d\n", reason, s.SkipReasons[reason])
	}
}

// loadEngine returns the cached engine, building and caching it from the
// lists if there is none.
func loadEngine(ctx context.Context, logger *slog.Logger) (e *engine.Engine, err error) {
	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var ec engine.Cache
	if c != nil {
		defer func() { err = errors.WithDeferred(err, c.Close()) }()
		ec = c
	}

	opts := &engine.Options{Logger: logger}

	return engine.FromCached(ctx, ec, opts, func(ctx context.Context) (e *engine.Engine, err error) {
		e, _, err = buildEngine(ctx, logger, "", false)

		return e, err
	})
}

func runInspect(cmd *cobra.Command, args []string) (err error) {
	file, _ := cmd.Flags().GetString("file")

	logger, err := newLogger()
	if err != nil {
		return err
	}

	var data []byte
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = readCache(cmd.Context(), logger)
	}
	if err != nil {
		return err
	}

	e, err := engine.Deserialize(data, &engine.Options{Logger: logger})
	if err != nil {
		return err
	}

	s := e.Stats()
	fmt.Printf("Engine version %d, %d bytes\n\n", engine.Version, len(data))
	fmt.Printf("  important:        %d\n", s.Importants)
	fmt.Printf("  redirect:         %d\n", s.Redirects)
	fmt.Printf("  blocking:         %d\n", s.Filters)
	fmt.Printf("  exceptions:       %d\n", s.Exceptions)
	fmt.Printf("  csp:              %d\n", s.CSP)
	fmt.Printf("  hide exceptions:  %d\n", s.HideExceptions)
	fmt.Printf("  cosmetic:         %d\n", s.Cosmetics)
	fmt.Printf("  html:             %d\n", s.HTMLFilters)
	fmt.Printf("  preprocessors:    %d (%d filters excluded)\n", s.Preprocessors, s.Excluded)
	fmt.Printf("  resources:        %d (%d scriptlets)\n", s.Resources, s.Scriptlets)

	fmt.Printf("\nLoaded lists:\n")
	for _, name := range e.LoadedLists() {
		fmt.Printf("  %s\n", name)
	}

	if e.Metadata() != nil {
		fmt.Printf("\nTracker database loaded\n")
	}

	return nil
}

// readCache returns the serialized engine stored in the configured cache.
func readCache(ctx context.Context, logger *slog.Logger) (data []byte, err error) {
	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return nil, err
	} else if c == nil {
		return nil, fmt.Errorf("cache disabled, use --file")
	}
	defer func() { err = errors.WithDeferred(err, c.Close()) }()

	return c.Read(ctx)
}
