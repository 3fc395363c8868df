package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/cache"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/metrics"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the engine whenever a local list changes",
	Long: `Builds the engine, then rebuilds and caches it every time one of the
lists configured with a path is written.  With --metrics, the engine events
are exposed on /metrics and requests can be matched on /match.`,
	RunE: runWatch,
}

// shutdownTimeout is how long the metrics server has to finish on exit.
const shutdownTimeout = 5 * time.Second

func runWatch(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	logger, err := newLogger()
	if err != nil {
		return err
	}

	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return err
	} else if c != nil {
		defer func() { err = errors.WithDeferred(err, c.Close()) }()
	}

	current := &atomic.Pointer[engine.Engine]{}
	if !withMetrics && !cfg.Metrics.Enabled {
		return watchLists(ctx, logger, c, nil, current)
	}

	reg := prometheus.NewRegistry()
	listener, err := metrics.NewListener(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           newMux(reg, current),
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		defer slogutil.RecoverAndLog(ctx, logger)

		logger.InfoContext(ctx, "serving metrics", "addr", srv.Addr)
		if srvErr := srv.ListenAndServe(); !errors.Is(srvErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "serving metrics", slogutil.KeyError, srvErr)
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err = errors.WithDeferred(err, srv.Shutdown(shutdownCtx))
	}()

	return watchLists(ctx, logger, c, listener, current)
}

// watchLists builds the engine into current and rebuilds it on changes of
// the local lists until ctx is done.
func watchLists(
	ctx context.Context,
	logger *slog.Logger,
	c cache.Cache,
	listener engine.Listener,
	current *atomic.Pointer[engine.Engine],
) (err error) {
	rebuild := func() (rebuildErr error) {
		e, stats, rebuildErr := buildEngine(ctx, logger, "", false)
		if rebuildErr != nil {
			return rebuildErr
		}

		printStats(stats)
		if listener != nil {
			e.AddListener(listener)
		}
		current.Store(e)

		if c != nil {
			return c.Write(ctx, e.Serialize())
		}

		return nil
	}

	if err = rebuild(); err != nil {
		return err
	}

	w, err := watcher.New(logger)
	if err != nil {
		return err
	}

	for _, list := range cfg.EnabledLists() {
		if list.Path == "" {
			continue
		}

		if err = w.Add(list.Path); err != nil {
			return errors.WithDeferred(err, w.Shutdown(ctx))
		}
		fmt.Printf("Watching %s\n", list.Path)
	}

	if err = w.Start(ctx); err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, w.Shutdown(context.WithoutCancel(ctx))) }()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped")

			return nil
		case name, ok := <-w.Events():
			if !ok {
				return nil
			}

			fmt.Printf("\n%s changed, rebuilding...\n", name)
			if err = rebuild(); err != nil {
				logger.ErrorContext(ctx, "rebuilding engine", slogutil.KeyError, err)
			}
		}
	}
}

// newMux returns the handler of the metrics server.
func newMux(reg prometheus.Gatherer, current *atomic.Pointer[engine.Engine]) (mux *http.ServeMux) {
	mux = http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /match", func(w http.ResponseWriter, r *http.Request) {
		e := current.Load()
		if e == nil {
			http.Error(w, "engine not ready", http.StatusServiceUnavailable)

			return
		}

		q := r.URL.Query()
		res := e.Match(e.NewRequest(request.Details{
			URL:       q.Get("url"),
			SourceURL: q.Get("source"),
			Type:      request.Type(q.Get("type")),
		}), false)

		switch {
		case res.Redirect != nil:
			_, _ = fmt.Fprintf(w, "redirect %s\n", res.Redirect.DataURL)
		case res.Match:
			_, _ = fmt.Fprintln(w, "block")
		default:
			_, _ = fmt.Fprintln(w, "allow")
		}
	})

	return mux
}
