// Package watcher notifies about changes of local filter lists.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/AdguardTeam/golibs/container"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fsnotify/fsnotify"
)

// Watcher tracks local list files and sends the path of every changed one on
// its events channel.  Bursts of events for the same file are coalesced.
type Watcher struct {
	logger *slog.Logger

	// filesMu protects files.
	filesMu *sync.RWMutex

	watcher *fsnotify.Watcher
	events  chan string

	// files maps directories to the files tracked in them.
	files map[string]*container.MapSet[string]
}

// New returns a watcher.  l must not be nil.
func New(l *slog.Logger) (w *Watcher, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		logger:  l,
		filesMu: &sync.RWMutex{},
		watcher: watcher,
		events:  make(chan string, 1),
		files:   map[string]*container.MapSet[string]{},
	}, nil
}

// Start starts handling the events until Shutdown is called.
func (w *Watcher) Start(ctx context.Context) (err error) {
	go w.handleErrors(ctx)
	go w.handleEvents(ctx)

	return nil
}

// Shutdown stops the watcher and closes the events channel.
func (w *Watcher) Shutdown(_ context.Context) (err error) {
	return w.watcher.Close()
}

// Events returns the channel of the paths of the changed files.
func (w *Watcher) Events() (e <-chan string) {
	return w.events
}

// Add starts tracking the file at name, which must exist.
func (w *Watcher) Add(name string) (err error) {
	defer func() { err = errors.Annotate(err, "watcher: %w") }()

	name, err = filepath.Abs(name)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", name, err)
	}

	if _, err = os.Stat(name); err != nil {
		return fmt.Errorf("checking file %q: %w", name, err)
	}

	// Editors often replace files instead of writing them, so the directory
	// is watched and the events are filtered by name.
	dirName := filepath.Dir(name)

	w.filesMu.Lock()
	defer w.filesMu.Unlock()

	names := w.files[dirName]
	if names == nil {
		names = container.NewMapSet[string]()
		w.files[dirName] = names
	}
	names.Add(name)

	if err = w.watcher.Add(dirName); err != nil {
		return fmt.Errorf("adding %q: %w", dirName, err)
	}

	return nil
}

// handleEvents sends the tracked files written or created.  It is intended
// to be used as a goroutine.
func (w *Watcher) handleEvents(ctx context.Context) {
	defer slogutil.RecoverAndLog(ctx, w.logger)

	defer close(w.events)

	ch := w.watcher.Events
	for e := range ch {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) || !w.isTracked(e.Name) {
			continue
		}

		skipDuplicates(ch)

		select {
		case w.events <- e.Name:
			w.logger.DebugContext(ctx, "list changed", "path", e.Name)
		default:
			w.logger.DebugContext(ctx, "events buffer is full")
		}
	}
}

// isTracked returns true if the file at name is tracked.
func (w *Watcher) isTracked(name string) (ok bool) {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()

	names := w.files[filepath.Dir(name)]

	return names != nil && names.Has(name)
}

// skipDuplicates drains ch, assuming that some events occur multiple times.
func skipDuplicates(ch <-chan fsnotify.Event) {
	for {
		select {
		case <-ch:
			// Go on.
		default:
			return
		}
	}
}

// handleErrors logs the errors of the watcher.  It is intended to be used as
// a goroutine.
func (w *Watcher) handleErrors(ctx context.Context) {
	defer slogutil.RecoverAndLog(ctx, w.logger)

	for err := range w.watcher.Errors {
		w.logger.ErrorContext(ctx, "watching lists", slogutil.KeyError, err)
	}
}
