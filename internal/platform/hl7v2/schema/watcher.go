package schema

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrWatcherStopped is returned by Start once Stop has been called.
var ErrWatcherStopped = errors.New("schema: watcher stopped")

// Watcher reloads a custom table directory into a registry when its files
// change. Bursts of events are collapsed into one reload.
type Watcher struct {
	mu       sync.Mutex
	registry *Registry
	dir      string
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration
	pending  time.Time
	onReload func(error)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopped  bool
}

// NewWatcher creates a watcher for dir. The directory is loaded once by
// Start before watching begins.
func NewWatcher(registry *Registry, dir string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry: registry,
		dir:      dir,
		watcher:  fw,
		logger:   logger.With().Str("component", "hl7-schema-watcher").Logger(),
		debounce: 300 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// OnReload registers a callback invoked after every reload attempt.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

// Start loads the directory and starts watching it in the background. After
// a failed Start the watcher is not running and Stop only releases it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if w.stopped {
		return ErrWatcherStopped
	}

	if err := w.registry.LoadDir(w.dir); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info().Str("dir", w.dir).Msg("watching schema directory")

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify watcher. It is safe to
// call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running, w.stopped = false, true
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error().Err(err).Msg("closing schema watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("schema watcher error")
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".yaml" && ext != ".yml" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("schema file changed")
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	callback := w.onReload
	w.mu.Unlock()

	err := w.registry.LoadDir(w.dir)
	if err != nil {
		w.logger.Error().Err(err).Str("dir", w.dir).Msg("schema reload failed, keeping previous tables")
	} else {
		w.logger.Info().Str("dir", w.dir).Strs("versions", w.registry.Versions()).Msg("schema reloaded")
	}
	if callback != nil {
		callback(err)
	}
}
