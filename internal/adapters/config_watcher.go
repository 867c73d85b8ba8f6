package adapters

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const (
	defaultWatchDebounce = 300 * time.Millisecond
	watchEventBuffer     = 16
)

// WatchEvent lists the watched files that changed during one debounce
// window.
type WatchEvent struct {
	Paths []string
}

// ConfigurationWatcher reports changes to a fixed set of files. It watches
// their parent directories so editors that replace files on save are
// still seen.
type ConfigurationWatcher struct {
	debounce time.Duration
	files    map[string]bool
	watcher  *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]bool

	events chan WatchEvent
}

func NewConfigurationWatcher(paths []string, debounce time.Duration) (*ConfigurationWatcher, error) {
	if len(paths) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("nothing to watch")
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create file watcher").
			WithCause(err)
	}
	w := &ConfigurationWatcher{
		debounce: debounce,
		files:    map[string]bool{},
		watcher:  fsw,
		pending:  map[string]bool{},
		events:   make(chan WatchEvent, watchEventBuffer),
	}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = fsw.Close()
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid watch path").
				WithCause(err)
		}
		w.files[abs] = true
	}
	return w, nil
}

func (w *ConfigurationWatcher) Events() <-chan WatchEvent {
	return w.events
}

// Start adds the watches and processes events until ctx is done or Stop
// is called. The events channel is closed when processing ends.
func (w *ConfigurationWatcher) Start(ctx context.Context) error {
	dirs := map[string]bool{}
	for path := range w.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("failed to watch " + dir).
				WithCause(err)
		}
	}
	go w.processEvents(ctx)
	log.Ctx(ctx).Debug().Int("files", len(w.files)).Dur("debounce", w.debounce).Msg("watching configuration")
	return nil
}

func (w *ConfigurationWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *ConfigurationWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Ctx(ctx).Warn().Err(err).Msg("watcher error")
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *ConfigurationWatcher) handle(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.files[path] {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	w.pendingMu.Lock()
	w.pending[path] = true
	w.pendingMu.Unlock()
}

func (w *ConfigurationWatcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = map[string]bool{}
	w.pendingMu.Unlock()

	sort.Strings(paths)
	select {
	case w.events <- WatchEvent{Paths: paths}:
	case <-ctx.Done():
	default:
		log.Ctx(ctx).Warn().Strs("paths", paths).Msg("dropping watch event, consumer is behind")
	}
}
