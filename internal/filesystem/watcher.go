package filesystem

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"video-catalog/internal/logging"
	"video-catalog/internal/mediatypes"
	"video-catalog/internal/metrics"
)

// DefaultDebounce coalesces bursts of filesystem events (a copy in
// progress fires many writes) into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a single folder for media changes and invokes the
// reload callback, debounced, whenever its listing may have changed.
// The folder under watch follows the active catalog folder via
// SetFolder.
type Watcher struct {
	fw       *fsnotify.Watcher
	reload   func(folder string)
	debounce time.Duration

	mu     sync.Mutex
	folder string
	timer  *time.Timer
}

// NewWatcher starts a watcher delivering debounced reload calls.
// Callbacks run on the watcher's timer goroutine.
func NewWatcher(reload func(folder string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fw:       fw,
		reload:   reload,
		debounce: DefaultDebounce,
	}
	go w.loop()
	return w, nil
}

// SetFolder switches the watch to folder, dropping the previous one.
func (w *Watcher) SetFolder(folder string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.folder == folder {
		return nil
	}
	if w.folder != "" {
		if err := w.fw.Remove(w.folder); err != nil {
			logging.Debug("failed to remove watch on %s: %v", w.folder, err)
		}
	}
	if err := w.fw.Add(folder); err != nil {
		metrics.WatcherErrors.Inc()
		w.folder = ""
		return fmt.Errorf("watch folder %s: %w", folder, err)
	}
	w.folder = folder
	logging.Debug("Watching %s", folder)
	return nil
}

// Close stops the watcher. Pending debounced reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Hidden files and editor droppings
	if strings.Contains(event.Name, "/.") {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	// Only listing-affecting changes to media files matter; the scan is
	// non-recursive, so subdirectory churn is irrelevant.
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
		return
	}
	if !mediatypes.IsSupportedMedia(event.Name) {
		return
	}

	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	folder := w.folder
	if folder == "" {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		logging.Info("Folder %s changed, reloading", folder)
		w.reload(folder)
	})
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
