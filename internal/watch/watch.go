// Package watch re-runs suites when their YAML files change on disk.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"apiprobe/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last file change
// before invoking the callback. Editors often produce bursts of events for
// a single save.
const DefaultDebounceInterval = 500 * time.Millisecond

// Config holds configuration for the suite file watcher.
type Config struct {
	// Path is a suite file or a directory of suite files.
	Path string

	// DebounceInterval overrides the default debounce window.
	DebounceInterval time.Duration

	// OnChange is called once per debounced burst of file changes.
	OnChange func()
}

// Watcher monitors suite files for changes and triggers re-runs through the
// configured callback.
type Watcher struct {
	mu sync.Mutex

	config Config

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// New creates a suite file watcher.
func New(config Config) *Watcher {
	if config.DebounceInterval == 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. Directories are watched recursively; newly created
// subdirectories are picked up as they appear.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addRecursive(watcher, w.config.Path); err != nil {
		watcher.Close()
		return err
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	// Capture channels before releasing the lock to avoid racing Stop().
	eventsCh := watcher.Events
	errorsCh := watcher.Errors

	go w.processEvents(eventsCh, errorsCh)

	logging.Info("Watch", "Watching %s for suite changes", w.config.Path)
	return nil
}

// addRecursive registers path with the watcher. For directories every
// subdirectory is added too, since fsnotify watches are not recursive.
func addRecursive(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// Watch the parent so the watch survives editors that replace the
		// file on save instead of writing in place.
		return watcher.Add(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(sub string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(sub)
		}
		return nil
	})
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("Watch", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// A new subdirectory needs its own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.fsWatcher != nil {
				if err := w.fsWatcher.Add(event.Name); err != nil {
					logging.Warn("Watch", "Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			w.mu.Unlock()
			return
		}
	}

	if !isSuiteFile(event.Name) {
		return
	}

	logging.Debug("Watch", "Suite file changed: %s", event.Name)
	w.triggerDebounced()
}

func isSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// triggerDebounced schedules the callback after the debounce window,
// resetting the window on every further change.
func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("Watch", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("Watch", "Stopped watching %s", w.config.Path)
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
