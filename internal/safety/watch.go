package safety

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/planward/internal/logging"
)

// debounceWindow collapses the burst of filesystem events most editors
// emit for a single save into one reload.
const debounceWindow = 50 * time.Millisecond

// Watcher hot-reloads the policy file into a validator whenever the file
// changes. The containing directory is watched rather than the file
// itself, because editors and atomic writers replace the file inode on
// save. A reload that fails to parse or compile leaves the previous
// policy active.
type Watcher struct {
	watcher   *fsnotify.Watcher
	validator *Validator
	path      string
	logger    *logging.Logger

	mu       sync.Mutex
	onReload func(*Policy)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher prepares a watcher for the policy file at path. Call Start
// to begin watching and Stop to release the underlying notifier.
func NewWatcher(path string, validator *Validator, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve policy path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create policy watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch policy dir: %w", err)
	}

	return &Watcher{
		watcher:   fsWatcher,
		validator: validator,
		path:      abs,
		logger:    logger.WithComponent("safety"),
		stopCh:    make(chan struct{}),
	}, nil
}

// SetReloadCallback registers a callback invoked after each successful
// reload, with the policy that became active.
func (w *Watcher) SetReloadCallback(cb func(*Policy)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = cb
}

// Start begins watching for policy file changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases the underlying notifier.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// watchLoop processes filesystem events with debouncing.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := false

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Only saves of the policy file itself matter.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			pending = true
			debounceTimer.Reset(debounceWindow)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("policy watcher error", "error", err)
		}
	}
}

// reload reads the policy file and swaps it into the validator. Read or
// compile failures keep the current policy.
func (w *Watcher) reload() {
	policy, err := ReadPolicy(w.path)
	if err != nil {
		w.logger.Warn("policy reload skipped", "path", w.path, "error", err)
		return
	}
	if err := w.validator.Reload(policy); err != nil {
		w.logger.Warn("policy reload rejected", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	cb := w.onReload
	w.mu.Unlock()
	if cb != nil {
		cb(policy)
	}
}
