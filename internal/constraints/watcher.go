package constraints

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pagesmith/internal/logging"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a constraint set when its YAML file changes on disk.
// Long-running callers keep one Watcher per rule file; each loop invocation
// takes an immutable snapshot via Current, so an in-flight request never sees
// a half-applied reload.
type Watcher struct {
	mu      sync.RWMutex
	path    string
	current Set
	watcher *fsnotify.Watcher
	lastEvt time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	log     *zap.Logger
}

// NewWatcher loads the set at path and prepares a filesystem watch on its
// parent directory (editors replace files rather than writing in place).
func NewWatcher(path string) (*Watcher, error) {
	set, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:    path,
		current: set,
		watcher: fw,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		log:     logging.L("constraints"),
	}, nil
}

// Current returns the most recently loaded set.
func (w *Watcher) Current() Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching. Non-blocking; Stop or ctx cancellation ends it.
// On error the watcher stays stopped and Stop remains safe to call.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// Stop ends the watch and waits for the event loop to drain. Safe to call
// whether or not the watch ever started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Debounce rapid editor save sequences.
	const settle = 200 * time.Millisecond
	reload := time.NewTicker(100 * time.Millisecond)
	defer reload.Stop()
	var pending bool

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
			if !strings.EqualFold(filepath.Clean(event.Name), filepath.Clean(w.path)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.lastEvt = time.Now()
			w.mu.Unlock()
			pending = true
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("constraint watch error", zap.Error(err))
		case <-reload.C:
			if !pending {
				continue
			}
			w.mu.RLock()
			settled := time.Since(w.lastEvt) >= settle
			w.mu.RUnlock()
			if !settled {
				continue
			}
			pending = false
			set, err := Load(w.path)
			if err != nil {
				// Keep the last good set; a partial write will settle again.
				w.log.Warn("constraint reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.mu.Lock()
			w.current = set
			w.mu.Unlock()
			w.log.Info("constraint set reloaded", zap.String("path", w.path), zap.String("name", set.Name))
		}
	}
}
