package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docsync/internal/analysis"
	"docsync/internal/logging"
)

// Options configures a Watcher.
type Options struct {
	// Dirs are the roots to watch recursively.
	Dirs []string
	// IgnorePatterns match path elements or file glob patterns to skip.
	IgnorePatterns []string
	// DebounceWindow is the per-path quiet period before a change is emitted.
	DebounceWindow time.Duration
	// MaxFileSize drops change events for files larger than this, in bytes.
	// Zero disables the limit. Deletions always pass.
	MaxFileSize int64
}

// Watcher owns an fsnotify watcher and a debouncer, delivering settled
// changes on Events. New subdirectories are picked up as they appear.
type Watcher struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fs        *fsnotify.Watcher
	debouncer *Debouncer
	events    chan analysis.FileChange
}

// New validates opts and prepares a watcher. Start must be called before
// any events are delivered.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, fmt.Errorf("watcher: no directories configured")
	}
	if opts.DebounceWindow <= 0 {
		return nil, fmt.Errorf("watcher: debounce window must be positive")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		opts:   opts,
		logger: logger.With(logging.String(logging.FieldComponent, "watcher")),
		events: make(chan analysis.FileChange, 256),
	}
	w.debouncer = NewDebouncer(opts.DebounceWindow, w.deliver)
	return w, nil
}

// Events is the stream of debounced changes. It is closed by Stop.
func (w *Watcher) Events() <-chan analysis.FileChange {
	return w.events
}

// Start begins watching. It fails if any configured root cannot be watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	for _, dir := range w.opts.Dirs {
		if err := w.addTree(fsw, dir); err != nil {
			fsw.Close()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fs = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx)

	w.logger.Info("watcher started",
		logging.Int("directories", len(w.opts.Dirs)),
		logging.Duration("debounce_window", w.opts.DebounceWindow))
	return nil
}

// Stop tears the watcher down, drains pending debounced changes, and closes
// the event stream.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	fsw := w.fs
	w.mu.Unlock()

	cancel()
	fsw.Close()
	w.wg.Wait()
	w.debouncer.Stop()
	close(w.events)
	w.logger.Info("watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.shouldIgnore(path) {
		return
	}

	kind, ok := mapOp(event.Op)
	if !ok {
		return
	}

	if kind == analysis.ChangeAdded {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(w.fs, path); err != nil {
				w.logger.Warn("watch new directory",
					logging.String(logging.FieldPath, path), logging.Error(err))
			}
			return
		}
	}

	if kind != analysis.ChangeDeleted && kind != analysis.ChangeRenamed && w.opts.MaxFileSize > 0 {
		if info, err := os.Stat(path); err == nil {
			if info.IsDir() {
				return
			}
			if info.Size() > w.opts.MaxFileSize {
				w.logger.Debug("skipping oversized file",
					logging.String(logging.FieldPath, path),
					logging.Int64("size", info.Size()))
				return
			}
		}
	}

	w.debouncer.Offer(analysis.NewChange(path, kind))
}

// deliver blocks when the buffer is full: delivery is at-least-once, and
// the consumer must drain Events until Stop closes it. The debouncer bounds
// the producer rate, so sustained pressure here means the pipeline is the
// bottleneck, not the watcher.
func (w *Watcher) deliver(change analysis.FileChange) {
	w.events <- change
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", root, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
		for _, element := range strings.Split(filepath.ToSlash(path), "/") {
			if element == pattern {
				return true
			}
		}
	}
	return false
}

func mapOp(op fsnotify.Op) (analysis.ChangeKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return analysis.ChangeAdded, true
	case op&fsnotify.Write != 0:
		return analysis.ChangeModified, true
	case op&fsnotify.Remove != 0:
		return analysis.ChangeDeleted, true
	case op&fsnotify.Rename != 0:
		return analysis.ChangeRenamed, true
	default:
		return "", false
	}
}
