package watcher

import (
	"sync"
	"time"

	"docsync/internal/analysis"
)

// Debouncer collapses rapid successive changes to the same path into a
// single emitted change. Each path gets its own window; a new event on a
// pending path restarts the window and replaces the stored change, so the
// latest event wins. Deletions bypass the window entirely because there is
// nothing left to coalesce with.
type Debouncer struct {
	window time.Duration
	emit   func(analysis.FileChange)

	mu       sync.Mutex
	pending  map[string]*pendingChange
	stopped  bool
	emitting sync.WaitGroup
}

type pendingChange struct {
	change analysis.FileChange
	timer  *time.Timer
}

// NewDebouncer returns a debouncer that calls emit once per settled path.
func NewDebouncer(window time.Duration, emit func(analysis.FileChange)) *Debouncer {
	return &Debouncer{
		window:  window,
		emit:    emit,
		pending: make(map[string]*pendingChange),
	}
}

// Offer feeds one raw change into the debouncer.
func (d *Debouncer) Offer(change analysis.FileChange) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if change.Kind == analysis.ChangeDeleted {
		if p, ok := d.pending[change.Path]; ok {
			p.timer.Stop()
			delete(d.pending, change.Path)
		}
		d.emitting.Add(1)
		d.mu.Unlock()
		d.emit(change)
		d.emitting.Done()
		return
	}

	if p, ok := d.pending[change.Path]; ok {
		p.change = change
		p.timer.Reset(d.window)
		d.mu.Unlock()
		return
	}

	p := &pendingChange{change: change}
	p.timer = time.AfterFunc(d.window, func() { d.fire(change.Path) })
	d.pending[change.Path] = p
	d.mu.Unlock()
}

// Pending reports how many paths are waiting out their window.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all timers and emits whatever is still pending, so no
// observed change is lost on shutdown. It returns only once every emit,
// including ones already in flight from expired timers, has finished.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	drained := make([]analysis.FileChange, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		drained = append(drained, p.change)
		delete(d.pending, path)
	}
	d.mu.Unlock()

	for _, change := range drained {
		d.emit(change)
	}
	d.emitting.Wait()
}

func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	change := p.change
	d.emitting.Add(1)
	d.mu.Unlock()

	d.emit(change)
	d.emitting.Done()
}
