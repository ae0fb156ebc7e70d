package batch

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"docsync/internal/analysis"
	"docsync/internal/logging"
)

// Queue accumulates changes and emits prioritized batches. A path appears
// at most once per batch; a later change to a queued path replaces the
// earlier one. The flush timer runs only while the queue is non-empty and
// measures from the first unflushed change, so a steady trickle of events
// cannot postpone a flush forever.
type Queue struct {
	size    int
	timeout time.Duration
	scorer  *Scorer
	logger  *slog.Logger

	mu      sync.Mutex
	items   map[string]analysis.FileChange
	timer   *time.Timer
	stopped bool

	out chan []analysis.FileChange
}

// NewQueue builds a queue that flushes at size changes or timeout after the
// first queued change.
func NewQueue(size int, timeout time.Duration, scorer *Scorer, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		size:    size,
		timeout: timeout,
		scorer:  scorer,
		logger:  logger.With(logging.String(logging.FieldComponent, "batch")),
		items:   make(map[string]analysis.FileChange),
		out:     make(chan []analysis.FileChange, 16),
	}
}

// Batches is the stream of flushed batches consumed by the pipeline. It is
// closed by Stop.
func (q *Queue) Batches() <-chan []analysis.FileChange {
	return q.out
}

// Enqueue adds a change, deduplicating by path with the newest timestamp
// winning. Reaching the size limit flushes synchronously.
func (q *Queue) Enqueue(change analysis.FileChange) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}

	if existing, ok := q.items[change.Path]; !ok || !change.Timestamp.Before(existing.Timestamp) {
		q.items[change.Path] = change
	}

	if len(q.items) >= q.size {
		batch := q.drainLocked()
		q.mu.Unlock()
		q.emit(batch)
		return
	}

	if q.timer == nil {
		q.timer = time.AfterFunc(q.timeout, q.flushTimeout)
	}
	q.mu.Unlock()
}

// Len reports the number of distinct queued paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush forces an immediate flush of whatever is queued.
func (q *Queue) Flush() {
	q.mu.Lock()
	batch := q.drainLocked()
	q.mu.Unlock()
	q.emit(batch)
}

// Stop flushes any remainder and closes the batch stream.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	batch := q.drainLocked()
	q.mu.Unlock()

	q.emit(batch)
	close(q.out)
}

func (q *Queue) flushTimeout() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	batch := q.drainLocked()
	q.mu.Unlock()
	q.emit(batch)
}

// drainLocked empties the queue and cancels the timer. Callers hold q.mu.
func (q *Queue) drainLocked() []analysis.FileChange {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if len(q.items) == 0 {
		return nil
	}
	batch := make([]analysis.FileChange, 0, len(q.items))
	for _, change := range q.items {
		batch = append(batch, change)
	}
	q.items = make(map[string]analysis.FileChange)
	return batch
}

func (q *Queue) emit(batch []analysis.FileChange) {
	if len(batch) == 0 {
		return
	}
	q.sortByPriority(batch)
	q.logger.Debug("batch flushed", logging.Int(logging.FieldBatchSize, len(batch)))
	q.out <- batch
}

// sortByPriority orders a batch by descending score; ties break on older
// timestamp first, then path for determinism.
func (q *Queue) sortByPriority(batch []analysis.FileChange) {
	scores := make(map[string]int, len(batch))
	for _, change := range batch {
		scores[change.Path] = q.scorer.Score(change)
	}
	sort.Slice(batch, func(i, j int) bool {
		si, sj := scores[batch[i].Path], scores[batch[j].Path]
		if si != sj {
			return si > sj
		}
		if !batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Timestamp.Before(batch[j].Timestamp)
		}
		return batch[i].Path < batch[j].Path
	})
}
