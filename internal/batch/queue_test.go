package batch

import (
	"testing"
	"time"

	"docsync/internal/analysis"
)

func change(path string, kind analysis.ChangeKind, at time.Time) analysis.FileChange {
	return analysis.FileChange{Path: path, Kind: kind, Timestamp: at}
}

func receiveBatch(t *testing.T, q *Queue) []analysis.FileChange {
	t.Helper()
	select {
	case batch := <-q.Batches():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("no batch received")
		return nil
	}
}

func TestQueueFlushesAtSizeLimit(t *testing.T) {
	q := NewQueue(3, time.Hour, NewScorer(0), nil)
	defer q.Stop()

	now := time.Now()
	q.Enqueue(change("/a.go", analysis.ChangeModified, now))
	q.Enqueue(change("/b.go", analysis.ChangeModified, now))
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	q.Enqueue(change("/c.go", analysis.ChangeModified, now))

	batch := receiveBatch(t, q)
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	if q.Len() != 0 {
		t.Fatalf("queue not cleared, len = %d", q.Len())
	}
}

func TestQueueFlushesOnTimeout(t *testing.T) {
	q := NewQueue(100, 30*time.Millisecond, NewScorer(0), nil)
	defer q.Stop()

	q.Enqueue(change("/a.go", analysis.ChangeModified, time.Now()))

	batch := receiveBatch(t, q)
	if len(batch) != 1 || batch[0].Path != "/a.go" {
		t.Fatalf("unexpected batch %+v", batch)
	}
}

func TestQueueDedupesNewestWins(t *testing.T) {
	q := NewQueue(100, time.Hour, NewScorer(0), nil)
	defer q.Stop()

	base := time.Now()
	q.Enqueue(change("/a.go", analysis.ChangeAdded, base))
	q.Enqueue(change("/a.go", analysis.ChangeModified, base.Add(time.Second)))
	// Out of order arrival must not clobber the newer change.
	q.Enqueue(change("/a.go", analysis.ChangeAdded, base.Add(-time.Second)))

	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	q.Flush()

	batch := receiveBatch(t, q)
	if len(batch) != 1 || batch[0].Kind != analysis.ChangeModified {
		t.Fatalf("unexpected batch %+v", batch)
	}
}

func TestQueueOrdersByPriority(t *testing.T) {
	q := NewQueue(100, time.Hour, NewScorer(0), nil)
	defer q.Stop()

	now := time.Now()
	q.Enqueue(change("/notes.txt", analysis.ChangeModified, now)) // 10 + 15
	q.Enqueue(change("/old.go", analysis.ChangeRenamed, now))     // 30 + 5
	q.Enqueue(change("/new.go", analysis.ChangeAdded, now))       // 30 + 20
	q.Flush()

	batch := receiveBatch(t, q)
	want := []string{"/new.go", "/old.go", "/notes.txt"}
	for i, path := range want {
		if batch[i].Path != path {
			t.Fatalf("position %d = %q, want %q (batch %+v)", i, batch[i].Path, path, batch)
		}
	}
}

func TestQueueStopFlushesRemainder(t *testing.T) {
	q := NewQueue(100, time.Hour, NewScorer(0), nil)

	q.Enqueue(change("/a.go", analysis.ChangeModified, time.Now()))
	q.Stop()

	batch, ok := <-q.Batches()
	if !ok || len(batch) != 1 {
		t.Fatalf("expected final batch, got %v ok=%v", batch, ok)
	}
	if _, ok := <-q.Batches(); ok {
		t.Fatal("channel should be closed after stop")
	}

	// Enqueue after stop is a no-op.
	q.Enqueue(change("/b.go", analysis.ChangeModified, time.Now()))
	if q.Len() != 0 {
		t.Fatal("enqueue after stop should be dropped")
	}
}

func TestScorerTreatsJSXVariantsAsNative(t *testing.T) {
	s := NewScorer(0)
	now := time.Now()

	reference := s.Score(change("/src/app.ts", analysis.ChangeModified, now))
	for _, ext := range []string{".jsx", ".tsx"} {
		got := s.Score(change("/src/app"+ext, analysis.ChangeModified, now))
		if got != reference {
			t.Errorf("score(%s) = %d, want native score %d", ext, got, reference)
		}
	}
}

func TestScorerRecencyDecay(t *testing.T) {
	s := NewScorer(10 * time.Second)
	base := time.Now()
	s.now = func() time.Time { return base }

	fresh := s.Score(change("/a.go", analysis.ChangeModified, base))
	stale := s.Score(change("/a.go", analysis.ChangeModified, base.Add(-time.Minute)))

	if fresh-stale != recencyBonusMax {
		t.Fatalf("fresh=%d stale=%d, want gap of %d", fresh, stale, recencyBonusMax)
	}
	mid := s.Score(change("/a.go", analysis.ChangeModified, base.Add(-5*time.Second)))
	if mid <= stale || mid >= fresh {
		t.Fatalf("mid=%d should fall between stale=%d and fresh=%d", mid, stale, fresh)
	}
}
