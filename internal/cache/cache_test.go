package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"docsync/internal/analysis"
	"docsync/internal/services"
)

func sampleOutcome(path string) analysis.Outcome {
	return analysis.Outcome{
		Path:     path,
		Analyzer: "go-ast",
		Result: &analysis.Result{
			Path:     path,
			Language: "go",
			Functions: []analysis.Function{
				{Name: "Run", Signature: "Run(ctx context.Context) error", Exported: true, StartLine: 10},
			},
			Todos: []analysis.Todo{{Marker: "TODO", Text: "handle renames", Line: 3}},
		},
		Completeness: 1.0,
		Duration:     analysis.Millis(25 * time.Millisecond),
	}
}

func TestCacheHitRequiresExactFingerprint(t *testing.T) {
	c, err := New(16, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()

	if err := c.Put(ctx, "/a.go", "x:abc:10", sampleOutcome("/a.go")); err != nil {
		t.Fatalf("put: %v", err)
	}

	outcome, ok := c.Get(ctx, "/a.go", "x:abc:10")
	if !ok {
		t.Fatal("expected hit")
	}
	if !outcome.FromCache {
		t.Fatal("hit must be marked FromCache")
	}

	if _, ok := c.Get(ctx, "/a.go", "x:def:11"); ok {
		t.Fatal("changed fingerprint must miss")
	}
	// The stale entry is evicted, so even the old fingerprint now misses.
	if _, ok := c.Get(ctx, "/a.go", "x:abc:10"); ok {
		t.Fatal("stale entry should have been evicted")
	}
}

func TestCacheInvalidateThenMiss(t *testing.T) {
	c, err := New(16, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()

	if err := c.Put(ctx, "/a.go", "fp", sampleOutcome("/a.go")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.Invalidate(ctx, "/a.go"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := c.Get(ctx, "/a.go", "fp"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestCacheStats(t *testing.T) {
	c, err := New(16, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()

	c.Put(ctx, "/a.go", "fp", sampleOutcome("/a.go"))
	c.Get(ctx, "/a.go", "fp")
	c.Get(ctx, "/b.go", "fp")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", stats.HitRate)
	}
	if stats.Entries != 1 {
		t.Fatalf("entries = %d, want 1", stats.Entries)
	}
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	c, err := New(2, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()

	c.Put(ctx, "/a.go", "fp", sampleOutcome("/a.go"))
	c.Put(ctx, "/b.go", "fp", sampleOutcome("/b.go"))
	c.Put(ctx, "/c.go", "fp", sampleOutcome("/c.go"))

	if _, ok := c.Get(ctx, "/a.go", "fp"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get(ctx, "/c.go", "fp"); !ok {
		t.Fatal("newest entry should survive")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "analysis.db")
	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	outcome := sampleOutcome("/a.go")
	outcome.FallbacksUsed = []string{"text-scan"}
	outcome.Completeness = 0.5
	outcome.Errors = []services.ErrorRecord{
		{
			Category: services.CategoryParser,
			Severity: services.SeverityMedium,
			Message:  "parse failed",
			Path:     "/a.go",
			Stage:    "go-ast",
			RecoveryActions: []services.RecoveryAction{
				{Type: services.RecoveryFallback, Detail: "try next analyzer in chain"},
			},
		},
	}

	entry := Entry{Path: "/a.go", Fingerprint: "x:abc:10", Outcome: outcome, StoredAt: time.Now().UTC()}
	if err := store.Upsert(ctx, entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, "/a.go")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("entry not found")
	}
	if got.Fingerprint != entry.Fingerprint {
		t.Fatalf("fingerprint = %q", got.Fingerprint)
	}
	if got.Outcome.Completeness != 0.5 {
		t.Fatalf("completeness = %v", got.Outcome.Completeness)
	}
	if len(got.Outcome.FallbacksUsed) != 1 || got.Outcome.FallbacksUsed[0] != "text-scan" {
		t.Fatalf("fallbacks = %v", got.Outcome.FallbacksUsed)
	}
	if len(got.Outcome.Errors) != 1 || got.Outcome.Errors[0].Category != services.CategoryParser {
		t.Fatalf("errors = %+v", got.Outcome.Errors)
	}
	if got.Outcome.Result == nil || len(got.Outcome.Result.Functions) != 1 {
		t.Fatalf("result = %+v", got.Outcome.Result)
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "analysis.db")
	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Upsert(ctx, Entry{Path: "/a.go", Fingerprint: "one", Outcome: sampleOutcome("/a.go"), StoredAt: time.Now()})
	store.Upsert(ctx, Entry{Path: "/a.go", Fingerprint: "two", Outcome: sampleOutcome("/a.go"), StoredAt: time.Now()})

	entries, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Fingerprint != "two" {
		t.Fatalf("fingerprint = %q, want two", entries[0].Fingerprint)
	}
}

func TestCacheWarmsFromStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "analysis.db")
	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	first, err := New(16, store, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := first.Put(ctx, "/a.go", "fp", sampleOutcome("/a.go")); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.Close()

	reopened, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	second, err := New(16, reopened, nil)
	if err != nil {
		t.Fatalf("new cache from store: %v", err)
	}
	outcome, ok := second.Get(ctx, "/a.go", "fp")
	if !ok {
		t.Fatal("expected warmed entry to hit")
	}
	if outcome.Result == nil || outcome.Result.Language != "go" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}
