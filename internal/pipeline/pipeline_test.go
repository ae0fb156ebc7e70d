package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"docsync/internal/analysis"
	"docsync/internal/services"
	"docsync/internal/testsupport"
)

const goSample = `package demo

// Greet says hello.
func Greet(name string) string {
	return "hello " + name
}
`

func TestGetAnalysisGoFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDirs[0], "demo.go")
	testsupport.WriteSource(t, path, goSample)

	outcome, err := p.GetAnalysis(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if outcome.Analyzer != "go-ast" {
		t.Fatalf("analyzer = %q, want go-ast", outcome.Analyzer)
	}
	if outcome.Partial() {
		t.Fatalf("expected complete outcome, got %+v", outcome)
	}
	if len(outcome.Result.Functions) != 1 || outcome.Result.Functions[0].Name != "Greet" {
		t.Fatalf("unexpected functions %+v", outcome.Result.Functions)
	}

	// Second lookup with unchanged content must come from the cache.
	cached, err := p.GetAnalysis(context.Background(), path)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if !cached.FromCache {
		t.Fatal("expected cache hit on unchanged file")
	}
}

func TestGetAnalysisFallsBackOnBrokenGo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxRetries(0))
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDirs[0], "broken.go")
	testsupport.WriteSource(t, path, "package demo\n\nfunc Broken( {\n// TODO: fix the signature\n")

	outcome, err := p.GetAnalysis(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !outcome.Partial() {
		t.Fatal("broken source should yield a partial result")
	}
	if len(outcome.FallbacksUsed) != 1 || outcome.FallbacksUsed[0] != "text-scan" {
		t.Fatalf("fallbacksUsed = %v", outcome.FallbacksUsed)
	}
	if outcome.Completeness >= 1.0 {
		t.Fatalf("completeness = %v, want < 1.0", outcome.Completeness)
	}
}

func TestGetAnalysisMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	_, err = p.GetAnalysis(context.Background(), filepath.Join(cfg.Paths.WatchDirs[0], "absent.go"))
	if !errors.Is(err, services.ErrFileAccess) {
		t.Fatalf("expected file access error, got %v", err)
	}
	if m := p.Metrics(); m.Failed != 1 {
		t.Fatalf("failed = %d, want 1", m.Failed)
	}
}

func TestSubmitChangeProcessesBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	path := filepath.Join(cfg.Paths.WatchDirs[0], "manual.go")
	testsupport.WriteSource(t, path, goSample)
	p.SubmitChange(context.Background(), analysis.NewChange(path, analysis.ChangeModified))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p.Metrics().Processed >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if m := p.Metrics(); m.Processed < 1 {
		t.Fatalf("batch never processed, metrics %+v", m)
	}

	outcome, err := p.GetAnalysis(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !outcome.FromCache {
		t.Fatal("batch result should be served from cache")
	}
}

func TestWatcherDrivesAnalysis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	path := filepath.Join(cfg.Paths.WatchDirs[0], "watched.go")
	testsupport.WriteSource(t, path, goSample)

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if p.Metrics().Processed >= 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("filesystem event never reached the executor, metrics %+v", p.Metrics())
}

func TestGetAnalysisWaitsForInflightPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDirs[0], "busy.go")
	testsupport.WriteSource(t, path, goSample)

	// Claim the path's single-flight slot the way batch processing does.
	if err := p.acquire(context.Background(), path); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	results := make(chan error, 1)
	go func() {
		_, err := p.GetAnalysis(context.Background(), path)
		results <- err
	}()

	select {
	case err := <-results:
		t.Fatalf("analysis ran while the path was claimed (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	p.release(path)
	select {
	case err := <-results:
		if err != nil {
			t.Fatalf("analysis after release: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("analysis never completed after the slot was released")
	}
}

func TestGetAnalysisAcquireHonorsContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDirs[0], "held.go")
	if err := p.acquire(context.Background(), path); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer p.release(path)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.GetAnalysis(ctx, path); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while slot held, got %v", err)
	}
}

func TestDeleteInvalidatesCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.WatchDirs[0], "gone.go")
	testsupport.WriteSource(t, path, goSample)
	if _, err := p.GetAnalysis(ctx, path); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if stats := p.CacheStats(); stats.Entries != 1 {
		t.Fatalf("entries = %d, want 1", stats.Entries)
	}

	p.SubmitChange(ctx, analysis.NewChange(path, analysis.ChangeDeleted))
	if stats := p.CacheStats(); stats.Entries != 0 {
		t.Fatalf("entries = %d after delete, want 0", stats.Entries)
	}
}

func TestMetricsShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDirs[0], "demo.go")
	testsupport.WriteSource(t, path, goSample)
	if _, err := p.GetAnalysis(context.Background(), path); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	m := p.Metrics()
	if m.Processed != 1 {
		t.Fatalf("processed = %d, want 1", m.Processed)
	}
	if m.ActiveAnalysisCount != 0 {
		t.Fatalf("active = %d, want 0", m.ActiveAnalysisCount)
	}
	if m.MemoryUsageMB <= 0 {
		t.Fatalf("memory usage not reported: %v", m.MemoryUsageMB)
	}
}
