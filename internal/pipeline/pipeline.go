// Package pipeline wires change detection, batching, resource gating,
// resilient execution, and the analysis cache into one incremental analysis
// service. It is the piece the daemon and the CLI talk to.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"docsync/internal/analysis"
	"docsync/internal/services"
	"docsync/internal/batch"
	"docsync/internal/cache"
	"docsync/internal/config"
	"docsync/internal/executor"
	"docsync/internal/logging"
	"docsync/internal/resource"
	"docsync/internal/watcher"
)

// Metrics is the pipeline's externally visible counter set.
type Metrics struct {
	AnalysisTimeMs      float64 `json:"analysis_time_ms"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	ActiveAnalysisCount int     `json:"active_analysis_count"`
	MemoryUsageMB       float64 `json:"memory_usage_mb"`
	QueueDepth          int     `json:"queue_depth"`
	Processed           uint64  `json:"processed"`
	Partial             uint64  `json:"partial"`
	Failed              uint64  `json:"failed"`
	CacheEntries        int     `json:"cache_entries"`
}

// Pipeline owns every stage between a filesystem event and a cached
// analysis outcome.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger

	watch    *watcher.Watcher
	queue    *batch.Queue
	monitor  *resource.Monitor
	executor *executor.Executor
	cache    *cache.Cache
	store    *cache.Store
	chains   map[string]chain

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	inflight  map[string]chan struct{}
	parked    map[string]analysis.FileChange
	processed uint64
	partial   uint64
	failed    uint64
}

// New assembles a pipeline from configuration. Nothing runs until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	monitor := resource.NewMonitor(resource.Options{
		MaxConcurrent:  cfg.Analysis.MaxConcurrent,
		MemoryMaxBytes: uint64(cfg.Analysis.MemoryThresholdMB) * 1024 * 1024,
	}, logger)

	exec := executor.New(executor.Options{
		MaxRetries: cfg.Analysis.MaxRetries,
		RetryDelay: time.Duration(cfg.Analysis.RetryDelayMs) * time.Millisecond,
		Timeout:    time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second,
	}, monitor, logger)

	var store *cache.Store
	if cfg.Cache.Enabled && cfg.Cache.Persist {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		var err error
		store, err = cache.OpenStore(cfg.CacheDBPath())
		if err != nil {
			return nil, fmt.Errorf("open cache store: %w", err)
		}
	}

	var analysisCache *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		analysisCache, err = cache.New(cfg.Cache.MaxEntries, store, logger)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, fmt.Errorf("build cache: %w", err)
		}
	}

	scorer := batch.NewScorer(time.Duration(cfg.Batch.RecencyWindowMs) * time.Millisecond)
	queue := batch.NewQueue(cfg.Batch.Size, time.Duration(cfg.Batch.TimeoutMs)*time.Millisecond, scorer, logger)

	return &Pipeline{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),
		queue:    queue,
		monitor:  monitor,
		executor: exec,
		cache:    analysisCache,
		store:    store,
		chains:   newChains(cfg.Analysis.HashMaxBytes),
		inflight: make(map[string]chan struct{}),
		parked:   make(map[string]analysis.FileChange),
	}, nil
}

// Start spins up the watcher and the batch consumer.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("pipeline already running")
	}

	w, err := watcher.New(watcher.Options{
		Dirs:           p.cfg.Paths.WatchDirs,
		IgnorePatterns: p.cfg.Watch.IgnorePatterns,
		DebounceWindow: time.Duration(p.cfg.Watch.DebounceWindowMs) * time.Millisecond,
		MaxFileSize:    int64(p.cfg.Watch.MaxFileSizeKB) * 1024,
	}, p.logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(runCtx); err != nil {
		cancel()
		return err
	}

	p.watch = w
	p.cancel = cancel
	p.running = true

	p.wg.Add(2)
	go p.consumeEvents()
	go p.consumeBatches(runCtx)

	p.logger.Info("pipeline started",
		logging.Int("watch_dirs", len(p.cfg.Paths.WatchDirs)),
		logging.Int("max_concurrent", p.cfg.Analysis.MaxConcurrent))
	return nil
}

// Stop drains the stages in order: watcher first so no new events arrive,
// then the queue so queued work is flushed and processed.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	w := p.watch
	p.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	p.queue.Stop()
	p.wg.Wait()
	p.cancel()
	if p.store != nil {
		p.store.Close()
	}
	p.logger.Info("pipeline stopped")
}

// SubmitChange feeds one change directly into the batching queue, bypassing
// the filesystem watcher. Deletions invalidate immediately.
func (p *Pipeline) SubmitChange(ctx context.Context, change analysis.FileChange) {
	if change.Kind == analysis.ChangeDeleted {
		p.handleDelete(ctx, change.Path)
		return
	}
	p.queue.Enqueue(change)
}

// GetAnalysis returns the outcome for a path, serving from cache when the
// current fingerprint matches and analyzing on demand otherwise. It holds
// the same per-path single-flight slot as batch processing, so an on-demand
// analysis never races a batch analysis of the same path; waiting callers
// pick up the finished result from the cache.
func (p *Pipeline) GetAnalysis(ctx context.Context, path string) (*analysis.Outcome, error) {
	if err := p.acquire(ctx, path); err != nil {
		return nil, err
	}
	defer p.release(path)
	return p.analyzeOne(ctx, path)
}

// acquire claims the single-flight slot for a path, waiting out any
// analysis of the same path already in progress.
func (p *Pipeline) acquire(ctx context.Context, path string) error {
	for {
		p.mu.Lock()
		done, busy := p.inflight[path]
		if !busy {
			p.inflight[path] = make(chan struct{})
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
	}
}

func (p *Pipeline) release(path string) {
	p.mu.Lock()
	if done, ok := p.inflight[path]; ok {
		delete(p.inflight, path)
		close(done)
	}
	p.mu.Unlock()
}

// Invalidate drops the cache entry for one path.
func (p *Pipeline) Invalidate(ctx context.Context, path string) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Invalidate(ctx, path)
}

// ClearCache drops all cached analyses.
func (p *Pipeline) ClearCache(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Clear(ctx)
}

// CacheStats exposes cache counters for the status surfaces.
func (p *Pipeline) CacheStats() cache.Stats {
	if p.cache == nil {
		return cache.Stats{}
	}
	return p.cache.Stats()
}

// Metrics assembles the combined metrics snapshot.
func (p *Pipeline) Metrics() Metrics {
	snap := p.monitor.Snapshot()
	stats := p.CacheStats()

	p.mu.Lock()
	processed, partial, failed := p.processed, p.partial, p.failed
	p.mu.Unlock()

	return Metrics{
		AnalysisTimeMs:      float64(snap.AvgDuration) / float64(time.Millisecond),
		CacheHitRate:        stats.HitRate,
		ActiveAnalysisCount: snap.Active,
		MemoryUsageMB:       float64(snap.MemoryBytes) / (1024 * 1024),
		QueueDepth:          p.queue.Len(),
		Processed:           processed,
		Partial:             partial,
		Failed:              failed,
		CacheEntries:        stats.Entries,
	}
}

func (p *Pipeline) consumeEvents() {
	defer p.wg.Done()
	for change := range p.watch.Events() {
		if change.Kind == analysis.ChangeDeleted {
			p.handleDelete(context.Background(), change.Path)
			continue
		}
		p.queue.Enqueue(change)
	}
}

func (p *Pipeline) consumeBatches(ctx context.Context) {
	defer p.wg.Done()
	for flushed := range p.queue.Batches() {
		p.processBatch(ctx, flushed)
	}
}

// processBatch analyzes one flushed batch. Changes to paths already being
// analyzed are parked and re-enqueued afterwards so a path never has two
// concurrent analyses.
func (p *Pipeline) processBatch(ctx context.Context, changes []analysis.FileChange) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)
	items := make([]string, 0, len(changes))

	p.mu.Lock()
	for _, change := range changes {
		if _, busy := p.inflight[change.Path]; busy {
			p.parked[change.Path] = change
			continue
		}
		p.inflight[change.Path] = make(chan struct{})
		items = append(items, change.Path)
	}
	p.mu.Unlock()

	if len(items) > 0 {
		report, err := p.executor.BatchProcess(ctx, items, p.analyzeOne, executor.BatchOptions{
			ContinueOnError: true,
			MaxConcurrent:   p.cfg.Analysis.MaxConcurrent,
		})
		if err != nil {
			logger.Warn("batch aborted", logging.Error(err))
		} else {
			logger.Debug("batch processed",
				logging.Int("processed", report.Processed),
				logging.Int("skipped", report.Skipped))
		}
	}

	p.mu.Lock()
	for _, path := range items {
		if done, ok := p.inflight[path]; ok {
			delete(p.inflight, path)
			close(done)
		}
	}
	reenqueue := make([]analysis.FileChange, 0, len(p.parked))
	for path, change := range p.parked {
		reenqueue = append(reenqueue, change)
		delete(p.parked, path)
	}
	p.mu.Unlock()

	for _, change := range reenqueue {
		p.queue.Enqueue(change)
	}
}

// analyzeOne is the unit of work: fingerprint, cache lookup, chain run,
// cache write-through.
func (p *Pipeline) analyzeOne(ctx context.Context, path string) (*analysis.Outcome, error) {
	fingerprint, err := analysis.Fingerprint(path, p.cfg.Analysis.HashMaxBytes)
	if err != nil {
		// The file vanished between the event and now; make sure no stale
		// entry survives it.
		if p.cache != nil {
			_ = p.cache.Invalidate(ctx, path)
		}
		p.countFailure()
		return nil, err
	}

	if p.cache != nil {
		if outcome, ok := p.cache.Get(ctx, path, fingerprint); ok {
			return outcome, nil
		}
	}

	c := p.chainFor(path)
	outcome, err := p.executor.Run(ctx, path, c.primary, c.fallbacks)
	if err != nil {
		p.countFailure()
		return nil, err
	}

	if p.cache != nil {
		if cacheErr := p.cache.Put(ctx, path, fingerprint, *outcome); cacheErr != nil {
			p.logger.Warn("cache write failed",
				logging.String(logging.FieldPath, path), logging.Error(cacheErr))
		}
	}

	p.mu.Lock()
	p.processed++
	if outcome.Partial() {
		p.partial++
	}
	p.mu.Unlock()

	return outcome, nil
}

func (p *Pipeline) handleDelete(ctx context.Context, path string) {
	if err := p.Invalidate(ctx, path); err != nil {
		p.logger.Warn("invalidate on delete",
			logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	p.logger.Debug("cache invalidated for deleted file",
		logging.String(logging.FieldPath, path))
}

func (p *Pipeline) countFailure() {
	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
}
