package executor

import (
	"context"
	"sync"
	"time"

	"docsync/internal/analysis"
	"docsync/internal/logging"
	"docsync/internal/services"
)

// Processor analyzes one item inside a batch run.
type Processor func(ctx context.Context, path string) (*analysis.Outcome, error)

// BatchOptions controls a batch run.
type BatchOptions struct {
	// ContinueOnError records a failed item and keeps going. When false the
	// first failure cancels the rest of the batch and propagates.
	ContinueOnError bool
	// MaxConcurrent bounds workers within this batch. Zero means one.
	MaxConcurrent int
}

// BatchReport aggregates a batch run. Outcomes holds successful items only;
// every failed item contributes an ErrorRecord instead.
type BatchReport struct {
	Outcomes  []*analysis.Outcome
	Processed int
	Skipped   int
	Errors    []services.ErrorRecord
}

// BatchProcess runs proc over items with bounded concurrency, coordinating
// admission with the resource monitor when one is configured.
func (e *Executor) BatchProcess(ctx context.Context, items []string, proc Processor, opts BatchOptions) (*BatchReport, error) {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		report   = &BatchReport{}
		firstErr error
	)
	sem := make(chan struct{}, opts.MaxConcurrent)

	for _, item := range items {
		if runCtx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := e.processOne(runCtx, path, proc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, services.NewRecord(err, path, "batch",
					services.RecoveryAction{Type: services.RecoverySkip, Detail: "item failed in batch"}))
				if !opts.ContinueOnError && firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			report.Processed++
			report.Outcomes = append(report.Outcomes, outcome)
		}(item)
	}

	wg.Wait()

	if firstErr != nil {
		return report, firstErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	e.logger.Info("batch complete",
		logging.Int(logging.FieldBatchSize, len(items)),
		logging.Int("processed", report.Processed),
		logging.Int("skipped", report.Skipped))
	return report, nil
}

// processOne wraps a single batch item with monitor admission.
func (e *Executor) processOne(ctx context.Context, path string, proc Processor) (*analysis.Outcome, error) {
	if e.monitor != nil {
		if err := e.waitAdmission(ctx, path); err != nil {
			return nil, err
		}
		defer e.monitor.TrackComplete(path)
	}
	return proc(ctx, path)
}

// waitAdmission blocks until the monitor admits the path or the batch is
// cancelled. Resource rejections are transient, so it polls rather than
// failing the item outright.
func (e *Executor) waitAdmission(ctx context.Context, path string) error {
	for {
		if err := e.monitor.CanProceed(); err == nil {
			if err := e.monitor.TrackStart(path); err == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
