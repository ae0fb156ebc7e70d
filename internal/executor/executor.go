// Package executor runs analyzers with retry, timeout, and fallback-chain
// semantics. A run returns a single outcome envelope: complete when the
// primary analyzer succeeded, partial when a fallback produced usable data,
// and a hard error when the whole chain was exhausted.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docsync/internal/analysis"
	"docsync/internal/logging"
	"docsync/internal/resource"
	"docsync/internal/services"
)

// Options bounds a single run.
type Options struct {
	// MaxRetries is the number of retries after the first primary attempt.
	MaxRetries int
	// RetryDelay is the fixed pause between primary attempts. Retries use a
	// fixed delay rather than backoff so recovery time stays predictable.
	RetryDelay time.Duration
	// Timeout bounds each individual analyzer attempt.
	Timeout time.Duration
}

// Executor drives analyzer chains. It is stateless apart from its options
// and safe for concurrent use.
type Executor struct {
	opts    Options
	monitor *resource.Monitor
	logger  *slog.Logger
}

// New builds an executor. The monitor may be nil, in which case batch runs
// are bounded only by their own concurrency option.
func New(opts Options, monitor *resource.Monitor, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		opts:    opts,
		monitor: monitor,
		logger:  logger.With(logging.String(logging.FieldComponent, "executor")),
	}
}

// Run executes the primary analyzer with retries, then walks the fallback
// chain. On total exhaustion it returns a non-nil outcome carrying the
// accumulated error records alongside the error itself.
func (e *Executor) Run(ctx context.Context, path string, primary analysis.Analyzer, fallbacks []analysis.Analyzer) (*analysis.Outcome, error) {
	start := time.Now()
	var records []services.ErrorRecord

	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.pause(ctx); err != nil {
				return nil, err
			}
		}
		result, err := e.attempt(ctx, path, primary)
		if err == nil {
			return &analysis.Outcome{
				Path:         path,
				Result:       result,
				Analyzer:     primary.Name(),
				Completeness: 1.0,
				Duration:     analysis.Millis(time.Since(start)),
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Retrying only pays off for transient failure classes; anything
		// else goes straight to the fallback chain.
		retriesLeft := attempt < e.opts.MaxRetries && services.Retryable(err)
		records = append(records, e.failureRecord(path, primary.Name(), err, retriesLeft, len(fallbacks) > 0))
		e.logger.Debug("analyzer attempt failed",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldAnalyzer, primary.Name()),
			logging.Int("attempt", attempt+1),
			logging.Error(err))
		if !retriesLeft {
			break
		}
	}

	for n, fallback := range fallbacks {
		result, err := e.attempt(ctx, path, fallback)
		if err == nil {
			if services.MaxSeverity(records) >= services.SeverityCritical {
				// A critical failure poisons the run; a degraded result must
				// not paper over it.
				return e.exhausted(path, records, start)
			}
			outcome := &analysis.Outcome{
				Path:          path,
				Result:        result,
				Analyzer:      fallback.Name(),
				FallbacksUsed: []string{fallback.Name()},
				Completeness:  1.0 / float64(2+n),
				Errors:        records,
				Duration:      analysis.Millis(time.Since(start)),
			}
			e.logger.Info("fallback analyzer succeeded",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldAnalyzer, fallback.Name()),
				logging.Float64("completeness", outcome.Completeness))
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		records = append(records, e.failureRecord(path, fallback.Name(), err, false, n < len(fallbacks)-1))
	}

	return e.exhausted(path, records, start)
}

// attempt runs one analyzer invocation under the per-attempt timeout. A
// timed-out attempt's eventual result is discarded, never awaited.
func (e *Executor) attempt(ctx context.Context, path string, analyzer analysis.Analyzer) (*analysis.Result, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	defer cancel()

	type reply struct {
		result *analysis.Result
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		result, err := analyzer.Analyze(attemptCtx, path)
		done <- reply{result, err}
	}()

	select {
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTimeout, analyzer.Name(), "analyze", path, attemptCtx.Err())
	case r := <-done:
		return r.result, r.err
	}
}

func (e *Executor) pause(ctx context.Context) error {
	if e.opts.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.opts.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) failureRecord(path, analyzer string, err error, retriesLeft, fallbacksLeft bool) services.ErrorRecord {
	var actions []services.RecoveryAction
	if retriesLeft {
		actions = append(actions, services.RecoveryAction{
			Type:   services.RecoveryRetry,
			Detail: fmt.Sprintf("retry %s after %s", analyzer, e.opts.RetryDelay),
		})
	}
	if fallbacksLeft {
		actions = append(actions, services.RecoveryAction{
			Type:   services.RecoveryFallback,
			Detail: "try next analyzer in chain",
		})
	}
	if len(actions) == 0 {
		actions = append(actions, services.RecoveryAction{
			Type:   services.RecoverySkip,
			Detail: "skip file and continue",
		})
	}
	return services.NewRecord(err, path, analyzer, actions...)
}

// exhausted builds the hard-failure return. The error category follows the
// accumulated records: pure I/O failures surface as file access errors,
// anything else as a parser error.
func (e *Executor) exhausted(path string, records []services.ErrorRecord, start time.Time) (*analysis.Outcome, error) {
	marker := services.ErrParser
	if allFileAccess(records) {
		marker = services.ErrFileAccess
	}
	outcome := &analysis.Outcome{
		Path:     path,
		Errors:   records,
		Duration: analysis.Millis(time.Since(start)),
	}
	return outcome, services.Wrap(marker, "executor", "run",
		fmt.Sprintf("%s: analyzer chain exhausted after %d failures", path, len(records)), nil)
}

func allFileAccess(records []services.ErrorRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, record := range records {
		if record.Category != services.CategoryFileAccess {
			return false
		}
	}
	return true
}
