package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/gofrs/flock"

	"docsync/internal/config"
	"docsync/internal/logging"
	"docsync/internal/pipeline"
)

// Daemon coordinates the pipeline and API server and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	pipe   *pipeline.Pipeline
	api    *apiServer

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is the daemon runtime summary served over the API.
type Status struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	WatchDirs    []string         `json:"watch_dirs"`
	CacheDBPath  string           `json:"cache_db_path"`
	LockFilePath string           `json:"lock_file_path"`
	Metrics      pipeline.Metrics `json:"metrics"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, pipe *pipeline.Pipeline, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || pipe == nil {
		return nil, errors.New("daemon requires config and pipeline")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		pipe:     pipe,
		lockPath: lockPath,
		pidPath:  cfg.PIDFilePath(),
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the pipeline and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pipe.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.pipe.Stop()
			_ = d.lock.Unlock()
			cancel()
			return err
		}
	}

	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		d.logger.Warn("failed to write pid file", logging.Error(err))
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("docsync daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("watch_dirs", len(d.cfg.Paths.WatchDirs)))
	return nil
}

// Stop shuts the API server and pipeline down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	d.pipe.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("docsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status reports the current daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		WatchDirs:    d.cfg.Paths.WatchDirs,
		CacheDBPath:  d.cfg.CacheDBPath(),
		LockFilePath: d.lockPath,
		Metrics:      d.pipe.Metrics(),
	}
}
