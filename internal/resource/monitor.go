// Package resource enforces the concurrency and memory limits that keep
// analysis from starving the host. The monitor admits work, tracks what is
// in flight, and keeps a running average of analysis duration for the
// metrics surface.
package resource

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"docsync/internal/logging"
	"docsync/internal/services"
)

// ewmaWeight is the smoothing factor for the average duration.
const ewmaWeight = 0.1

// Options bounds the monitor.
type Options struct {
	MaxConcurrent  int
	MemoryMaxBytes uint64
}

// Monitor gates analysis admission. All methods are safe for concurrent use.
type Monitor struct {
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	inflight    map[string]time.Time
	avgDuration time.Duration
	completed   uint64
	rejected    uint64

	// readRSS is swapped in tests.
	readRSS func() uint64
}

// Snapshot is a point-in-time view of the monitor for metrics reporting.
type Snapshot struct {
	Active        int           `json:"active"`
	MaxConcurrent int           `json:"max_concurrent"`
	AvgDuration   time.Duration `json:"avg_duration"`
	MemoryBytes   uint64        `json:"memory_bytes"`
	Completed     uint64        `json:"completed"`
	Rejected      uint64        `json:"rejected"`
}

// NewMonitor builds a monitor with the given limits.
func NewMonitor(opts Options, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		opts:     opts,
		logger:   logger.With(logging.String(logging.FieldComponent, "resource")),
		inflight: make(map[string]time.Time),
		readRSS:  processRSS,
	}
}

// CanProceed reports whether a new analysis may start. A memory breach
// triggers one forced release of free memory back to the OS before the
// final verdict.
func (m *Monitor) CanProceed() error {
	m.mu.Lock()
	active := len(m.inflight)
	m.mu.Unlock()

	if active >= m.opts.MaxConcurrent {
		m.noteRejection()
		return services.Wrap(services.ErrResourceConstraint, "resource", "admit",
			fmt.Sprintf("concurrency limit reached (%d active)", active), nil)
	}

	if m.opts.MemoryMaxBytes > 0 {
		rss := m.readRSS()
		if rss > m.opts.MemoryMaxBytes {
			debug.FreeOSMemory()
			rss = m.readRSS()
		}
		if rss > m.opts.MemoryMaxBytes {
			m.noteRejection()
			m.logger.Warn("memory threshold exceeded",
				logging.Int64("rss_bytes", int64(rss)),
				logging.Int64("limit_bytes", int64(m.opts.MemoryMaxBytes)))
			return services.Wrap(services.ErrResourceConstraint, "resource", "admit",
				fmt.Sprintf("memory threshold exceeded (%d bytes)", rss), nil)
		}
	}

	return nil
}

// TrackStart registers an analysis as in flight. It re-checks the
// concurrency bound under the lock so concurrent admitters cannot overshoot.
func (m *Monitor) TrackStart(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inflight) >= m.opts.MaxConcurrent {
		m.rejected++
		return services.Wrap(services.ErrResourceConstraint, "resource", "track",
			fmt.Sprintf("concurrency limit reached (%d active)", len(m.inflight)), nil)
	}
	m.inflight[path] = time.Now()
	return nil
}

// TrackComplete removes an analysis from the in-flight set and folds its
// duration into the running average.
func (m *Monitor) TrackComplete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	started, ok := m.inflight[path]
	if !ok {
		return
	}
	delete(m.inflight, path)
	m.completed++

	elapsed := time.Since(started)
	if m.avgDuration == 0 {
		m.avgDuration = elapsed
		return
	}
	m.avgDuration = time.Duration((1-ewmaWeight)*float64(m.avgDuration) + ewmaWeight*float64(elapsed))
}

// Active reports the number of analyses in flight.
func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

// Snapshot captures current monitor state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Active:        len(m.inflight),
		MaxConcurrent: m.opts.MaxConcurrent,
		AvgDuration:   m.avgDuration,
		MemoryBytes:   m.readRSS(),
		Completed:     m.completed,
		Rejected:      m.rejected,
	}
}

func (m *Monitor) noteRejection() {
	m.mu.Lock()
	m.rejected++
	m.mu.Unlock()
}

// processRSS reports the current resident set size from /proc/self/statm,
// so the sample falls again once memory is returned to the OS. When procfs
// is unavailable the Go heap size stands in.
func processRSS() uint64 {
	if data, err := os.ReadFile("/proc/self/statm"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) >= 2 {
			if pages, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				return pages * uint64(unix.Getpagesize())
			}
		}
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}
