package resource

import (
	"errors"
	"fmt"
	"runtime"
	"testing"
	"time"

	"docsync/internal/services"
)

func TestMonitorConcurrencyBound(t *testing.T) {
	m := NewMonitor(Options{MaxConcurrent: 2}, nil)

	if err := m.TrackStart("/a.go"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := m.TrackStart("/b.go"); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if err := m.CanProceed(); !errors.Is(err, services.ErrResourceConstraint) {
		t.Fatalf("expected resource constraint, got %v", err)
	}
	if err := m.TrackStart("/c.go"); !errors.Is(err, services.ErrResourceConstraint) {
		t.Fatalf("expected resource constraint, got %v", err)
	}

	m.TrackComplete("/a.go")
	if err := m.CanProceed(); err != nil {
		t.Fatalf("slot freed but admission failed: %v", err)
	}
	if err := m.TrackStart("/c.go"); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestMonitorNeverExceedsBound(t *testing.T) {
	const limit = 4
	m := NewMonitor(Options{MaxConcurrent: limit}, nil)

	admitted := 0
	for i := 0; i < 50; i++ {
		if err := m.TrackStart(fmt.Sprintf("/f%d.go", i)); err == nil {
			admitted++
		}
		if m.Active() > limit {
			t.Fatalf("active = %d exceeds limit %d", m.Active(), limit)
		}
	}
	if admitted != limit {
		t.Fatalf("admitted = %d, want %d", admitted, limit)
	}
}

func TestMonitorMemoryThreshold(t *testing.T) {
	m := NewMonitor(Options{MaxConcurrent: 8, MemoryMaxBytes: 1024}, nil)
	m.readRSS = func() uint64 { return 4096 }

	err := m.CanProceed()
	if !errors.Is(err, services.ErrResourceConstraint) {
		t.Fatalf("expected memory rejection, got %v", err)
	}

	m.readRSS = func() uint64 { return 512 }
	if err := m.CanProceed(); err != nil {
		t.Fatalf("under threshold but rejected: %v", err)
	}
}

func TestMonitorMemoryBackpressureLifts(t *testing.T) {
	baseline := processRSS()
	if baseline == 0 {
		t.Fatal("memory sampler returned zero")
	}

	m := NewMonitor(Options{MaxConcurrent: 8, MemoryMaxBytes: baseline + 96<<20}, nil)

	// Hold ~192 MB of touched pages so the live heap sits above the limit.
	block := make([]byte, 192<<20)
	for i := 0; i < len(block); i += 4096 {
		block[i] = 1
	}
	if err := m.CanProceed(); !errors.Is(err, services.ErrResourceConstraint) {
		t.Fatalf("expected memory rejection under load, got %v", err)
	}

	held := processRSS()
	runtime.KeepAlive(block)
	block = nil
	runtime.GC()

	// CanProceed forces a release back to the OS and re-samples, so the
	// rejection must lift once the block is collectible.
	if err := m.CanProceed(); err != nil {
		t.Fatalf("backpressure did not lift after memory was freed: %v", err)
	}
	if recovered := processRSS(); recovered >= held {
		t.Fatalf("sample did not fall after free: held=%d recovered=%d", held, recovered)
	}
}

func TestMonitorTracksAverageDuration(t *testing.T) {
	m := NewMonitor(Options{MaxConcurrent: 2}, nil)

	if err := m.TrackStart("/a.go"); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	m.TrackComplete("/a.go")

	snap := m.Snapshot()
	if snap.AvgDuration <= 0 {
		t.Fatalf("avg duration not recorded: %v", snap.AvgDuration)
	}
	if snap.Completed != 1 {
		t.Fatalf("completed = %d, want 1", snap.Completed)
	}
	if snap.Active != 0 {
		t.Fatalf("active = %d, want 0", snap.Active)
	}
}

func TestMonitorCompleteUnknownPathIsNoop(t *testing.T) {
	m := NewMonitor(Options{MaxConcurrent: 1}, nil)
	m.TrackComplete("/never-started.go")
	if snap := m.Snapshot(); snap.Completed != 0 {
		t.Fatalf("completed = %d, want 0", snap.Completed)
	}
}
