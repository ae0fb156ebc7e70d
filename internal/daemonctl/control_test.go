package daemonctl

import (
	"errors"
	"os"
	"strconv"
	"testing"

	"docsync/internal/testsupport"
)

func TestReadPIDMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := ReadPID(cfg); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestReadPIDLiveProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	self := os.Getpid()
	if err := os.WriteFile(cfg.PIDFilePath(), []byte(strconv.Itoa(self)), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	pid, err := ReadPID(cfg)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if pid != self {
		t.Fatalf("pid = %d, want %d", pid, self)
	}
}

func TestReadPIDMalformed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	if err := os.WriteFile(cfg.PIDFilePath(), []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := ReadPID(cfg); err == nil || errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected malformed pid error, got %v", err)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := StopAndTerminate(cfg, 0); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestDialableAddr(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"0.0.0.0:8765", "127.0.0.1:8765"},
		{":8765", "127.0.0.1:8765"},
		{"[::]:8765", "127.0.0.1:8765"},
		{"192.168.1.5:80", "192.168.1.5:80"},
		{"garbage", "garbage"},
	}
	for _, tc := range cases {
		if got := dialableAddr(tc.in); got != tc.want {
			t.Errorf("dialableAddr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
