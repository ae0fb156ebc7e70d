// Package daemonctl launches and terminates the docsyncd process on behalf
// of the CLI. Liveness is tracked through the pid file the daemon writes;
// the HTTP API, when bound, is only a readiness probe.
package daemonctl

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"docsync/internal/config"
)

// ErrDaemonNotRunning indicates no live daemon process was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls how the daemon process is spawned.
type LaunchOptions struct {
	ConfigPath string
}

// StartResult captures start orchestration state.
type StartResult struct {
	Launched bool
	PID      int
}

// StopResult captures stop orchestration state.
type StopResult struct {
	Terminated bool
	ForcedKill bool
	StoppedPID int
}

// ReadPID returns the pid recorded in the daemon pid file, or
// ErrDaemonNotRunning when the file is absent or names a dead process.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.PIDFilePath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrDaemonNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", cfg.PIDFilePath(), err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q is malformed", cfg.PIDFilePath())
	}
	if !processAlive(pid) {
		return 0, ErrDaemonNotRunning
	}
	return pid, nil
}

// EnsureStarted launches a detached daemon process unless one is already
// running, then waits for it to come up.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if pid, err := ReadPID(cfg); err == nil {
		return StartResult{Launched: false, PID: pid}, nil
	} else if !errors.Is(err, ErrDaemonNotRunning) {
		return StartResult{}, err
	}

	if strings.TrimSpace(executablePath) == "" {
		return StartResult{}, errors.New("resolve executable: executable path is empty")
	}
	args := []string{"daemon", "run"}
	if c := strings.TrimSpace(opts.ConfigPath); c != "" {
		args = append(args, "--config", c)
	}
	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return StartResult{}, fmt.Errorf("launch daemon: %w", err)
	}
	if err := proc.Process.Release(); err != nil {
		return StartResult{}, fmt.Errorf("detach daemon: %w", err)
	}

	pid, err := waitForPID(cfg, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
		if err := waitForAPI(bind, cfg.Paths.APIToken, waitTimeout); err != nil {
			return StartResult{}, err
		}
	}
	return StartResult{Launched: true, PID: pid}, nil
}

// StopAndTerminate signals the daemon to shut down and force-kills it if it
// is still alive after the grace period.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid, err := ReadPID(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			cleanupPIDFile(cfg)
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			cleanupPIDFile(cfg)
			return StopResult{Terminated: true, StoppedPID: pid}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return StopResult{}, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	cleanupPIDFile(cfg)
	return StopResult{Terminated: true, ForcedKill: true, StoppedPID: pid}, nil
}

func waitForPID(cfg *config.Config, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pid, err := ReadPID(cfg); err == nil {
			return pid, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return 0, errors.New("daemon failed to start: timeout waiting for pid file")
}

func waitForAPI(bind, token string, timeout time.Duration) error {
	url := "http://" + dialableAddr(bind) + "/api/status"
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("status endpoint returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon API did not come up: %w", lastErr)
}

// dialableAddr rewrites wildcard binds to loopback so the readiness probe
// can reach a daemon listening on all interfaces.
func dialableAddr(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func cleanupPIDFile(cfg *config.Config) {
	_ = os.Remove(cfg.PIDFilePath())
	_ = os.Remove(cfg.LockFilePath())
}
