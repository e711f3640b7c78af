package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// lockInfo is what a lock file on disk tells us
type lockInfo struct {
	PID int
	Age time.Duration
}

// readLock parses the lock file. A missing file returns (nil, nil); a
// corrupt one is treated as stale and reported with PID 0.
func readLock(path string) (*lockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat lock file: %w", err)
	}

	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return &lockInfo{
		PID: pid,
		Age: time.Since(info.ModTime()),
	}, nil
}

func writeLock(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644)
}

func clearLock(path string) {
	_ = os.Remove(path)
}

// processAlive checks liveness via the process group. Works for our
// detached children because Setsid gives each its own group.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := syscall.Getpgid(pid)
	return err == nil
}
