// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 2:18:55 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package runner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
)

// ErrAlreadyRunning reports a live prior run for the tenant
var ErrAlreadyRunning = errors.New("sync already running")

// Service enforces at most one live scraper process per tenant.
// Lock policy: a start request against a live, in-timeout lock is
// rejected; dead-process and over-timeout locks are cleared and the
// start proceeds.
type Service struct {
	config *common.Config
	logger arbor.ILogger

	// Serializes Start; the lock file alone leaves a check-then-spawn
	// window between concurrent in-process requests
	mu sync.Mutex
}

// NewService creates the runner service and ensures its work directories
func NewService(config *common.Config, logger arbor.ILogger) (*Service, error) {
	for _, dir := range []string{config.Runner.LocksDir, config.Runner.LogsDir, config.Runner.ConfigDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create runner directory %s: %w", dir, err)
		}
	}
	return &Service{config: config, logger: logger}, nil
}

// Start launches a detached scraper process for the tenant. A live
// prior run rejects the request with its PID and elapsed time.
func (s *Service) Start(tenant string) (*models.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc := s.config.Tenant(tenant)
	if tc == nil {
		return nil, fmt.Errorf("unknown tenant: %s", tenant)
	}

	lockPath := s.lockPath(tenant)
	lock, err := readLock(lockPath)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		if lock.Age < s.config.Runner.LockTimeout && processAlive(lock.PID) {
			return &models.RunState{
				Status:  models.RunStatusRunning,
				PID:     lock.PID,
				Elapsed: int64(lock.Age.Seconds()),
			}, ErrAlreadyRunning
		}
		s.logger.Info().Str("tenant", tenant).Int("pid", lock.PID).Msg("Clearing stale lock")
		clearLock(lockPath)
	}

	job := &models.ScrapeJob{
		RunID:          uuid.New().String(),
		Tenant:         tenant,
		Email:          tc.Email,
		Password:       tc.Password,
		APIEndpoint:    s.ingestEndpoint(),
		TargetURL:      s.config.Scraper.TargetURL,
		Site:           s.config.Scraper.Site,
		ListingURLBase: s.config.Scraper.ListingURLBase,
		MaxPages:       s.config.Scraper.MaxPages,
		MaxConvs:       s.config.Scraper.MaxConversations,
		Headless:       s.config.Scraper.Headless,
		CreatedAt:      time.Now(),
	}

	jobPath := filepath.Join(s.config.Runner.ConfigDir, "temp_"+tenant+".json")
	jobData, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(jobPath, jobData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write scraper config: %w", err)
	}

	// Fresh log per run; the stream endpoints tail this file
	logFile, err := os.OpenFile(s.LogPath(tenant), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(s.config.Runner.Launcher, "--config", jobPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scraper %s: %w", s.config.Runner.Launcher, err)
	}
	pid := cmd.Process.Pid

	// The process is detached; releasing it here keeps the request
	// handler from ever waiting on it
	if err := cmd.Process.Release(); err != nil {
		s.logger.Warn().Err(err).Int("pid", pid).Msg("Process release failed")
	}

	if err := writeLock(lockPath, pid); err != nil {
		return nil, fmt.Errorf("failed to write lock: %w", err)
	}

	s.logger.Info().Str("tenant", tenant).Int("pid", pid).Str("run_id", job.RunID).Msg("Sync started")
	return &models.RunState{Status: models.RunStatusStarted, PID: pid}, nil
}

// Status reports idle or running. Stale locks are cleared as a side
// effect, which is how crashed runs self-heal.
func (s *Service) Status(tenant string) (*models.RunState, error) {
	lockPath := s.lockPath(tenant)
	lock, err := readLock(lockPath)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return &models.RunState{Status: models.RunStatusIdle}, nil
	}

	if lock.Age >= s.config.Runner.LockTimeout || !processAlive(lock.PID) {
		clearLock(lockPath)
		return &models.RunState{Status: models.RunStatusIdle}, nil
	}

	return &models.RunState{
		Status:   models.RunStatusRunning,
		PID:      lock.PID,
		Elapsed:  int64(lock.Age.Seconds()),
		LastLine: s.lastLogLine(tenant),
	}, nil
}

// LogPath returns the tenant's run log file path
func (s *Service) LogPath(tenant string) string {
	return filepath.Join(s.config.Runner.LogsDir, tenant+"_sync.log")
}

// PIDAlive reports whether the given process still exists
func (s *Service) PIDAlive(pid int) bool {
	return processAlive(pid)
}

func (s *Service) lockPath(tenant string) string {
	return filepath.Join(s.config.Runner.LocksDir, tenant+".lock")
}

func (s *Service) ingestEndpoint() string {
	host := s.config.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.config.Server.Port)) + "/api/conversations/save"
}

func (s *Service) lastLogLine(tenant string) string {
	f, err := os.Open(s.LogPath(tenant))
	if err != nil {
		return ""
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			last = line
		}
	}
	return last
}
