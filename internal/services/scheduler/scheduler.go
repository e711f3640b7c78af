package scheduler

import (
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/services/runner"
)

// Scheduler triggers periodic syncs for every configured tenant
type Scheduler struct {
	config *common.Config
	runner interfaces.RunnerService
	logger arbor.ILogger
	cron   *cron.Cron
}

// NewScheduler creates a scheduler; call Start to begin
func NewScheduler(config *common.Config, runner interfaces.RunnerService, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		config: config,
		runner: runner,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the configured cron expression. Disabled config is a
// no-op so callers can start unconditionally.
func (s *Scheduler) Start() error {
	if !s.config.Schedule.Enabled {
		s.logger.Debug().Msg("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Schedule.Cron, s.runAll)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("cron", s.config.Schedule.Cron).Int("tenants", len(s.config.Tenants)).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop; in-flight scraper processes are unaffected
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runAll() {
	for _, tc := range s.config.Tenants {
		state, err := s.runner.Start(tc.Name)
		switch {
		case err == nil:
			s.logger.Info().Str("tenant", tc.Name).Int("pid", state.PID).Msg("Scheduled sync started")
		case errors.Is(err, runner.ErrAlreadyRunning):
			s.logger.Debug().Str("tenant", tc.Name).Msg("Scheduled sync skipped, already running")
		default:
			s.logger.Warn().Err(err).Str("tenant", tc.Name).Msg("Scheduled sync failed to start")
		}
	}
}
