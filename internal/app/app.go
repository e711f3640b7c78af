// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 11:31:02 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/handlers"
	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/services/ingest"
	"github.com/ternarybob/msgvault/internal/services/notify"
	"github.com/ternarybob/msgvault/internal/services/runner"
	"github.com/ternarybob/msgvault/internal/services/scheduler"
	"github.com/ternarybob/msgvault/internal/storage"
)

// App holds all application dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Services
	Storage   *storage.Manager
	Ingest    *ingest.Service
	Runner    *runner.Service
	Notifier  interfaces.Notifier
	Scheduler *scheduler.Scheduler

	// Handlers
	IngestHandler  *handlers.IngestHandler
	DataHandler    *handlers.DataHandler
	ProfileHandler *handlers.ProfileHandler
	SyncHandler    *handlers.SyncHandler
	StreamHandler  *handlers.StreamHandler
	WSHandler      *handlers.WSHandler
	APIHandler     *handlers.APIHandler
}

// New wires services and handlers together
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	a.Storage = storage.NewManager(config, logger)

	if notifier := notify.NewTelegramNotifier(config, logger); notifier != nil {
		a.Notifier = notifier
		logger.Info().Msg("Telegram notifications enabled")
	}

	a.Ingest = ingest.NewService(a.Storage, a.Notifier, logger)

	runnerSvc, err := runner.NewService(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner service: %w", err)
	}
	a.Runner = runnerSvc

	a.Scheduler = scheduler.NewScheduler(config, a.Runner, logger)

	a.IngestHandler = handlers.NewIngestHandler(a.Ingest, logger)
	a.DataHandler = handlers.NewDataHandler(a.Storage, logger)
	a.ProfileHandler = handlers.NewProfileHandler(a.Storage, logger)
	a.SyncHandler = handlers.NewSyncHandler(a.Runner, logger)
	a.StreamHandler = handlers.NewStreamHandler(config, a.Runner, logger)
	a.WSHandler = handlers.NewWSHandler(config, a.Runner, logger)
	a.APIHandler = handlers.NewAPIHandler(logger)

	return a, nil
}

// Start begins background services
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close releases application resources
func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.Storage.Close()
}
