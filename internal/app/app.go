// -----------------------------------------------------------------------
// Application wiring - Services, storage, and handlers
// -----------------------------------------------------------------------

package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/handlers"
	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/runner"
	"github.com/ternarybob/hydrun/internal/services/catalog"
	"github.com/ternarybob/hydrun/internal/services/events"
	"github.com/ternarybob/hydrun/internal/services/scheduler"
	"github.com/ternarybob/hydrun/internal/services/status"
	"github.com/ternarybob/hydrun/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	EventService   interfaces.EventService
	StatusService  *status.Service
	CatalogService *catalog.Service
	RunnerService  *runner.Service
	CleanupService *scheduler.Service

	APIHandler *handlers.APIHandler
	JobHandler *handlers.JobHandler
	WSHandler  *handlers.WebSocketHandler

	wsWriter *handlers.WebSocketWriter
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger, &cfg.WebSocket)

	// Bridge service logs onto the WebSocket stream
	wsWriter, err := handlers.NewWebSocketWriter(app.WSHandler, arbormodels.WriterConfiguration{}, &cfg.WebSocket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize websocket log writer: %w", err)
	}
	app.wsWriter = wsWriter
	app.subscribeLogEvents()

	app.StatusService = status.NewService(storageManager.JobStorage(), logger)

	catalogService, err := catalog.NewService(cfg.Solvers.CatalogDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load solver catalog: %w", err)
	}
	app.CatalogService = catalogService

	app.RunnerService = runner.NewService(cfg, app.StatusService, app.EventService, logger)

	app.CleanupService = scheduler.NewService(&cfg.Cleanup, storageManager.JobStorage(), logger)
	if cfg.Cleanup.Enabled {
		if err := app.CleanupService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start cleanup scheduler: %w", err)
		}
	}

	app.APIHandler = handlers.NewAPIHandler()
	app.JobHandler = handlers.NewJobHandler(app.RunnerService, app.CatalogService, storageManager.JobStorage(), cfg, logger)

	logger.Info().
		Int("solvers", len(app.CatalogService.List())).
		Bool("cleanup_enabled", cfg.Cleanup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// subscribeLogEvents forwards published log events through the buffered
// WebSocket writer so level filtering and exclusions apply.
func (a *App) subscribeLogEvents() {
	a.EventService.Subscribe(interfaces.EventLogEntry, func(ctx context.Context, event interfaces.Event) error {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		_, err = a.wsWriter.Write(data)
		return err
	})
}

// Close shuts down services in reverse dependency order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.CleanupService != nil {
		a.CleanupService.Stop()
	}
	if a.wsWriter != nil {
		a.wsWriter.Close()
	}
	if a.EventService != nil {
		a.EventService.Close()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
