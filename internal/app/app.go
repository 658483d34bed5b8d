package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/handlers"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/pipeline"
	"github.com/ternarybob/fabrica/internal/providers/render"
	"github.com/ternarybob/fabrica/internal/providers/script"
	"github.com/ternarybob/fabrica/internal/providers/speech"
	"github.com/ternarybob/fabrica/internal/providers/subtitles"
	"github.com/ternarybob/fabrica/internal/services/generation"
	"github.com/ternarybob/fabrica/internal/services/scheduler"
	badgerstore "github.com/ternarybob/fabrica/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Stage providers
	ScriptProvider   interfaces.ScriptProvider
	SpeechProvider   interfaces.SpeechProvider
	RenderProvider   interfaces.RenderProvider
	SubtitleProvider interfaces.SubtitleProvider

	// Core services
	Pipeline          interfaces.PipelineService
	GenerationService interfaces.GenerationService
	SchedulerService  interfaces.SchedulerService

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	VideoHandler    *handlers.VideoHandler
	PipelineHandler *handlers.PipelineHandler
}

// New wires the application from config. Construction order matters:
// storage, then providers, then the pipeline, then the scheduler over it.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initProviders(); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().Msg("Application initialized")
	return app, nil
}

func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initProviders() error {
	scriptProvider, err := script.NewProvider(&a.Config.Script, a.Logger)
	if err != nil {
		return fmt.Errorf("script provider: %w", err)
	}
	a.ScriptProvider = scriptProvider

	speechClient, err := speech.NewClient(&a.Config.Speech, speech.WithLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("speech provider: %w", err)
	}
	a.SpeechProvider = speechClient

	renderClient, err := render.NewClient(&a.Config.Render, render.WithLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("render provider: %w", err)
	}
	a.RenderProvider = renderClient

	subtitleClient, err := subtitles.NewClient(&a.Config.Subtitles, subtitles.WithLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("subtitles provider: %w", err)
	}
	a.SubtitleProvider = subtitleClient

	return nil
}

func (a *App) initServices() error {
	stageTimeout, err := a.Config.Pipeline.StageTimeoutDuration()
	if err != nil {
		return err
	}

	a.Pipeline = pipeline.NewOrchestrator(
		a.StorageManager.JobStorage(),
		a.StorageManager.VideoStorage(),
		a.ScriptProvider,
		a.SpeechProvider,
		a.RenderProvider,
		a.SubtitleProvider,
		stageTimeout,
		a.Logger,
	)

	a.GenerationService = generation.NewService(a.StorageManager.JobStorage(), a.Logger)

	a.SchedulerService = scheduler.NewService(
		a.Pipeline,
		a.StorageManager.JobStorage(),
		&a.Config.Pipeline,
		a.Logger,
	)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.GenerationService, a.Logger)
	a.VideoHandler = handlers.NewVideoHandler(a.StorageManager.VideoStorage(), a.Logger)
	a.PipelineHandler = handlers.NewPipelineHandler(a.SchedulerService, a.Logger)
}

// Start launches the background scheduler when the pipeline is enabled
func (a *App) Start() error {
	if !a.Config.Pipeline.Enabled {
		a.Logger.Info().Msg("Pipeline disabled, jobs will queue until an operator triggers a drain")
		return nil
	}
	return a.SchedulerService.Start()
}

// Close shuts down services in reverse construction order
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
