package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/storypress/storypress/internal/compose"
	"github.com/storypress/storypress/internal/config"
	"github.com/storypress/storypress/internal/home"
	"github.com/storypress/storypress/internal/pipeline"
	"github.com/storypress/storypress/internal/prepress"
	"github.com/storypress/storypress/internal/providers"
)

// app bundles the wired-up runtime shared by the serve and submit
// commands.
type app struct {
	cfgManager *config.Manager
	homeDir    *home.Dir
	registry   *providers.Registry
	store      pipeline.Store
	queue      pipeline.Queue
	pipe       *pipeline.Pipeline
	logger     *slog.Logger
}

// newApp loads configuration and constructs the pipeline runtime.
func newApp() (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	cfgPath := cfgFile
	if cfgPath == "" && h.ConfigExists() {
		cfgPath = h.ConfigPath()
	}
	cm, err := config.NewManager(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	regCfg := cfg.ToRegistryConfig()
	regCfg.Logger = logger
	registry := providers.NewRegistryFromConfig(regCfg)

	var queue pipeline.Queue
	switch cfg.Pipeline.Queue {
	case "", "memory":
		queue = pipeline.NewMemoryQueue()
	case "nats":
		queue, err = pipeline.NewNatsQueue(cfg.Pipeline.NatsURL, cfg.Pipeline.NatsStream)
		if err != nil {
			return nil, fmt.Errorf("failed to connect queue backend: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Pipeline.Queue)
	}

	var printClient pipeline.PrintClient
	switch cfg.Print.Type {
	case "", "mock":
		printClient = pipeline.NewMockPrintClient()
	case "http":
		printClient = pipeline.NewHTTPPrintClient(cfg.Print.BaseURL, config.ResolveEnvVars(cfg.Print.APIKey))
	default:
		return nil, fmt.Errorf("unknown print client type %q", cfg.Print.Type)
	}

	store := pipeline.NewMemoryStore()

	handlers := pipeline.NewHandlers(pipeline.HandlersConfig{
		Registry: registry,
		Store:    store,
		HomeDir:  h,
		Print:    printClient,
		Logger:   logger,
		PrepressOpts: prepress.Options{
			BleedPercent:   cfg.Prepress.BleedPercent,
			TargetWidth:    cfg.Prepress.TargetWidth,
			TargetHeight:   cfg.Prepress.TargetHeight,
			EdgeSampleSize: cfg.Prepress.EdgeSampleSize,
		},
		TextConfig: compose.TextConfig{
			FontSize:         cfg.Overlay.FontSize,
			LineSpacing:      cfg.Overlay.LineSpacing,
			TextColor:        cfg.Overlay.TextColor,
			TextWidthPercent: cfg.Overlay.TextWidthPercent,
			BorderPercent:    cfg.Overlay.BorderPercent,
		},
		ICCProfile:      cfg.Print.ICCProfile,
		VisionScore:     cfg.Pipeline.VisionScore,
		VisionPlacement: cfg.Overlay.VisionPlacement,
	})

	pipeCfg := pipeline.Config{
		DefaultWorkers:    cfg.Pipeline.DefaultWorkers,
		MaxAttempts:       cfg.Pipeline.MaxAttempts,
		TrackMaxAttempts:  cfg.Pipeline.TrackMaxAttempts,
		TrackPollInterval: cfg.Pipeline.TrackPollDuration(),
	}
	if len(cfg.Pipeline.Workers) > 0 {
		pipeCfg.Workers = make(map[pipeline.Stage]int, len(cfg.Pipeline.Workers))
		for name, n := range cfg.Pipeline.Workers {
			stage, err := pipeline.ParseStage(name)
			if err != nil {
				logger.Warn("ignoring worker count for unknown stage", "stage", name)
				continue
			}
			pipeCfg.Workers[stage] = n
		}
	}

	return &app{
		cfgManager: cm,
		homeDir:    h,
		registry:   registry,
		store:      store,
		queue:      queue,
		pipe:       pipeline.New(queue, store, handlers, pipeCfg, logger),
		logger:     logger,
	}, nil
}

func (a *app) close() {
	if err := a.queue.Close(); err != nil {
		a.logger.Error("failed to close queue", "error", err)
	}
}
