package main

import (
	"context"
	"fmt"

	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/db"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/pipeline"
	"github.com/jonathan/recruit-reach/internal/search"
)

// llmFactory builds model clients for every command; tests replace it.
var llmFactory pipeline.LLMFactory = pipeline.DefaultLLMFactory

// app holds the collaborators shared by the commands.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	pipeline *pipeline.Pipeline
	history  *db.DB
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the pipeline. Search and history are enabled only when configured.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	deps := pipeline.Deps{Config: *cfg, LLM: llmFactory, Logger: log}

	if cfg.Search.APIKey != "" && cfg.Search.CX != "" {
		engine, err := search.NewGoogleEngine(ctx, cfg.Search.APIKey, cfg.Search.CX)
		if err != nil {
			return nil, fmt.Errorf("failed to create search engine: %w", err)
		}
		deps.Search = engine
	}

	if cfg.Database.URL != "" {
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.history = database
		deps.History = database
	}

	a.pipeline = pipeline.New(deps)
	log.Debug("Pipeline ready", logger.String("collaborators", a.pipeline.Describe()))
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	_ = a.log.Sync()
}
