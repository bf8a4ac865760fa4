package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/soundware/sndw/config"
	"github.com/ZanzyTHEbar/soundware/sndw/db"
	"github.com/ZanzyTHEbar/soundware/sndw/llm/gemini"
	"github.com/ZanzyTHEbar/soundware/sndw/llm/openai"
	"github.com/ZanzyTHEbar/soundware/sndw/logging"
	"github.com/ZanzyTHEbar/soundware/sndw/lookup/youtube"
	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// app holds the process-wide components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Pipeline
	db       *sql.DB
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conn, err := db.Open(ctx, db.Config{DSN: cfg.Database.DSN, AuthToken: cfg.Database.AuthToken}, logging.Component(logger, "db"))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, logging.Component(logger, "db")); err != nil {
		conn.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.NewPipeline(registry),
		db:       conn,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// orchestrator builds the configured generator and lookup and wires the pipeline.
func (a *app) orchestrator(ctx context.Context) (*recommend.TurnOrchestrator, error) {
	generator, err := a.generator(ctx)
	if err != nil {
		return nil, err
	}

	lc := a.cfg.Lookup
	lookup := youtube.NewBreakerLookup(
		youtube.NewClient(lc.APIKey, lc.BaseURL, lc.Timeout, logging.Component(a.logger, "youtube")),
		youtube.BreakerSettings{
			MaxRequests:  lc.BreakerMaxRequests,
			Interval:     lc.BreakerInterval,
			Timeout:      lc.BreakerTimeout,
			MinRequests:  lc.BreakerMinRequests,
			FailureRatio: lc.BreakerFailureRatio,
		},
		a.metrics,
		logging.Component(a.logger, "breaker"),
	)

	factory := recommend.NewFactory(a.cfg, a.db, a.metrics, logging.Component(a.logger, "pipeline"))
	return factory.CreateOrchestrator(generator, lookup)
}

func (a *app) generator(ctx context.Context) (ports.Generator, error) {
	lc := a.cfg.LLM
	logger := logging.Component(a.logger, "llm")

	switch lc.Provider {
	case "openai":
		return openai.New(lc.APIKey, logger,
			openai.WithBaseURL(lc.BaseURL),
			openai.WithModel(lc.Model),
			openai.WithTimeout(lc.Timeout),
		), nil
	case "gemini":
		model := lc.Model
		if model == openai.DefaultModel {
			model = gemini.DefaultModel
		}
		client, err := gemini.New(ctx, gemini.Config{APIKey: lc.APIKey, Model: model, Timeout: lc.Timeout}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", lc.Provider)
	}
}
