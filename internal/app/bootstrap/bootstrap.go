package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	votingsession "plenary/contexts/governance/voting-session"
	"plenary/contexts/governance/voting-session/adapters/eligibility"
	"plenary/contexts/governance/voting-session/adapters/memory"
	postgresadapter "plenary/contexts/governance/voting-session/adapters/postgres"
	workerapp "plenary/contexts/governance/voting-session/application/workers"
	"plenary/internal/platform/config"
	"plenary/internal/platform/db"
	"plenary/internal/platform/httpserver"
	"plenary/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	sweeper       workerapp.SessionSweeper
	outboxRelay   workerapp.OutboxRelay
	results       workerapp.ResultAnnouncer
	sweepInterval time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	checker := eligibility.NewClient(cfg.EligibilityURL, cfg.EligibilityTimeout, logger)
	tallyCache := memory.NewStore()

	module := votingsession.NewModule(votingsession.Dependencies{
		Agenda:          repo,
		Sessions:        repo,
		Votes:           repo,
		Eligibility:     checker,
		Tallies:         tallyCache,
		Outbox:          repo,
		Clock:           postgresadapter.SystemClock{},
		IDGen:           postgresadapter.UUIDGenerator{},
		DefaultDuration: cfg.SessionDefaultDuration,
		Logger:          logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		sweeper: workerapp.SessionSweeper{
			Sessions: repo,
			Outbox:   repo,
			Clock:    postgresadapter.SystemClock{},
			IDGen:    postgresadapter.UUIDGenerator{},
			Logger:   logger,
		},
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		results: workerapp.ResultAnnouncer{
			Subscriber: kafka,
			Publisher:  kafka,
			Sessions:   repo,
			Votes:      repo,
			IDGen:      postgresadapter.UUIDGenerator{},
			Clock:      postgresadapter.SystemClock{},
			Logger:     logger,
		},
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.results.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.sweepInterval.String(),
	)

	// Cycle faults are logged and retried on the next tick; only shutdown
	// stops the loop.
	for {
		if _, err := w.sweeper.RunOnce(ctx); err != nil {
			w.logger.Error("session sweep cycle failed",
				"event", "bootstrap_sweep_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			w.logger.Error("outbox relay cycle failed",
				"event", "bootstrap_relay_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
