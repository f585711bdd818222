package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	ballotledger "ballotbox/contexts/election-integrity/ballot-ledger"
	postgresadapter "ballotbox/contexts/election-integrity/ballot-ledger/adapters/postgres"
	contractsv1 "ballotbox/contracts/gen/events/v1"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const tallyLogGroup = "ballot-ledger-tally-log-cg"

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          *messaging.Kafka
	module       ballotledger.Module
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	pg, repo, err := openLedgerStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	module, err := ballotledger.NewModule(ledgerDependencies(cfg, repo, nil, logger))
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	if cfg.SeedDemoData {
		SeedDemo(ctx, module, logger)
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	pg, repo, err := openLedgerStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	module, err := ballotledger.NewModule(ledgerDependencies(cfg, repo, kafka, logger))
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	return &WorkerApp{
		postgres:     pg,
		bus:          kafka,
		module:       module,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func openLedgerStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*db.Postgres, *postgresadapter.Repository, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	return pg, repo, nil
}

func ledgerDependencies(
	cfg config.Config,
	repo *postgresadapter.Repository,
	kafka *messaging.Kafka,
	logger *slog.Logger,
) ballotledger.Dependencies {
	deps := ballotledger.Dependencies{
		Candidatures:   repo,
		Ledger:         repo,
		Chain:          repo,
		Tallies:        repo,
		Registrations:  repo,
		Outbox:         repo,
		Clock:          postgresadapter.SystemClock{},
		Cycle:          postgresadapter.FixedElectionCycle{Year: cfg.ElectionYear},
		IDGen:          postgresadapter.UUIDGenerator{},
		SecretKey:      []byte(cfg.LedgerSecretKey),
		AppendAttempts: cfg.LedgerAppendAttempts,
		Logger:         logger,
	}
	if kafka != nil {
		deps.Publisher = kafka
		deps.Subscriber = kafka
	}
	return deps
}

// Run serves HTTP until ctx is done, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run subscribes the results broadcaster and the tally log before the first
// relay cycle, then relays the outbox on every poll tick until ctx is done.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.module.Results.Start(ctx); err != nil {
		return err
	}
	if err := w.bus.Subscribe(ctx, contractsv1.TopicTallyUpdated, tallyLogGroup, w.logTallyUpdate); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"brokers", strings.Join(w.bus.Brokers(), ","),
	)
	return w.relayLoop(ctx)
}

func (w *WorkerApp) relayLoop(ctx context.Context) error {
	interval := w.pollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.module.OutboxRelay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_outbox_relay_failed",
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

// logTallyUpdate records every published tally on the worker log. Pushing
// tallies to clients is left to whatever consumes the topic.
func (w *WorkerApp) logTallyUpdate(_ context.Context, event contractsv1.Envelope) error {
	var data contractsv1.TallyUpdatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return err
	}
	leader, votes := "", 0
	if len(data.Rows) > 0 {
		leader, votes = data.Rows[0].CandidatureCode, data.Rows[0].Votes
	}
	w.logger.Info("tally updated",
		"event", "bootstrap_tally_updated",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"position", data.CandidaturePosition,
		"caused_by_event_id", data.CausedByEventID,
		"candidatures", len(data.Rows),
		"leader_code", leader,
		"leader_votes", votes,
	)
	return nil
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
