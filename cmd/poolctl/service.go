package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/config"
	"ammCore/internal/events"
	"ammCore/internal/pool"
	"ammCore/internal/storage"
	"ammCore/internal/storage/postgres"
)

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "main", "pool id")
	cmd.Flags().String("state-dir", "./data/pools", "directory of pool snapshot files (ignored with --pg-dsn)")
	cmd.Flags().String("journal", "./data/operations.jsonl", "operation journal JSONL path (ignored with --pg-dsn)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshots and the journal")
	cmd.Flags().Bool("ensure-schema", true, "create Postgres tables if missing")
	cmd.Flags().String("nats-url", "", "NATS URL for publishing committed operations")
	cmd.Flags().String("rate-mode", "truncated", "deposit pricing (truncated, precise)")
	cmd.Flags().Int("max-retries", 3, "snapshot load retry attempts")
	cmd.Flags().Duration("retry-backoff", 0, "initial snapshot load retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "optional rotating log file")
}

// poolEnv is an opened pool service plus everything that must be closed with it.
type poolEnv struct {
	cfg     config.PoolConfig
	logger  *zap.Logger
	service *pool.Service
	closers []func()
}

func (e *poolEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	_ = e.logger.Sync()
}

func openPool(ctx context.Context, cmd *cobra.Command) (*poolEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPool(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	env := &poolEnv{cfg: cfg, logger: logger}

	mode, err := amm.ParseRateMode(cfg.RateMode)
	if err != nil {
		env.Close()
		return nil, err
	}

	var (
		store   storage.Store
		journal storage.Journal
	)
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		env.closers = append(env.closers, pg.Close)
		if cfg.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				env.Close()
				return nil, err
			}
		}
		store, journal = pg, pg
	} else {
		store = storage.NewFileStore(cfg.StateDir)
		if cfg.Journal != "" {
			journal = storage.NewJsonlJournal(cfg.Journal)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		nc, js, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = nc.Drain() })
		if err := events.EnsureStream(ctx, js); err != nil {
			env.Close()
			return nil, err
		}
		publisher = events.NewNatsPublisher(js, logger)
	}

	env.service = pool.NewService(store, journal, publisher, pool.Options{
		RateMode:       mode,
		LoadRetries:    cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBackoff,
	}, logger)

	logger.Debug("pool service ready",
		zap.String("pool", cfg.Pool),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("nats", cfg.NATSURL != ""),
		zap.String("rate_mode", mode.String()),
	)
	return env, nil
}
