package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/snapshot"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/timing"
	"github.com/claude/liftlog/internal/workout"
)

// app is the wired runtime shared by serve and local mcp.
type app struct {
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Manager
	sessions server.SessionLister
	board    *livestatus.Board
	runtime  *workout.Runtime
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (a *app, err error) {
	a = &app{log: log}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	var store workout.Store
	var extra []prometheus.Collector
	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Database.MigrationsPath); err != nil {
			return a, fmt.Errorf("running migrations: %w", err)
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return a, fmt.Errorf("connecting database: %w", err)
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		store, a.sessions = db, db
		extra = append(extra, pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
		log.Info("database connected", "host", cfg.Database.Host)
	} else {
		mem := storage.NewMemory()
		store, a.sessions = mem, mem
		log.Warn("no database configured, sessions are kept in memory")
	}

	a.registry = metrics.SetupPrometheus(extra...)
	a.metrics = metrics.NewManager(cfg.Metrics.Namespace, "runtime", a.registry)

	snapshots, err := a.openSnapshots(ctx, cfg.Snapshot)
	if err != nil {
		return a, err
	}

	var surface livestatus.Surface = livestatus.NopSurface{}
	if cfg.LiveStatus.Surface == "board" {
		a.board = livestatus.NewBoard(timing.SystemClock{})
		surface = a.board
	}
	live := livestatus.NewSynchronizer(surface, log, a.metrics, cfg.LiveStatus.PushTimeout, cfg.LiveStatus.Grace)

	a.runtime = workout.NewRuntime(store, snapshots, live, a.metrics, log, workout.Options{
		TickInterval: cfg.Session.TickInterval,
	})
	return a, nil
}

// openSnapshots builds the configured resume snapshot backend.
func (a *app) openSnapshots(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.log.Warn("redis ping failed, snapshots will retry per save", "addr", cfg.RedisAddr, "error", err)
		}
		a.log.Info("resume snapshots in redis", "addr", cfg.RedisAddr)
		return snapshot.NewRedisStore(rdb, cfg.RedisKey, cfg.TTL), nil
	case "memory":
		a.log.Warn("resume snapshots kept in memory, sessions will not survive a restart")
		return snapshot.NewMemoryStore(), nil
	default:
		store, err := snapshot.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.log.Info("resume snapshots in sqlite", "path", cfg.Path)
		return store, nil
	}
}

// Close stops the tick loops and releases every backend, reporting all
// failures.
func (a *app) Close() error {
	if a.runtime != nil {
		a.runtime.Detach()
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
