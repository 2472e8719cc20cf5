package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobmate/matching-service/internal/config"
	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/embedding"
	"jobmate/matching-service/internal/enrichment"
	"jobmate/matching-service/internal/events"
	"jobmate/matching-service/internal/hydration"
	"jobmate/matching-service/internal/ingestion"
	"jobmate/matching-service/internal/kanban"
	"jobmate/matching-service/internal/logger"
	"jobmate/matching-service/internal/progress"
	"jobmate/matching-service/internal/provider"
	"jobmate/matching-service/internal/scoring"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *db.DB
	rdb       *redis.Client
	bus       *events.Bus
	bridge    *events.RedisBridge
	registry  *provider.Registry
	progress  *progress.Tracker
	ingestion *ingestion.Service
	hydration *hydration.Service
	kanban    *kanban.Service
}

func newApp(ctx context.Context) (*app, error) {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Info("migrating postgres schema")
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("postgres connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Info("redis connected")

	bus := events.NewBus(log)
	registry := provider.NewRegistry(cfg.Providers, log)
	tracker := progress.NewTracker(store, log)
	log.Info("providers enabled", zap.Strings("providers", registry.Names()))

	return &app{
		cfg:       cfg,
		log:       log,
		db:        store,
		rdb:       rdb,
		bus:       bus,
		bridge:    events.NewRedisBridge(rdb, bus, events.DefaultChannel, log),
		registry:  registry,
		progress:  tracker,
		ingestion: ingestion.NewService(store, registry, tracker, bus, log),
		hydration: hydration.NewService(store, registry, log),
		kanban:    kanban.NewService(store, log),
	}, nil
}

// enrichment builds the embedding, scoring and worker stack. Only the
// commands that embed need an embedding API key.
func (a *app) enrichment(ctx context.Context) (*scoring.Service, *enrichment.Worker, error) {
	embedder, err := embedding.NewEmbedder(ctx, a.cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding: %w", err)
	}
	emb := embedding.NewService(a.db, embedder, a.log)
	scorer := scoring.NewService(a.db, a.log)
	worker := enrichment.NewWorker(a.db, a.hydration, emb, scorer, a.cfg.EnrichmentQueueSize, a.log)
	return scorer, worker, nil
}

func (a *app) close() {
	_ = a.rdb.Close()
	a.db.Close()
	_ = a.log.Sync()
}
