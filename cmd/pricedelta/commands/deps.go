package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/pricedelta/internal/batch"
	"github.com/wonny/pricedelta/internal/external/alphavantage"
	"github.com/wonny/pricedelta/internal/store"
	"github.com/wonny/pricedelta/pkg/config"
	"github.com/wonny/pricedelta/pkg/database"
	"github.com/wonny/pricedelta/pkg/httputil"
	"github.com/wonny/pricedelta/pkg/logger"
	"github.com/wonny/pricedelta/pkg/redis"
)

// deps holds everything a command needs, built once from config
type deps struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	alphaVantage *alphavantage.Client
	repo         *store.StockRepository
	orchestrator *batch.Orchestrator
}

// loadConfig loads config and builds the logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}

// newDeps wires config, database, cache, provider client, store and orchestrator
func newDeps(ctx context.Context) (*deps, error) {
	// 1. Load config
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Connect to Redis (no-op when disabled)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 3. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("Connected to database")

	// 4. Create provider client
	av := newAlphaVantageClient(cfg, log, rc)

	// 5. Create repository
	repo := store.NewStockRepository(db.Pool, redis.NewCache(rc, "pricedelta"), log)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		rc.Close()
		return nil, err
	}

	// 6. Create orchestrator
	orchestrator := batch.NewOrchestrator(av, repo, batch.Config{
		CommitTimeout: cfg.Batch.CommitTimeout,
	}, log)

	return &deps{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rc,
		alphaVantage: av,
		repo:         repo,
		orchestrator: orchestrator,
	}, nil
}

func newAlphaVantageClient(cfg *config.Config, log *logger.Logger, rc *redis.Client) *alphavantage.Client {
	httpClient := httputil.NewWithTimeout(log, 30*time.Second).
		WithRetry(2, 2*time.Second).
		WithRateLimiter(redis.NewRateLimiter(rc, "pricedelta"), redis.AlphaVantageRateLimit(cfg.AlphaVantage.RequestsPerMinute))

	return alphavantage.NewClient(alphavantage.Config{
		APIKey:            cfg.AlphaVantage.APIKey,
		BaseURL:           cfg.AlphaVantage.BaseURL,
		OutputSize:        cfg.AlphaVantage.OutputSize,
		RequestsPerMinute: cfg.AlphaVantage.RequestsPerMinute,
		Location:          cfg.Location(),
	}, httpClient, redis.NewCache(rc, "pricedelta"), log)
}

// Close releases connections
func (d *deps) Close() {
	d.db.Close()
	if err := d.redis.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close redis")
	}
}
