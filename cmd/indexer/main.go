package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/fairwaymarket/teesheet/internal/config"
	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/registry"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/internal/tokencache"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting teesheet indexer",
		"env", cfg.Env,
		"horizon_days", cfg.IndexerHorizonDays,
		"workers", cfg.IndexerWorkerCount,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	deps := provider.Deps{
		HTTPClient: &http.Client{Timeout: cfg.ProviderHTTPTimeout},
		Logger:     logger,
		TokenCache: tokencache.New(redisClient),
		TokenStore: tokens.NewPostgresStore(pool),
		ErrorLog:   errlog.NewRecorder(pool, logger),
		Metrics:    metrics.NewProviderMetrics(nil),
	}

	indexer := teetime.NewIndexer(teetime.NewPostgresStore(pool), logger, metrics.NewIndexerMetrics(nil))
	scheduler := teetime.NewScheduler(
		course.NewPostgresStore(pool),
		indexer,
		func(providerID string, rawCfg json.RawMessage) (teetime.AvailabilitySource, error) {
			return registry.New(providerID, rawCfg, deps)
		},
		cfg.IndexerHorizonDays,
		cfg.IndexerWorkerCount,
		cfg.IndexerMinInterval,
		logger,
	)

	scheduler.Start(ctx)
	logger.Info("indexer stopped")
}
