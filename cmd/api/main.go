package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fairwaymarket/teesheet/internal/api/router"
	"github.com/fairwaymarket/teesheet/internal/booking"
	appconfig "github.com/fairwaymarket/teesheet/internal/config"
	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/http/handlers"
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
	logger.Info("starting teesheet API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

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

	providerMetrics := metrics.NewProviderMetrics(nil)
	indexerMetrics := metrics.NewIndexerMetrics(nil)
	errorLog := errlog.NewRecorder(pool, logger)

	deps := provider.Deps{
		HTTPClient: &http.Client{Timeout: cfg.ProviderHTTPTimeout},
		Logger:     logger,
		TokenCache: tokencache.New(redisClient),
		TokenStore: tokens.NewPostgresStore(pool),
		ErrorLog:   errorLog,
		Metrics:    providerMetrics,
	}
	adapterFor := func(providerID string, rawCfg json.RawMessage) (provider.API, error) {
		return registry.New(providerID, rawCfg, deps)
	}

	courseStore := course.NewPostgresStore(pool)
	bookingStore := booking.NewPostgresStore(pool)
	teeTimeStore := teetime.NewPostgresStore(pool)

	orchestrator := booking.NewOrchestrator(bookingStore, logger)
	indexer := teetime.NewIndexer(teeTimeStore, logger, indexerMetrics)

	r := router.New(&router.Config{
		Logger:          logger,
		BookingsHandler: handlers.NewBookingsHandler(courseStore, bookingStore, orchestrator, adapterFor, logger),
		IndexHandler:    handlers.NewIndexHandler(courseStore, indexer, adapterFor, logger),
		MetricsHandler:  promhttp.Handler(),
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerSec: cfg.RateLimitPerSec,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
