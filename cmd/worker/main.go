package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/jwalitptl/cupping-console/internal/app"
	"github.com/jwalitptl/cupping-console/internal/config"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

const healthPort = 8081

// The worker only makes sense against shared infrastructure: postgres for
// the outbox and Redis for the feed.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Logger = *appLogger.Zerolog()
	workerLogger := appLogger.WithFields(map[string]interface{}{"worker_id": workerID()})

	if cfg.Database.Driver != "postgres" || !cfg.Redis.Enabled {
		log.Fatal().Msg("outbox worker requires database.driver=postgres and redis.enabled=true")
	}

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build breaker logger")
	}
	defer zl.Sync()

	store, err := app.NewStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	broker, err := app.NewBroker(cfg.Redis, appLogger, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	reg := prometheus.NewRegistry()
	processor := app.NewOutboxProcessor(cfg, store, broker, workerLogger, metrics.NewMetrics("outbox_processor", reg))

	setupHealthCheck(store, reg, workerLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		workerLogger.Info("Shutting down...")
		cancel()
	}()

	processor.Start(ctx)
}

func setupHealthCheck(store repository.Store, reg *prometheus.Registry, logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", healthPort), mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
}
