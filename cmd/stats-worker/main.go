package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gen-art/marketplace-api/internal/adapter"
	"github.com/gen-art/marketplace-api/internal/config"
	"github.com/gen-art/marketplace-api/internal/logger"
	"github.com/gen-art/marketplace-api/internal/statsworker"
	"github.com/gen-art/marketplace-api/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadStatsWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "stats-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting stats worker")

	// Connect to database. The worker writes, so it always talks to the
	// primary and never registers a replica.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store. The worker never runs search-backed queries, so no
	// search client is wired.
	clock := adapter.NewClock()
	dataStore := store.NewPGStore(db, nil, clock)

	// Create the worker
	worker, err := statsworker.New(
		statsworker.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			ConsumerName:   cfg.NATS.ConsumerName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			AckWait:        cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
			PoolSize:       cfg.Worker.WorkerPoolSize,
			QueueSize:      cfg.Worker.WorkerQueueSize,
			SweepInterval:  cfg.Stats.SweepInterval,
			SweepBatchSize: cfg.Stats.SweepBatchSize,
		},
		adapter.NewNatsJetStream(),
		dataStore,
		adapter.NewJSON(),
		clock,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create stats worker", zap.Error(err))
	}
	defer worker.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := worker.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "stats-worker"))
		cancel()
	}

	logger.Info("Stats worker stopped")
}
