// Package statsworker keeps the derived market-stats rows fresh. It refreshes
// collections eagerly when the indexer publishes a market event, and runs a
// periodic full sweep as a safety net for events that were lost or that
// arrived before the worker did.
package statsworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/gen-art/marketplace-api/internal/adapter"
	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/logger"
	"github.com/gen-art/marketplace-api/internal/store"
)

// marketEventSubject matches every market event the indexer publishes
const marketEventSubject = "market.events.>"

// Config holds the configuration for the stats worker
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWait        time.Duration
	MaxDeliver     int

	PoolSize  int
	QueueSize int

	SweepInterval  time.Duration
	SweepBatchSize int
}

// Worker defines the interface for the stats worker
type Worker interface {
	// Run starts consuming market events and sweeping. Blocks until the
	// context is canceled.
	Run(ctx context.Context) error
	// Close closes the NATS connection
	Close()
}

type worker struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	store  store.Store
	json   adapter.JSON
	clock  adapter.Clock
	pool   pond.Pool
	config Config
}

// New connects to NATS and creates a stats worker
func New(
	cfg Config,
	natsJS adapter.NatsJetStream,
	st store.Store,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (Worker, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &worker{
		nc:     nc,
		js:     js,
		store:  st,
		json:   jsonAdapter,
		clock:  clock,
		config: cfg,
	}, nil
}

// Run starts the event consumer and the sweep loop
func (w *worker) Run(ctx context.Context) error {
	logger.InfoCtx(ctx, "Starting stats worker",
		zap.String("stream", w.config.StreamName),
		zap.String("consumer", w.config.ConsumerName),
		zap.Duration("sweep_interval", w.config.SweepInterval),
	)

	w.pool = pond.NewPool(
		w.config.PoolSize,
		pond.WithQueueSize(w.config.QueueSize),
		pond.WithContext(ctx),
	)
	defer w.pool.StopAndWait()

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       w.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       w.config.AckWait,
		MaxDeliver:    w.config.MaxDeliver,
		FilterSubject: marketEventSubject,
	}

	consumer, err := w.js.CreateOrUpdateConsumer(ctx, w.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.InfoCtx(ctx, "Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	sub, err := consumer.Consume(func(msg adapter.Message) {
		w.pool.Submit(func() {
			w.handleMessage(ctx, msg)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.InfoCtx(ctx, "Started consuming market events")

	// Sweep immediately on startup so a long downtime does not wait a full
	// interval to heal.
	for {
		if err := w.runSweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.ErrorCtx(ctx, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Shutting down stats worker")
			return nil
		case <-w.clock.After(w.config.SweepInterval):
		}
	}
}

// handleMessage refreshes the collection named by one market event
func (w *worker) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	var event domain.MarketEvent
	if err := w.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to unmarshal market event: %w", err))
		// Unparseable payloads will never succeed, drop them
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to terminate message: %w", err))
		}
		return
	}

	id, err := domain.ParseEntityID(event.CollectionID)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("collection_id", event.CollectionID))
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to terminate message: %w", err))
		}
		return
	}

	var deliveries uint64
	if metadata != nil {
		deliveries = metadata.NumDelivered
	}
	logger.DebugCtx(ctx, "Received market event",
		zap.String("collection_id", event.CollectionID),
		zap.String("type", string(event.Type)),
		zap.Uint64("delivery_count", deliveries),
	)

	if err := w.store.RefreshMarketStats(ctx, []domain.EntityID{id}); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("collection_id", event.CollectionID))
		// Redelivery will retry up to MaxDeliver times
		if err := msg.Nak(); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to nak message: %w", err))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to ack message: %w", err))
	}
}

// runSweep refreshes every collection's stats, one page at a time
func (w *worker) runSweep(ctx context.Context) error {
	startTime := w.clock.Now()
	logger.InfoCtx(ctx, "Starting stats sweep")

	var refreshed int
	for offset := 0; ; {
		ids, err := w.store.ListCollectionIDs(ctx, w.config.SweepBatchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		if err := w.refreshWithRetry(ctx, ids); err != nil {
			return fmt.Errorf("failed to refresh stats batch at offset %d: %w", offset, err)
		}
		refreshed += len(ids)

		// The store clamps pages to its own maximum, so stride by what
		// actually came back rather than by the configured batch size.
		offset += len(ids)
	}

	logger.InfoCtx(ctx, "Stats sweep completed",
		zap.Int("collections", refreshed),
		zap.Duration("duration", w.clock.Since(startTime)),
	)
	return nil
}

// refreshWithRetry retries one batch refresh with exponential backoff so a
// transient database hiccup does not abort the whole sweep
func (w *worker) refreshWithRetry(ctx context.Context, ids []domain.EntityID) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.MaxInterval = 1 * time.Minute
	b.MaxElapsedTime = 10 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	operation := func() error {
		return w.store.RefreshMarketStats(ctx, ids)
	}

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Stats refresh failed, retrying",
			zap.Error(err),
			zap.Duration("next_attempt_in", next),
			zap.Int("batch_size", len(ids)),
		)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}

// Close closes the NATS connection
func (w *worker) Close() {
	if w.nc == nil {
		return
	}

	w.nc.Close()
}
