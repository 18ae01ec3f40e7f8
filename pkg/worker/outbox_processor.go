package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/event"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/messaging"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Retention is how long processed rows are kept. Zero keeps them forever.
	Retention time.Duration
}

// OutboxProcessor publishes pending outbox rows to the change feed.
type OutboxProcessor struct {
	store   repository.UnitOfWork
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	store repository.UnitOfWork,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.Channel == "" {
		panic("Channel must be set")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
			if err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "Failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch publishes one batch of due events and returns how many were
// published. Rows are locked for the duration of the batch.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published := 0
	err := p.store.Do(ctx, func(tx repository.Tx) error {
		events, err := tx.Outbox().GetPendingEvents(ctx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

		for _, evt := range events {
			ok, err := p.processEvent(ctx, tx.Outbox(), evt)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

// processEvent reports whether evt was published. The error is only set when
// the outbox row itself could not be updated.
func (p *OutboxProcessor) processEvent(ctx context.Context, outbox repository.OutboxRepository, evt *model.OutboxEvent) (bool, error) {
	pubErr := p.broker.Publish(ctx, p.config.Channel, event.Notification(evt))
	if pubErr == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := outbox.MarkProcessed(ctx, evt.ID); err != nil {
			return false, fmt.Errorf("failed to mark event %s processed: %w", evt.ID, err)
		}
		return true, nil
	}

	attempt := evt.RetryCount + 1
	p.logger.Warn("Failed to publish event",
		"event_id", evt.ID.String(),
		"event_type", evt.EventType,
		"attempt", attempt,
		"error", pubErr.Error())

	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if err := outbox.MarkFailed(ctx, evt.ID, pubErr.Error()); err != nil {
			return false, fmt.Errorf("failed to mark event %s failed: %w", evt.ID, err)
		}
		return false, nil
	}

	p.metrics.OutboxRetries.WithLabelValues(evt.EventType).Inc()
	retryAt := p.now().Add(p.config.RetryDelay * time.Duration(attempt))
	if err := outbox.MarkRetry(ctx, evt.ID, pubErr.Error(), retryAt); err != nil {
		return false, fmt.Errorf("failed to schedule retry for event %s: %w", evt.ID, err)
	}
	return false, nil
}

// Cleanup deletes processed rows older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	return p.store.Do(ctx, func(tx repository.Tx) error {
		n, err := tx.Outbox().DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "error").Inc()
			return fmt.Errorf("failed to delete processed events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "success").Inc()
		if n > 0 {
			p.logger.Debug("Deleted processed outbox events", "count", n)
		}
		return nil
	})
}
