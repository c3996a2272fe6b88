package ingest

import (
	"context"
	"fmt"
	"time"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
	"argus/pkg/retry"
	"argus/pkg/tracing"
)

// Enqueuer is the queue operation the relay needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, envelope models.MessageEnvelope) (string, error)
}

// Relay moves validated envelopes from the inbound Kafka topic onto the
// work queue. The seen-window drops exact identity redeliveries inside the
// TTL; it is an optimization, not a correctness requirement, since the
// store upsert is idempotent anyway.
type Relay struct {
	queue  Enqueuer
	seen   Repository
	cfg    config.IngestConfig
	logger logger.Logger
}

func NewRelay(queue Enqueuer, seen Repository, cfg config.IngestConfig, log logger.Logger) *Relay {
	return &Relay{
		queue:  queue,
		seen:   seen,
		cfg:    cfg,
		logger: log,
	}
}

// Handle is the broker handler for inbound messages. Malformed envelopes
// are rejected as fatal so the consumer's retry machinery does not spin on
// them; queue outages surface as retryable errors.
func (r *Relay) Handle(ctx context.Context, msg models.MessageEnvelope) error {
	ctx, span := tracing.GetTracer("pipeline-service").Start(ctx, "ingest.relay")
	defer span.End()

	if err := models.ValidateMessageEnvelope(&msg); err != nil {
		metrics.IncIngestMessage("invalid")
		return retry.NewFatalError(fmt.Errorf("invalid envelope: %w", err))
	}

	fresh, err := r.checkSeenWindow(ctx, msg)
	if err != nil {
		metrics.IncIngestMessage("error")
		return err
	}
	if !fresh {
		metrics.IncIngestMessage("duplicate")
		r.logger.DebugwCtx(ctx, "Dropping redelivery inside seen window",
			"identity", msg.Identity())
		return nil
	}

	start := time.Now()
	err = retry.Retry(ctx, retry.Policy{
		MaxAttempts:     r.cfg.EnqueueRetry.MaxAttempts,
		InitialInterval: r.cfg.EnqueueRetry.InitialInterval,
		MaxInterval:     r.cfg.EnqueueRetry.MaxInterval,
		Multiplier:      r.cfg.EnqueueRetry.Multiplier,
		MaxElapsedTime:  r.cfg.EnqueueRetry.MaxElapsedTime,
	}, func() error {
		_, enqueueErr := r.queue.Enqueue(ctx, msg)
		return enqueueErr
	})
	metrics.ObserveIngestEnqueueDuration(time.Since(start))

	if err != nil {
		metrics.IncIngestMessage("error")
		return fmt.Errorf("failed to enqueue message %s: %w", msg.Identity(), err)
	}

	metrics.IncIngestMessage("relayed")
	return nil
}

// checkSeenWindow returns true when the identity has not been relayed
// inside the TTL. Redis errors fall back per configuration: "allow" relays
// the message anyway, anything else fails it back to the consumer.
func (r *Relay) checkSeenWindow(ctx context.Context, msg models.MessageEnvelope) (bool, error) {
	if !r.cfg.SeenWindow.Enabled {
		return true, nil
	}

	ttl := r.cfg.SeenWindow.TTL
	if ttl <= 0 {
		ttl = constants.DefaultIngestSeenTTL
	}

	key := constants.IngestSeenKeyPrefix + msg.Identity()
	fresh, err := r.seen.SetNX(ctx, key, time.Now().Unix(), ttl)
	if err != nil {
		if r.cfg.SeenWindow.OnRedisError == constants.FallbackAllow {
			metrics.FallbackUsageTotal.WithLabelValues("ingest", "allow_on_error", err.Error()).Inc()
			r.logger.WarnwCtx(ctx, "Redis error during seen-window check, relaying anyway",
				"identity", msg.Identity(),
				"error", err)
			return true, nil
		}
		metrics.FallbackUsageTotal.WithLabelValues("ingest", "deny_on_error", err.Error()).Inc()
		return false, fmt.Errorf("seen-window check failed for %s: %w", msg.Identity(), err)
	}

	return fresh, nil
}
