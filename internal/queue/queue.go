package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/config"
	"argus/internal/logger"
	"argus/pkg/errors"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Delivery pairs a claim token with the envelope it covers. The token
// identifies one delivery attempt; a redelivered envelope carries a new
// token.
type Delivery struct {
	Token    string
	Envelope models.MessageEnvelope
}

// DeadLetterSink receives envelopes that exhausted their attempt bound.
// Implementations must treat an already-present envelope identity as
// success so promotion stays idempotent under duplicate nacks.
type DeadLetterSink interface {
	Insert(ctx context.Context, entry models.DeadLetterEntry) error
}

// Queue is a Redis Streams work queue with consumer-group claims, delayed
// redelivery on nack, and dead-letter promotion once an envelope fails
// more than MaxAttempts times.
type Queue struct {
	client   *redis.Client
	cfg      config.QueueConfig
	retryKey string
	sink     DeadLetterSink
	attempts *attemptStore
	logger   logger.Logger
}

func New(client *redis.Client, cfg config.QueueConfig, sink DeadLetterSink, log logger.Logger) *Queue {
	return &Queue{
		client:   client,
		cfg:      cfg,
		retryKey: cfg.Stream + ":retry",
		sink:     sink,
		attempts: newAttemptStore(client),
		logger:   log,
	}
}

// EnsureGroup creates the stream and its consumer group if either is
// missing. Safe to call on every startup.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}
	return nil
}

// Enqueue appends the envelope to the stream and returns its position.
func (q *Queue) Enqueue(ctx context.Context, envelope models.MessageEnvelope) (string, error) {
	payload, err := encodeEnvelope(envelope)
	if err != nil {
		metrics.IncQueueOperation("enqueue", "error")
		return "", fmt.Errorf("failed to encode envelope %s: %w", envelope.Identity(), err)
	}

	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]interface{}{envelopeStreamField: payload},
	}).Result()
	if err != nil {
		metrics.IncQueueOperation("enqueue", "error")
		return "", errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	metrics.IncQueueOperation("enqueue", "ok")
	return id, nil
}

// Claim returns up to maxBatch deliveries for workerID. It first adopts
// entries whose previous claimant went quiet past the claim timeout, then
// blocks up to the block interval for new entries. An empty batch after
// the block interval is a normal outcome, not an error.
func (q *Queue) Claim(ctx context.Context, workerID string, maxBatch int, block time.Duration) ([]Delivery, error) {
	start := time.Now()

	deliveries, err := q.reclaimStale(ctx, workerID, maxBatch)
	if err != nil {
		metrics.ObserveQueueClaimDuration(time.Since(start), "error")
		return nil, err
	}

	if len(deliveries) < maxBatch {
		fresh, err := q.readNew(ctx, workerID, maxBatch-len(deliveries), block)
		if err != nil {
			metrics.ObserveQueueClaimDuration(time.Since(start), "error")
			return nil, err
		}
		deliveries = append(deliveries, fresh...)
	}

	outcome := "empty"
	if len(deliveries) > 0 {
		outcome = "claimed"
		metrics.ObserveClaimedBatchSize(len(deliveries))
	}
	metrics.ObserveQueueClaimDuration(time.Since(start), outcome)

	for i := range deliveries {
		if err := q.attempts.markClaimed(ctx, deliveries[i].Envelope.Identity()); err != nil {
			q.logger.WarnwCtx(ctx, "Failed to record first claim time",
				"error", err,
				"identity", deliveries[i].Envelope.Identity(),
			)
		}
	}

	return deliveries, nil
}

// reclaimStale adopts pending entries idle past the claim timeout. Their
// previous claimant crashed or stalled; the entries become this worker's.
func (q *Queue) reclaimStale(ctx context.Context, workerID string, count int) ([]Delivery, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.ConsumerGroup,
		Consumer: workerID,
		MinIdle:  q.cfg.ClaimTimeout,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	deliveries := q.decodeMessages(ctx, msgs)
	if len(deliveries) > 0 {
		metrics.QueueReclaimedTotal.Add(float64(len(deliveries)))
		q.logger.InfowCtx(ctx, "Reclaimed stale deliveries",
			"count", len(deliveries),
			"worker_id", workerID,
		)
	}

	return deliveries, nil
}

func (q *Queue) readNew(ctx context.Context, workerID string, count int, block time.Duration) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.ConsumerGroup,
		Consumer: workerID,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    int64(count),
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	var deliveries []Delivery
	for _, stream := range streams {
		deliveries = append(deliveries, q.decodeMessages(ctx, stream.Messages)...)
	}

	return deliveries, nil
}

// decodeMessages turns stream entries into deliveries. Undecodable entries
// are acknowledged away so they cannot wedge the pending list.
func (q *Queue) decodeMessages(ctx context.Context, msgs []redis.XMessage) []Delivery {
	deliveries := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		envelope, err := decodeEnvelope(msg.Values)
		if err != nil {
			q.logger.ErrorwCtx(ctx, "Dropping undecodable stream entry",
				"error", err,
				"entry_id", msg.ID,
			)
			_ = q.client.XAck(ctx, q.cfg.Stream, q.cfg.ConsumerGroup, msg.ID).Err()
			continue
		}
		deliveries = append(deliveries, Delivery{Token: msg.ID, Envelope: envelope})
	}
	return deliveries
}

// Ack removes the delivery from the pending set and clears its attempt
// record. Processing for this envelope is complete.
func (q *Queue) Ack(ctx context.Context, d Delivery) error {
	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.ConsumerGroup, d.Token).Err(); err != nil {
		metrics.IncQueueOperation("ack", "error")
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}
	metrics.IncQueueOperation("ack", "ok")

	if err := q.attempts.clear(ctx, d.Envelope.Identity()); err != nil {
		q.logger.WarnwCtx(ctx, "Failed to clear attempt record",
			"error", err,
			"identity", d.Envelope.Identity(),
		)
	}

	return nil
}

// Nack records the failure and either schedules a delayed redelivery or,
// once the envelope has failed more than MaxAttempts times, promotes it to
// the dead-letter sink. Either way the original delivery is acknowledged;
// a retried envelope returns as a fresh stream entry with a new token.
func (q *Queue) Nack(ctx context.Context, d Delivery, procErr error) error {
	attempt, err := q.attempts.recordFailure(ctx, d.Envelope.Identity(), procErr)
	if err != nil {
		metrics.IncQueueOperation("nack", "error")
		return err
	}

	if attempt.AttemptCount > q.cfg.MaxAttempts {
		return q.promote(ctx, d, attempt)
	}

	// Schedule before acking: a crash in between yields a duplicate
	// delivery, never a lost one.
	if err := q.scheduleRetry(ctx, d.Envelope); err != nil {
		metrics.IncQueueOperation("nack", "error")
		return err
	}

	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.ConsumerGroup, d.Token).Err(); err != nil {
		metrics.IncQueueOperation("nack", "error")
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	metrics.IncQueueOperation("nack", "requeued")
	q.logger.WarnwCtx(ctx, "Delivery nacked, retry scheduled",
		"identity", d.Envelope.Identity(),
		"attempt", attempt.AttemptCount,
		"max_attempts", q.cfg.MaxAttempts,
		"requeue_delay", q.cfg.RequeueDelay,
		"error", procErr,
	)

	return nil
}

func (q *Queue) promote(ctx context.Context, d Delivery, attempt models.ProcessingAttempt) error {
	entry := models.DeadLetterEntry{
		ID:             d.Envelope.Identity(),
		Envelope:       d.Envelope,
		AttemptHistory: attempt.History,
		PromotedAt:     time.Now().UTC(),
		Status:         models.DeadLetterStatusPending,
	}

	// Insert before acking, mirroring scheduleRetry. The sink absorbs
	// duplicate identities, so a crash after insert cannot double-promote.
	if err := q.sink.Insert(ctx, entry); err != nil {
		metrics.IncQueueOperation("nack", "error")
		return fmt.Errorf("failed to insert dead letter for %s: %w", d.Envelope.Identity(), err)
	}

	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.ConsumerGroup, d.Token).Err(); err != nil {
		metrics.IncQueueOperation("nack", "error")
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	if err := q.attempts.clear(ctx, d.Envelope.Identity()); err != nil {
		q.logger.WarnwCtx(ctx, "Failed to clear attempt record after promotion",
			"error", err,
			"identity", d.Envelope.Identity(),
		)
	}

	metrics.QueueDeadLettersTotal.Inc()
	metrics.IncQueueOperation("nack", "dead_letter")
	q.logger.ErrorwCtx(ctx, "Attempt bound exhausted, envelope promoted to dead letters",
		"identity", d.Envelope.Identity(),
		"attempts", len(attempt.History),
		"last_error", attempt.LastError,
	)

	return nil
}

func (q *Queue) scheduleRetry(ctx context.Context, envelope models.MessageEnvelope) error {
	payload, err := encodeEnvelope(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope %s for retry: %w", envelope.Identity(), err)
	}

	due := time.Now().Add(q.cfg.RequeueDelay).UnixMilli()
	err = q.client.ZAdd(ctx, q.retryKey, redis.Z{
		Score:  float64(due),
		Member: payload,
	}).Err()
	if err != nil {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	return nil
}
