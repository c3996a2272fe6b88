package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/constants"
	"argus/pkg/errors"
	"argus/pkg/metrics"
)

// StartRequeuer moves due retry-set members back onto the stream. It runs
// until the context is canceled. Several replicas may run requeuers against
// the same set; the worst a race produces is a duplicate delivery.
func (q *Queue) StartRequeuer(ctx context.Context) error {
	interval := q.cfg.RequeueInterval
	if interval <= 0 {
		interval = constants.DefaultRequeueInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	q.logger.Infow("Requeuer started",
		"interval", interval,
		"retry_key", q.retryKey,
	)

	for {
		select {
		case <-ctx.Done():
			q.logger.Infow("Requeuer stopped", "reason", "context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := q.requeueDue(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				q.logger.Errorw("Requeue pass failed", "error", err)
			}
		}
	}
}

// requeueDue re-enqueues members whose backoff deadline has passed. The
// stream append happens before the set removal: a crash in between yields
// a duplicate delivery, never a lost one.
func (q *Queue) requeueDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	members, err := q.client.ZRangeByScore(ctx, q.retryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: requeueBatchSize,
	}).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	for _, member := range members {
		err := q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.cfg.Stream,
			Values: map[string]interface{}{envelopeStreamField: member},
		}).Err()
		if err != nil {
			return errors.Wrap(err, errors.ErrQueueUnavailable)
		}

		if err := q.client.ZRem(ctx, q.retryKey, member).Err(); err != nil {
			return errors.Wrap(err, errors.ErrQueueUnavailable)
		}

		metrics.IncQueueOperation("requeue", "ok")
	}

	size, err := q.client.ZCard(ctx, q.retryKey).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}
	metrics.SetQueueRetrySetSize(size)

	return nil
}

const requeueBatchSize = 100
