package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/pkg/errors"
	"argus/pkg/models"
)

const (
	attemptKeyPrefix = "argus:attempts:"

	// Attempt records outlive the longest plausible retry cycle; the TTL
	// only reaps records for envelopes that vanished mid-flight.
	attemptRecordTTL = 24 * time.Hour
)

// attemptStore keeps per-envelope failure accounting in Redis. Delivery
// tokens change on every redelivery but envelope identity does not, so
// identity keys the record across the envelope's whole retry cycle.
//
// Each identity owns a hash (count, last_error, first_claimed_at) and a
// list of attempt records. The list gives atomic appends, so concurrent
// nacks from a duplicate delivery cannot drop history entries.
type attemptStore struct {
	client *redis.Client
}

func newAttemptStore(client *redis.Client) *attemptStore {
	return &attemptStore{client: client}
}

func (s *attemptStore) key(identity string) string {
	return attemptKeyPrefix + identity
}

func (s *attemptStore) historyKey(identity string) string {
	return attemptKeyPrefix + identity + ":history"
}

// markClaimed stamps the first claim time once per retry cycle.
func (s *attemptStore) markClaimed(ctx context.Context, identity string) error {
	key := s.key(identity)

	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, key, "first_claimed_at", time.Now().UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, key, attemptRecordTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	return nil
}

// recordFailure increments the failure count, appends an attempt record,
// and returns the full accounting state after this failure.
func (s *attemptStore) recordFailure(ctx context.Context, identity string, procErr error) (models.ProcessingAttempt, error) {
	key := s.key(identity)
	historyKey := s.historyKey(identity)

	count, err := s.client.HIncrBy(ctx, key, "count", 1).Result()
	if err != nil {
		return models.ProcessingAttempt{}, errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	record := models.AttemptRecord{
		AttemptNumber: int(count),
		Error:         procErr.Error(),
		Timestamp:     time.Now().UTC(),
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return models.ProcessingAttempt{}, fmt.Errorf("failed to marshal attempt record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "last_error", procErr.Error())
	pipe.RPush(ctx, historyKey, recordJSON)
	pipe.Expire(ctx, key, attemptRecordTTL)
	pipe.Expire(ctx, historyKey, attemptRecordTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.ProcessingAttempt{}, errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	history, err := s.loadHistory(ctx, historyKey)
	if err != nil {
		return models.ProcessingAttempt{}, err
	}

	attempt := models.ProcessingAttempt{
		AttemptCount: int(count),
		LastError:    procErr.Error(),
		History:      history,
	}

	if raw, err := s.client.HGet(ctx, key, "first_claimed_at").Result(); err == nil {
		if ts, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			attempt.FirstClaimedAt = ts
		}
	}

	return attempt, nil
}

func (s *attemptStore) loadHistory(ctx context.Context, historyKey string) ([]models.AttemptRecord, error) {
	raw, err := s.client.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrQueueUnavailable)
	}

	history := make([]models.AttemptRecord, 0, len(raw))
	for _, item := range raw {
		var record models.AttemptRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempt record: %w", err)
		}
		history = append(history, record)
	}

	return history, nil
}

// clear removes all accounting for the identity. Called on ack and after
// dead-letter promotion.
func (s *attemptStore) clear(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, s.key(identity), s.historyKey(identity)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrQueueUnavailable)
	}
	return nil
}
