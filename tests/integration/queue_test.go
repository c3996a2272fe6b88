package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/queue"
	"argus/pkg/models"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []models.DeadLetterEntry
}

func (s *recordingSink) Insert(ctx context.Context, entry models.DeadLetterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == entry.ID {
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) all() []models.DeadLetterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DeadLetterEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func newTestQueue(t *testing.T, infra *TestInfra) (*queue.Queue, *recordingSink) {
	t.Helper()

	sink := &recordingSink{}
	q := queue.New(infra.RedisClient, createTestQueueConfig(), sink, createTestLogger())
	require.NoError(t, q.EnsureGroup(context.Background()))
	return q, sink
}

func TestQueue_EnqueueClaimAck(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	q, _ := newTestQueue(t, infra)
	ctx := context.Background()

	envelope := createTestEnvelope("ch1", 1, "first message")
	id, err := q.Enqueue(ctx, envelope)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	deliveries, err := q.Claim(ctx, "worker-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, envelope.Identity(), deliveries[0].Envelope.Identity())
	assert.Equal(t, envelope.Text, deliveries[0].Envelope.Text)

	require.NoError(t, q.Ack(ctx, deliveries[0]))

	// Nothing left to claim.
	deliveries, err = q.Claim(ctx, "worker-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}

func TestQueue_NackRedeliversAfterDelay(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	q, _ := newTestQueue(t, infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.StartRequeuer(ctx)

	envelope := createTestEnvelope("ch1", 2, "flaky message")
	_, err := q.Enqueue(ctx, envelope)
	require.NoError(t, err)

	deliveries, err := q.Claim(ctx, "worker-1", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	require.NoError(t, q.Nack(ctx, deliveries[0], errors.New("transient failure")))

	// The envelope comes back as a fresh delivery once the delay elapses.
	var redelivered []queue.Delivery
	require.Eventually(t, func() bool {
		batch, claimErr := q.Claim(ctx, "worker-1", 1, 50*time.Millisecond)
		if claimErr != nil {
			return false
		}
		redelivered = append(redelivered, batch...)
		return len(redelivered) > 0
	}, 5*time.Second, 25*time.Millisecond)

	assert.Equal(t, envelope.Identity(), redelivered[0].Envelope.Identity())
	assert.NotEqual(t, deliveries[0].Token, redelivered[0].Token)
}

func TestQueue_ExhaustedAttemptsPromoteToDeadLetters(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	q, sink := newTestQueue(t, infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.StartRequeuer(ctx)

	envelope := createTestEnvelope("ch1", 3, "poison message")
	_, err := q.Enqueue(ctx, envelope)
	require.NoError(t, err)

	// MaxAttempts is 2: two nacks schedule retries, the third promotes.
	require.Eventually(t, func() bool {
		batch, claimErr := q.Claim(ctx, "worker-1", 1, 50*time.Millisecond)
		if claimErr != nil || len(batch) == 0 {
			return false
		}
		require.NoError(t, q.Nack(ctx, batch[0], errors.New("permanent failure")))
		return len(sink.all()) > 0
	}, 10*time.Second, 25*time.Millisecond)

	entries := sink.all()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, envelope.Identity(), entry.ID)
	assert.Equal(t, models.DeadLetterStatusPending, entry.Status)
	// MaxAttempts retries plus the final failure.
	assert.Len(t, entry.AttemptHistory, createTestQueueConfig().MaxAttempts+1)
	assert.Equal(t, 1, entry.AttemptHistory[0].AttemptNumber)
	assert.Equal(t, "permanent failure", entry.AttemptHistory[0].Error)

	// The identity is no longer in flight anywhere.
	batch, err := q.Claim(ctx, "worker-1", 10, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestQueue_AckClearsAttemptHistory(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	q, sink := newTestQueue(t, infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.StartRequeuer(ctx)

	envelope := createTestEnvelope("ch1", 4, "eventually fine")
	_, err := q.Enqueue(ctx, envelope)
	require.NoError(t, err)

	// Fail once, then succeed. The ack must reset the budget so a later
	// failure of the same identity starts from attempt one.
	deliveries, err := q.Claim(ctx, "worker-1", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.NoError(t, q.Nack(ctx, deliveries[0], errors.New("hiccup")))

	var redelivered []queue.Delivery
	require.Eventually(t, func() bool {
		batch, claimErr := q.Claim(ctx, "worker-1", 1, 50*time.Millisecond)
		if claimErr != nil {
			return false
		}
		redelivered = append(redelivered, batch...)
		return len(redelivered) > 0
	}, 5*time.Second, 25*time.Millisecond)
	require.NoError(t, q.Ack(ctx, redelivered[0]))

	_, err = q.Enqueue(ctx, envelope)
	require.NoError(t, err)

	deliveries, err = q.Claim(ctx, "worker-1", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.NoError(t, q.Nack(ctx, deliveries[0], errors.New("fresh failure")))

	assert.Empty(t, sink.all())
}
