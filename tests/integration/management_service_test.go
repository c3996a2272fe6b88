package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/management"
	"argus/internal/queue"
	"argus/internal/store"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

func newManagementService(t *testing.T, infra *TestInfra, opts ...management.ServiceOption) management.Service {
	t.Helper()

	repo := management.NewRepository(infra.PostgresDB)
	versioningRepo := management.NewVersioningRepository(infra.PostgresDB)

	allOpts := append([]management.ServiceOption{management.WithVersioning(versioningRepo)}, opts...)
	return management.NewService(repo, allOpts...)
}

func TestManagementService_SpamRuleLifecycle(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	created, err := svc.CreateSpamRule(ctx, createSpamRuleRequest("svc_lifecycle", "substring", "donate", 0.9, 10))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)
	assert.Equal(t, 1, created.Version)

	newWeight := 0.75
	updated, err := svc.UpdateSpamRule(ctx, created.ID, management.UpdateSpamRuleRequest{Weight: &newWeight})
	require.NoError(t, err)
	assert.Equal(t, 0.75, updated.Weight)
	assert.Equal(t, "donate", updated.Pattern)
	assert.Equal(t, 2, updated.Version)

	versions, err := svc.GetRuleVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)

	logs, err := svc.GetAuditLogs(ctx, &created.ID, management.RuleTypeSpam, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionUpdate, logs[0].Action)
	assert.Equal(t, models.ActionCreate, logs[1].Action)

	require.NoError(t, svc.DeleteSpamRule(ctx, created.ID))

	logs, err = svc.GetAuditLogs(ctx, &created.ID, management.RuleTypeSpam, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionDelete, logs[0].Action)
}

func TestManagementService_CreateSpamRule_RejectsBadPattern(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	_, err := svc.CreateSpamRule(ctx, createSpamRuleRequest("bad_regex", "regex", "[unclosed", 0.9, 10))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = svc.CreateSpamRule(ctx, createSpamRuleRequest("bad_weight", "substring", "donate", 1.5, 10))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestManagementService_UpdateSpamRule_RejectsIncompatibleMerge(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	created, err := svc.CreateSpamRule(ctx, createSpamRuleRequest("merge_rule", "substring", "[not-a-regex", 0.9, 10))
	require.NoError(t, err)

	// Switching kind to regex without fixing the pattern must fail, since
	// the stored pattern no longer compiles under the new kind.
	kind := "regex"
	_, err = svc.UpdateSpamRule(ctx, created.ID, management.UpdateSpamRuleRequest{Kind: &kind})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestManagementService_RoutingRuleValidation(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	_, err := svc.CreateRoutingRule(ctx, createRoutingRuleRequest("no_triggers", "trigger", 5, nil, "", "messages_combat"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = svc.CreateRoutingRule(ctx, createRoutingRuleRequest("no_topic", "topic", 5, nil, "", "messages_combat"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	created, err := svc.CreateRoutingRule(ctx, createRoutingRuleRequest("naval", "trigger", 5, []string{"frigate"}, "", "messages_combat"))
	require.NoError(t, err)

	// Stripping the last trigger from a trigger rule must fail.
	empty := []string{" "}
	_, err = svc.UpdateRoutingRule(ctx, created.ID, management.UpdateRoutingRuleRequest{Triggers: &empty})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestManagementService_GetSpamRule_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)

	_, err := svc.GetSpamRule(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestManagementService_DeadLetterReplay(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	deadLetterRepo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	q := queue.New(infra.RedisClient, createTestQueueConfig(), deadLetterRepo, createTestLogger())
	require.NoError(t, q.EnsureGroup(ctx))

	svc := newManagementService(t, infra, management.WithDeadLetters(deadLetterRepo, q))

	envelope := createTestEnvelope("ch1", 42, "stuck message")
	entry := models.DeadLetterEntry{
		ID:       envelope.Identity(),
		Envelope: envelope,
		AttemptHistory: []models.AttemptRecord{
			{AttemptNumber: 1, Error: "STORE_UNAVAILABLE", Timestamp: time.Now().UTC()},
		},
		PromotedAt: time.Now().UTC(),
		Status:     models.DeadLetterStatusPending,
	}
	require.NoError(t, deadLetterRepo.Insert(ctx, entry))

	replayed, err := svc.ReplayDeadLetter(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusReplayed, replayed.Status)

	// The envelope is back on the stream.
	deliveries, err := q.Claim(ctx, "test-worker", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, envelope.Identity(), deliveries[0].Envelope.Identity())

	// A second replay conflicts: the entry is already resolved.
	_, err = svc.ReplayDeadLetter(ctx, entry.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

type failingEnqueuer struct {
	fail  bool
	inner management.Enqueuer
}

func (e *failingEnqueuer) Enqueue(ctx context.Context, envelope models.MessageEnvelope) (string, error) {
	if e.fail {
		return "", pkgerrors.ErrQueueUnavailable
	}
	return e.inner.Enqueue(ctx, envelope)
}

func TestManagementService_DeadLetterReplay_EnqueueFailureKeepsEntryPending(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	deadLetterRepo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	q := queue.New(infra.RedisClient, createTestQueueConfig(), deadLetterRepo, createTestLogger())
	require.NoError(t, q.EnsureGroup(ctx))

	enqueuer := &failingEnqueuer{fail: true, inner: q}
	svc := newManagementService(t, infra, management.WithDeadLetters(deadLetterRepo, enqueuer))

	envelope := createTestEnvelope("ch1", 43, "stuck behind a queue outage")
	entry := models.DeadLetterEntry{
		ID:         envelope.Identity(),
		Envelope:   envelope,
		PromotedAt: time.Now().UTC(),
		Status:     models.DeadLetterStatusPending,
	}
	require.NoError(t, deadLetterRepo.Insert(ctx, entry))

	_, err := svc.ReplayDeadLetter(ctx, entry.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsQueueUnavailable(err))

	// A failed enqueue must not consume the write-once resolution: the
	// entry stays pending and the replay can be retried.
	stored, err := svc.GetDeadLetter(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedAt)

	enqueuer.fail = false
	replayed, err := svc.ReplayDeadLetter(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusReplayed, replayed.Status)

	deliveries, err := q.Claim(ctx, "test-worker", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, envelope.Identity(), deliveries[0].Envelope.Identity())
}

func TestManagementService_DeadLetterDiscard(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	deadLetterRepo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	q := queue.New(infra.RedisClient, createTestQueueConfig(), deadLetterRepo, createTestLogger())

	svc := newManagementService(t, infra, management.WithDeadLetters(deadLetterRepo, q))

	envelope := createTestEnvelope("ch1", 7, "poison message")
	entry := models.DeadLetterEntry{
		ID:         envelope.Identity(),
		Envelope:   envelope,
		PromotedAt: time.Now().UTC(),
		Status:     models.DeadLetterStatusPending,
	}
	require.NoError(t, deadLetterRepo.Insert(ctx, entry))

	discarded, err := svc.DiscardDeadLetter(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusDiscarded, discarded.Status)

	stored, err := svc.GetDeadLetter(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusDiscarded, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)

	// Discarded entries cannot be replayed afterwards.
	_, err = svc.ReplayDeadLetter(ctx, entry.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}
