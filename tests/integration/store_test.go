package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/constants"
	"argus/internal/store"
	"argus/pkg/errors"
	"argus/pkg/models"
)

func TestMessageRepository_UpsertIsIdempotent(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewMessageRepository(infra.MongoDB, createTestLogger())
	ctx := context.Background()

	envelope := createTestEnvelope("ch1", 100, "HIMARS delivered to front line")
	msg := models.NewStoredMessage(&envelope)
	msg.Routing = models.RoutingDecision{
		TargetPartition: constants.PartitionEquipment,
		DecidedAt:       time.Now().UTC(),
	}
	msg.State = models.StateEnriched

	require.NoError(t, repo.Upsert(ctx, msg))

	// Redelivery overwrites rather than duplicating.
	msg.Text = "HIMARS delivered to front line (edited)"
	require.NoError(t, repo.Upsert(ctx, msg))

	found, err := repo.FindByIdentity(ctx, constants.PartitionEquipment, "ch1", 100)
	require.NoError(t, err)
	assert.Equal(t, "HIMARS delivered to front line (edited)", found.Text)
	assert.Equal(t, constants.PartitionEquipment, found.Routing.TargetPartition)

	count, err := infra.MongoDB.Collection(constants.PartitionEquipment).CountDocuments(ctx, map[string]interface{}{
		"source_id":  "ch1",
		"message_id": int64(100),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMessageRepository_EmptyPartitionFallsBackToGeneral(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewMessageRepository(infra.MongoDB, createTestLogger())
	ctx := context.Background()

	envelope := createTestEnvelope("ch2", 200, "nothing matched anywhere")
	msg := models.NewStoredMessage(&envelope)
	msg.State = models.StateEnriched

	require.NoError(t, repo.Upsert(ctx, msg))

	found, err := repo.FindByIdentity(ctx, constants.PartitionGeneral, "ch2", 200)
	require.NoError(t, err)
	assert.Equal(t, "nothing matched anywhere", found.Text)
}

func TestMessageRepository_FindByIdentityNotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewMessageRepository(infra.MongoDB, createTestLogger())

	_, err := repo.FindByIdentity(context.Background(), constants.PartitionCombat, "ch1", 999)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeadLetterRepository_InsertAbsorbsDuplicates(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	ctx := context.Background()

	envelope := createTestEnvelope("ch1", 300, "poison")
	entry := models.DeadLetterEntry{
		ID:       envelope.Identity(),
		Envelope: envelope,
		AttemptHistory: []models.AttemptRecord{
			{AttemptNumber: 1, Error: "boom", Timestamp: time.Now().UTC()},
		},
		PromotedAt: time.Now().UTC(),
		Status:     models.DeadLetterStatusPending,
	}

	require.NoError(t, repo.Insert(ctx, entry))

	// A second promotion of the same identity is a no-op, not an error.
	entry.AttemptHistory = append(entry.AttemptHistory, models.AttemptRecord{
		AttemptNumber: 2, Error: "boom again", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, repo.Insert(ctx, entry))

	got, err := repo.Get(ctx, envelope.Identity())
	require.NoError(t, err)
	assert.Len(t, got.AttemptHistory, 1)
	assert.Equal(t, models.DeadLetterStatusPending, got.Status)
}

func TestDeadLetterRepository_ListFiltersAndSorts(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := int64(1); i <= 3; i++ {
		envelope := createTestEnvelope("ch1", 400+i, "stale")
		require.NoError(t, repo.Insert(ctx, models.DeadLetterEntry{
			ID:         envelope.Identity(),
			Envelope:   envelope,
			PromotedAt: base.Add(time.Duration(i) * time.Second),
			Status:     models.DeadLetterStatusPending,
		}))
	}
	require.NoError(t, repo.MarkResolved(ctx, "ch1:402", models.DeadLetterStatusDiscarded))

	pending, err := repo.List(ctx, models.DeadLetterStatusPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Newest promotion first.
	assert.Equal(t, "ch1:403", pending[0].ID)
	assert.Equal(t, "ch1:401", pending[1].ID)

	all, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := repo.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ch1:402", page[0].ID)
}

func TestDeadLetterRepository_MarkResolvedIsWriteOnce(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := store.NewDeadLetterRepository(infra.MongoDB, createTestLogger())
	ctx := context.Background()

	envelope := createTestEnvelope("ch1", 500, "remediate me")
	require.NoError(t, repo.Insert(ctx, models.DeadLetterEntry{
		ID:         envelope.Identity(),
		Envelope:   envelope,
		PromotedAt: time.Now().UTC(),
		Status:     models.DeadLetterStatusPending,
	}))

	require.NoError(t, repo.MarkResolved(ctx, envelope.Identity(), models.DeadLetterStatusReplayed))

	got, err := repo.Get(ctx, envelope.Identity())
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterStatusReplayed, got.Status)
	require.NotNil(t, got.ResolvedAt)

	err = repo.MarkResolved(ctx, envelope.Identity(), models.DeadLetterStatusDiscarded)
	assert.True(t, errors.IsConflict(err))

	err = repo.MarkResolved(ctx, "ch1:9999", models.DeadLetterStatusReplayed)
	assert.True(t, errors.IsNotFound(err))
}
