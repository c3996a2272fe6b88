package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/routing"
	"argus/internal/spam"
)

func newSeededSpamService(t *testing.T, infra *TestInfra) *spam.Service {
	t.Helper()

	svc, err := spam.NewService(spam.NewRepository(infra.PostgresDB), config.SpamConfig{}, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background()))
	return svc
}

func newSeededRoutingService(t *testing.T, infra *TestInfra) *routing.Service {
	t.Helper()

	svc := routing.NewService(routing.NewRepository(infra.PostgresDB), config.RoutingConfig{}, createTestLogger())
	require.NoError(t, svc.ReloadRules(context.Background()))
	return svc
}

func TestSpamService_SeededRules(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newSeededSpamService(t, infra)
	ctx := context.Background()

	t.Run("card number is decisive spam", func(t *testing.T) {
		envelope := createTestEnvelope("ch1", 1, "send help to 4149 4991 1234 5678, every hryvnia counts")
		verdict, err := svc.Check(ctx, &envelope)
		require.NoError(t, err)
		assert.True(t, verdict.IsSpam)
		assert.InDelta(t, 0.95, verdict.Confidence, 0.001)
		assert.Contains(t, verdict.MatchedRules, "payment-card-numbers")
	})

	t.Run("donation phrasing in ukrainian", func(t *testing.T) {
		envelope := createTestEnvelope("ch1", 2, "Підтримайте наш збір, посилання в описі")
		verdict, err := svc.Check(ctx, &envelope)
		require.NoError(t, err)
		assert.True(t, verdict.IsSpam)
	})

	t.Run("emoji runs", func(t *testing.T) {
		envelope := createTestEnvelope("ch1", 3, "💰💰💰 guaranteed payout 💰💰💰")
		verdict, err := svc.Check(ctx, &envelope)
		require.NoError(t, err)
		assert.True(t, verdict.IsSpam)
	})

	t.Run("sub-threshold match stays clean", func(t *testing.T) {
		// invite-link-spam has weight 0.6, below the default threshold.
		envelope := createTestEnvelope("ch1", 4, "discussion moved to t.me/joinchat/abcdef")
		verdict, err := svc.Check(ctx, &envelope)
		require.NoError(t, err)
		assert.False(t, verdict.IsSpam)
		assert.InDelta(t, 0.4, verdict.Confidence, 0.001)
		assert.Contains(t, verdict.MatchedRules, "invite-link-spam")
	})

	t.Run("ordinary report is clean", func(t *testing.T) {
		envelope := createTestEnvelope("ch1", 5, "Air raid alert lifted in the region an hour ago")
		verdict, err := svc.Check(ctx, &envelope)
		require.NoError(t, err)
		assert.False(t, verdict.IsSpam)
		assert.InDelta(t, 1.0, verdict.Confidence, 0.001)
		assert.Empty(t, verdict.MatchedRules)
	})
}

func TestRoutingService_SeededRules(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newSeededRoutingService(t, infra)

	t.Run("trigger outranks topic fallback", func(t *testing.T) {
		decision := svc.Route("HIMARS delivered to front line", []string{"equipment"})
		assert.Equal(t, constants.PartitionEquipment, decision.TargetPartition)
		require.NotNil(t, decision.MatchedTrigger)
		assert.Equal(t, "HIMARS", *decision.MatchedTrigger)
	})

	t.Run("combat trigger wins by priority", func(t *testing.T) {
		// Both combat and equipment triggers are present; combat rules
		// carry the lower priority number.
		decision := svc.Route("missile strike damaged a Leopard tank", nil)
		assert.Equal(t, constants.PartitionCombat, decision.TargetPartition)
	})

	t.Run("cyrillic trigger", func(t *testing.T) {
		decision := svc.Route("повідомляють про обстріл околиць", nil)
		assert.Equal(t, constants.PartitionCombat, decision.TargetPartition)
	})

	t.Run("topic fallback when no trigger matches", func(t *testing.T) {
		decision := svc.Route("column spotted moving west", []string{"diplomatic"})
		assert.Equal(t, constants.PartitionDiplomatic, decision.TargetPartition)
		assert.Nil(t, decision.MatchedTrigger)
	})

	t.Run("default partition", func(t *testing.T) {
		decision := svc.Route("quiet night across the area", nil)
		assert.Equal(t, constants.PartitionGeneral, decision.TargetPartition)
		assert.Nil(t, decision.MatchedTrigger)
	})
}
