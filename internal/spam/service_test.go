package spam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/models"
)

type fakeRepository struct {
	rules []Rule
	err   error
	calls int
}

func (f *fakeRepository) GetActiveRules(ctx context.Context) ([]Rule, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rules, nil
}

func newTestService(t *testing.T, rules []Rule, cfg config.SpamConfig) *Service {
	t.Helper()

	svc, err := NewService(&fakeRepository{rules: rules}, cfg, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background()))
	return svc
}

func envelope(text string) *models.MessageEnvelope {
	return &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		Text:      text,
		PostedAt:  time.Now().UTC(),
	}
}

func TestCheckDecisiveMatch(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "donation_keywords", Kind: constants.RuleKindSubstring, Pattern: "донат", Weight: 0.9, Priority: 1, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("Підтримайте нас! Донат на картку"))
	require.NoError(t, err)

	assert.True(t, verdict.IsSpam)
	assert.InDelta(t, 0.9, verdict.Confidence, 1e-9)
	assert.Equal(t, []string{"donation_keywords"}, verdict.MatchedRules)
}

func TestCheckFirstDecisiveRuleWins(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "first", Kind: constants.RuleKindSubstring, Pattern: "spam", Weight: 0.9, Priority: 1, Enabled: true},
		{ID: "r2", Name: "second", Kind: constants.RuleKindSubstring, Pattern: "spam", Weight: 0.99, Priority: 2, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("pure spam text"))
	require.NoError(t, err)

	assert.True(t, verdict.IsSpam)
	assert.InDelta(t, 0.9, verdict.Confidence, 1e-9)
	assert.Equal(t, []string{"first"}, verdict.MatchedRules)
}

func TestCheckPartialMatchLowersConfidence(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "invite_link", Kind: constants.RuleKindSubstring, Pattern: "t.me/joinchat", Weight: 0.6, Priority: 1, Enabled: true},
		{ID: "r2", Name: "weak_signal", Kind: constants.RuleKindSubstring, Pattern: "click here", Weight: 0.3, Priority: 2, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("Join us: t.me/joinchat/xyz and click here"))
	require.NoError(t, err)

	assert.False(t, verdict.IsSpam)
	assert.InDelta(t, 0.4, verdict.Confidence, 1e-9)
	assert.Equal(t, []string{"invite_link", "weak_signal"}, verdict.MatchedRules)
}

func TestCheckNoMatchFullConfidence(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "donation_keywords", Kind: constants.RuleKindSubstring, Pattern: "донат", Weight: 0.9, Priority: 1, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("HIMARS delivered to front line"))
	require.NoError(t, err)

	assert.False(t, verdict.IsSpam)
	assert.InDelta(t, 1.0, verdict.Confidence, 1e-9)
	assert.Empty(t, verdict.MatchedRules)
}

func TestCheckSubstringIsCaseInsensitive(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "support_us", Kind: constants.RuleKindSubstring, Pattern: "Support Us", Weight: 0.9, Priority: 1, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("SUPPORT US with crypto"))
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
}

func TestCheckRegexRule(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "card_number", Kind: constants.RuleKindRegex, Pattern: `\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`, Weight: 0.95, Priority: 1, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("Send to 4149 6293 1234 5678 please"))
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
	assert.InDelta(t, 0.95, verdict.Confidence, 1e-9)

	verdict, err = svc.Check(context.Background(), envelope("Unit 4149 moved out"))
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
}

func TestCheckExpressionRule(t *testing.T) {
	rules := []Rule{
		{
			ID:       "r1",
			Name:     "forwarded_heavily",
			Kind:     constants.RuleKindExpression,
			Pattern:  `"forward_count" in metadata && int(metadata["forward_count"]) > 1000`,
			Weight:   0.9,
			Priority: 1,
			Enabled:  true,
		},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	msg := envelope("shared everywhere")
	msg.RawMetadata = map[string]interface{}{"forward_count": int64(5000)}

	verdict, err := svc.Check(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)

	msg.RawMetadata = map[string]interface{}{"forward_count": int64(3)}
	verdict, err = svc.Check(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
}

func TestCheckDeterministicAcrossCalls(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "a", Kind: constants.RuleKindSubstring, Pattern: "alpha", Weight: 0.5, Priority: 1, Enabled: true},
		{ID: "r2", Name: "b", Kind: constants.RuleKindSubstring, Pattern: "beta", Weight: 0.9, Priority: 2, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	first, err := svc.Check(context.Background(), envelope("alpha beta"))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		verdict, err := svc.Check(context.Background(), envelope("alpha beta"))
		require.NoError(t, err)
		assert.Equal(t, first, verdict)
	}
}

func TestCheckUncompilableRuleSkipped(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Name: "broken", Kind: constants.RuleKindRegex, Pattern: "([", Weight: 0.9, Priority: 1, Enabled: true},
		{ID: "r2", Name: "working", Kind: constants.RuleKindSubstring, Pattern: "donate", Weight: 0.9, Priority: 2, Enabled: true},
	}
	svc := newTestService(t, rules, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("please donate now"))
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
	assert.Equal(t, []string{"working"}, verdict.MatchedRules)
}

func TestCheckEvaluationErrorFallbacks(t *testing.T) {
	// int("") fails at runtime, after compiling fine.
	failing := Rule{
		ID:       "r1",
		Name:     "runtime_failure",
		Kind:     constants.RuleKindExpression,
		Pattern:  `int(metadata["missing"]) > 0`,
		Weight:   0.9,
		Priority: 1,
		Enabled:  true,
	}

	t.Run("error fallback fails the check", func(t *testing.T) {
		svc := newTestService(t, []Rule{failing}, config.SpamConfig{Threshold: 0.85})

		_, err := svc.Check(context.Background(), envelope("anything"))
		require.Error(t, err)
	})

	t.Run("allow fallback skips the rule", func(t *testing.T) {
		svc := newTestService(t, []Rule{failing}, config.SpamConfig{
			Threshold: 0.85,
			Fallback:  config.FallbackConfig{OnError: constants.FallbackAllow},
		})

		verdict, err := svc.Check(context.Background(), envelope("anything"))
		require.NoError(t, err)
		assert.False(t, verdict.IsSpam)
		assert.InDelta(t, 1.0, verdict.Confidence, 1e-9)
	})

	t.Run("deny fallback treats the rule as matched", func(t *testing.T) {
		svc := newTestService(t, []Rule{failing}, config.SpamConfig{
			Threshold: 0.85,
			Fallback:  config.FallbackConfig{OnError: constants.FallbackDeny},
		})

		verdict, err := svc.Check(context.Background(), envelope("anything"))
		require.NoError(t, err)
		assert.True(t, verdict.IsSpam)
	})
}

func TestReloadRulesSwapsSnapshot(t *testing.T) {
	repo := &fakeRepository{rules: []Rule{
		{ID: "r1", Name: "old", Kind: constants.RuleKindSubstring, Pattern: "old", Weight: 0.9, Priority: 1, Enabled: true},
	}}

	svc, err := NewService(repo, config.SpamConfig{Threshold: 0.85}, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background()))

	verdict, err := svc.Check(context.Background(), envelope("old pattern"))
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)

	repo.rules = []Rule{
		{ID: "r2", Name: "new", Kind: constants.RuleKindSubstring, Pattern: "new", Weight: 0.9, Priority: 1, Enabled: true},
	}
	require.NoError(t, svc.ReloadRules(context.Background()))

	verdict, err = svc.Check(context.Background(), envelope("old pattern"))
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)

	verdict, err = svc.Check(context.Background(), envelope("new pattern"))
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
}

func TestReloadRulesRepositoryError(t *testing.T) {
	repo := &fakeRepository{err: errors.New("connection refused")}

	svc, err := NewService(repo, config.SpamConfig{Threshold: 0.85}, logger.NopLogger())
	require.NoError(t, err)

	err = svc.ReloadRules(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load spam rules")
}

func TestCheckEmptyRuleSet(t *testing.T) {
	svc := newTestService(t, nil, config.SpamConfig{Threshold: 0.85})

	verdict, err := svc.Check(context.Background(), envelope("anything at all"))
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
	assert.InDelta(t, 1.0, verdict.Confidence, 1e-9)
}
