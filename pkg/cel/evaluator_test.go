package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid text check",
			expr:      `text.contains("donate")`,
			wantError: false,
		},
		{
			name:      "valid metadata comparison",
			expr:      `has(metadata.views) && metadata.views > 100`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `payload.status == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRuleExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `text.contains("t.me/joinchat")`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `text.size()`,
			wantError: true,
		},
		{
			name:      "valid source check",
			expr:      `source_id == "promo_feed"`,
			wantError: false,
		},
		{
			name:      "valid combined signals",
			expr:      `text.contains("http") && has(metadata.views) && metadata.views == 0`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateRuleExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRuleExpressionExamples(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range RuleExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateRuleExpression(expr), "example expression should validate: %s", expr)
		})
	}
}

func TestEvaluateRule(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	msg := &models.MessageEnvelope{
		SourceID:  "ch_promo",
		MessageID: 42,
		Text:      "Support us! Donate at t.me/joinchat/abc",
		PostedAt:  time.Now(),
		RawMetadata: map[string]interface{}{
			"views":         int64(0),
			"forward_count": int64(75),
		},
	}

	tests := []struct {
		name      string
		expr      string
		want      bool
		wantError bool
	}{
		{
			name: "text contains true",
			expr: `text.contains("t.me/joinchat")`,
			want: true,
		},
		{
			name: "text contains false",
			expr: `text.contains("HIMARS")`,
			want: false,
		},
		{
			name: "metadata comparison true",
			expr: `has(metadata.forward_count) && metadata.forward_count > 50`,
			want: true,
		},
		{
			name: "metadata comparison false",
			expr: `has(metadata.views) && metadata.views > 0`,
			want: false,
		},
		{
			name: "source check",
			expr: `source_id == "ch_promo"`,
			want: true,
		},
		{
			name: "missing metadata field guarded by has",
			expr: `has(metadata.via_bot) && metadata.via_bot != ""`,
			want: false,
		},
		{
			name:      "non-bool output",
			expr:      `text.size()`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval.EvaluateRule(ctx, tt.expr, msg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}
		})
	}
}

func TestCompileAndEvaluateProgram(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileExpression(`text.contains("donate") && has(metadata.reply_count) && metadata.reply_count == 0`)
	require.NoError(t, err)

	ctx := context.Background()

	spam := &models.MessageEnvelope{
		SourceID:    "ch1",
		MessageID:   1,
		Text:        "Please donate to our fund",
		PostedAt:    time.Now(),
		RawMetadata: map[string]interface{}{"reply_count": int64(0)},
	}
	legit := &models.MessageEnvelope{
		SourceID:    "ch1",
		MessageID:   2,
		Text:        "Column of vehicles heading east",
		PostedAt:    time.Now(),
		RawMetadata: map[string]interface{}{"reply_count": int64(14)},
	}

	matched, err := eval.EvaluateProgram(ctx, program, spam)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = eval.EvaluateProgram(ctx, program, legit)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateProgramNilMetadata(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileExpression(`has(metadata.views) && metadata.views > 10`)
	require.NoError(t, err)

	msg := &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 3,
		Text:      "no metadata at all",
		PostedAt:  time.Now(),
	}

	matched, err := eval.EvaluateProgram(context.Background(), program, msg)
	require.NoError(t, err)
	assert.False(t, matched)
}
