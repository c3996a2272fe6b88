package spam

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/cel"
	"argus/pkg/models"
)

// compiledRule carries a rule's identity plus a ready-to-run matcher.
// Substring and regex matchers never fail; expression matchers can.
type compiledRule struct {
	ID     string
	Name   string
	Weight float64
	match  func(ctx context.Context, msg *models.MessageEnvelope) (bool, error)
}

// snapshot is an immutable compiled rule set. The service swaps the whole
// snapshot on reload; checks in flight keep the one they started with.
type snapshot struct {
	version int64
	rules   []compiledRule
}

// compileSnapshot turns rule rows into matchers, preserving their order.
// Rules that fail to compile are skipped and reported; one bad pattern
// must not block the rest of the reload.
func compileSnapshot(version int64, rules []Rule, evaluator *cel.Evaluator, log logger.Logger) *snapshot {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		match, err := buildMatcher(rule, evaluator)
		if err != nil {
			log.Errorw("Skipping uncompilable spam rule",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"kind", rule.Kind,
				"error", err,
			)
			continue
		}
		compiled = append(compiled, compiledRule{
			ID:     rule.ID,
			Name:   rule.Name,
			Weight: rule.Weight,
			match:  match,
		})
	}

	return &snapshot{version: version, rules: compiled}
}

func buildMatcher(rule Rule, evaluator *cel.Evaluator) (func(context.Context, *models.MessageEnvelope) (bool, error), error) {
	switch rule.Kind {
	case constants.RuleKindSubstring:
		needle := strings.ToLower(rule.Pattern)
		if needle == "" {
			return nil, fmt.Errorf("substring rule has empty pattern")
		}
		return func(_ context.Context, msg *models.MessageEnvelope) (bool, error) {
			return strings.Contains(strings.ToLower(msg.Text), needle), nil
		}, nil

	case constants.RuleKindRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		return func(_ context.Context, msg *models.MessageEnvelope) (bool, error) {
			return re.MatchString(msg.Text), nil
		}, nil

	case constants.RuleKindExpression:
		program, err := evaluator.CompileExpression(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid expression: %w", err)
		}
		return func(ctx context.Context, msg *models.MessageEnvelope) (bool, error) {
			return evaluator.EvaluateProgram(ctx, program, msg)
		}, nil

	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}
