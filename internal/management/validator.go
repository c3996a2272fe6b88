package management

import (
	"fmt"
	"regexp"

	"argus/internal/constants"
	"argus/pkg/cel"
)

var validSpamRuleKinds = map[string]bool{
	constants.RuleKindSubstring:  true,
	constants.RuleKindRegex:      true,
	constants.RuleKindExpression: true,
}

var validRoutingRuleKinds = map[string]bool{
	constants.RoutingKindTrigger: true,
	constants.RoutingKindTopic:   true,
	constants.RoutingKindDefault: true,
}

func ValidateSpamRule(req CreateSpamRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validSpamRuleKinds[req.Kind] {
		return fmt.Errorf("invalid kind: %s. Allowed: substring, regex, expression", req.Kind)
	}
	if req.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if req.Weight < 0 || req.Weight > 1 {
		return fmt.Errorf("weight must be in [0, 1]")
	}
	return validateSpamPattern(req.Kind, req.Pattern)
}

func ValidateUpdateSpamRule(req UpdateSpamRuleRequest) error {
	if req.Kind != nil && !validSpamRuleKinds[*req.Kind] {
		return fmt.Errorf("invalid kind: %s. Allowed: substring, regex, expression", *req.Kind)
	}
	if req.Pattern != nil && *req.Pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if req.Weight != nil && (*req.Weight < 0 || *req.Weight > 1) {
		return fmt.Errorf("weight must be in [0, 1]")
	}
	// Kind and pattern are validated together against the resulting rule in
	// the service, after the pointer fields are merged.
	return nil
}

// validateSpamPattern rejects patterns the pipeline's snapshot compiler
// would skip, so a broken rule fails at the API instead of silently
// vanishing from the rule set on the next reload.
func validateSpamPattern(kind, pattern string) error {
	switch kind {
	case constants.RuleKindRegex:
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	case constants.RuleKindExpression:
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("failed to create CEL evaluator: %w", err)
		}
		if err := evaluator.ValidateRuleExpression(pattern); err != nil {
			return fmt.Errorf("invalid CEL expression: %w", err)
		}
	}
	return nil
}

func ValidateRoutingRule(req CreateRoutingRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validRoutingRuleKinds[req.Kind] {
		return fmt.Errorf("invalid kind: %s. Allowed: trigger, topic, default", req.Kind)
	}
	if req.Partition == "" {
		return fmt.Errorf("partition is required")
	}

	switch req.Kind {
	case constants.RoutingKindTrigger:
		if len(nonEmptyTriggers(req.Triggers)) == 0 {
			return fmt.Errorf("trigger rules require at least one non-empty trigger")
		}
	case constants.RoutingKindTopic:
		if req.Topic == "" {
			return fmt.Errorf("topic rules require a topic")
		}
	}

	return nil
}

func ValidateUpdateRoutingRule(req UpdateRoutingRuleRequest) error {
	if req.Partition != nil && *req.Partition == "" {
		return fmt.Errorf("partition cannot be empty")
	}
	if req.Triggers != nil && len(nonEmptyTriggers(*req.Triggers)) == 0 {
		return fmt.Errorf("triggers cannot be updated to an empty set")
	}
	return nil
}

func nonEmptyTriggers(triggers []string) []string {
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
