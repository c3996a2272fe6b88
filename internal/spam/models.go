package spam

import "time"

// Rule is one spam detection rule. Kind selects how Pattern is
// interpreted: a case-insensitive substring, a regular expression, or a
// CEL expression over the envelope. Weight becomes the verdict confidence
// when the rule matches; rules at or above the service threshold are
// decisive, rules below it only depress the clean-verdict confidence.
type Rule struct {
	ID        string
	Name      string
	Kind      string
	Pattern   string
	Weight    float64
	Priority  int
	Enabled   bool
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
