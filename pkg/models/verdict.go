package models

// SpamVerdict is produced exactly once per envelope and never revised.
// Confidence is the matched rule weight when IsSpam is true, otherwise
// 1.0 minus the strongest partial match weight.
type SpamVerdict struct {
	IsSpam       bool     `json:"is_spam" bson:"is_spam"`
	Confidence   float64  `json:"confidence" bson:"confidence"`
	MatchedRules []string `json:"matched_rules,omitempty" bson:"matched_rules,omitempty"`
}
