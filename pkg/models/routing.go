package models

import "time"

// RoutingDecision is a pure function of (text, topics) and is recomputed
// fresh on every processing attempt.
type RoutingDecision struct {
	TargetPartition string    `json:"target_partition" bson:"target_partition"`
	MatchedTrigger  *string   `json:"matched_trigger,omitempty" bson:"matched_trigger,omitempty"`
	DecidedAt       time.Time `json:"decided_at" bson:"decided_at"`
}
