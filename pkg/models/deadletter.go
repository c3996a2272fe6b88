package models

import "time"

// Dead-letter entry lifecycle. Pending entries await operator remediation;
// replayed and discarded are set by the management API only.
const (
	DeadLetterStatusPending   = "pending"
	DeadLetterStatusReplayed  = "replayed"
	DeadLetterStatusDiscarded = "discarded"
)

// AttemptRecord is one failed processing attempt, in order of occurrence.
type AttemptRecord struct {
	AttemptNumber int       `json:"attempt_number" bson:"attempt_number"`
	Error         string    `json:"error" bson:"error"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// ProcessingAttempt is the retry bookkeeping owned by the queue, keyed by
// envelope identity. It is destroyed on ack or on dead-letter promotion.
type ProcessingAttempt struct {
	AttemptCount   int             `json:"attempt_count"`
	LastError      string          `json:"last_error,omitempty"`
	FirstClaimedAt time.Time       `json:"first_claimed_at"`
	History        []AttemptRecord `json:"history,omitempty"`
}

// DeadLetterEntry quarantines an envelope that exhausted its retry budget.
// Write-once: the pipeline never processes or reclaims it again.
type DeadLetterEntry struct {
	ID             string          `json:"id" bson:"_id"`
	Envelope       MessageEnvelope `json:"envelope" bson:"envelope"`
	AttemptHistory []AttemptRecord `json:"attempt_history" bson:"attempt_history"`
	PromotedAt     time.Time       `json:"promoted_at" bson:"promoted_at"`
	Status         string          `json:"status" bson:"status"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}
