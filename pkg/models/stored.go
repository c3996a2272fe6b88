package models

import "time"

// Terminal states a StoredMessage can land in. Downstream consumers use
// these instead of inspecting nested records.
const (
	StateEnriched          = "enriched"
	StatePartiallyEnriched = "partially_enriched"
	StateSpam              = "spam"
)

// StoredMessage is the terminal entity written to a partition collection.
// It is upserted by envelope identity so redelivery overwrites instead of
// duplicating, and it is never deleted by the pipeline itself.
type StoredMessage struct {
	SourceID    string                 `json:"source_id" bson:"source_id"`
	MessageID   int64                  `json:"message_id" bson:"message_id"`
	Text        string                 `json:"text" bson:"text"`
	MediaRefs   []string               `json:"media_refs,omitempty" bson:"media_refs,omitempty"`
	PostedAt    time.Time              `json:"posted_at" bson:"posted_at"`
	RawMetadata map[string]interface{} `json:"raw_metadata,omitempty" bson:"raw_metadata,omitempty"`

	Verdict     SpamVerdict       `json:"verdict" bson:"verdict"`
	Enrichment  *EnrichmentRecord `json:"enrichment,omitempty" bson:"enrichment,omitempty"` // absent entirely for spam
	Routing     RoutingDecision   `json:"routing" bson:"routing"`
	MediaHashes []string          `json:"media_hashes,omitempty" bson:"media_hashes,omitempty"`

	State       string    `json:"state" bson:"state"`
	ProcessedAt time.Time `json:"processed_at" bson:"processed_at"`
}

// NewStoredMessage carries the envelope fields over; verdict, enrichment
// and routing are filled in by the worker as stages complete.
func NewStoredMessage(envelope *MessageEnvelope) *StoredMessage {
	return &StoredMessage{
		SourceID:    envelope.SourceID,
		MessageID:   envelope.MessageID,
		Text:        envelope.Text,
		MediaRefs:   envelope.MediaRefs,
		PostedAt:    envelope.PostedAt,
		RawMetadata: envelope.RawMetadata,
		ProcessedAt: time.Now().UTC(),
	}
}

// ResolveState derives the terminal state from verdict and enrichment.
func (m *StoredMessage) ResolveState() string {
	if m.Verdict.IsSpam {
		return StateSpam
	}
	if m.Enrichment != nil && m.Enrichment.Partial() {
		return StatePartiallyEnriched
	}
	return StateEnriched
}
