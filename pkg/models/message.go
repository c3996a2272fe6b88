package models

import (
	"fmt"
	"time"
)

// MessageEnvelope is the immutable unit of work entering the pipeline.
// Identity is (SourceID, MessageID); every stage must tolerate redelivery
// of the same identity.
type MessageEnvelope struct {
	SourceID    string                 `json:"source_id" bson:"source_id"`
	MessageID   int64                  `json:"message_id" bson:"message_id"`
	Text        string                 `json:"text" bson:"text"`
	MediaRefs   []string               `json:"media_refs,omitempty" bson:"media_refs,omitempty"`
	PostedAt    time.Time              `json:"posted_at" bson:"posted_at"`
	RawMetadata map[string]interface{} `json:"raw_metadata,omitempty" bson:"raw_metadata,omitempty"`
	TraceID     string                 `json:"trace_id,omitempty" bson:"trace_id,omitempty"`
}

// Identity returns the canonical "source_id:message_id" key used for
// attempt bookkeeping, dedup windows and upsert filters.
func (m *MessageEnvelope) Identity() string {
	return fmt.Sprintf("%s:%d", m.SourceID, m.MessageID)
}

func (m *MessageEnvelope) GetMetadataField(name string) (interface{}, bool) {
	if m.RawMetadata == nil {
		return nil, false
	}

	value, ok := m.RawMetadata[name]
	return value, ok
}

func (m *MessageEnvelope) SetMetadataField(name string, value interface{}) {
	if m.RawMetadata == nil {
		m.RawMetadata = make(map[string]interface{})
	}

	m.RawMetadata[name] = value
}
