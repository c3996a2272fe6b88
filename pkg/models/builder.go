package models

import "time"

type MessageEnvelopeBuilder struct {
	envelope *MessageEnvelope
}

func NewMessageEnvelopeBuilder() *MessageEnvelopeBuilder {
	return &MessageEnvelopeBuilder{
		envelope: &MessageEnvelope{
			RawMetadata: make(map[string]interface{}),
		},
	}
}

func (b *MessageEnvelopeBuilder) WithSourceID(sourceID string) *MessageEnvelopeBuilder {
	b.envelope.SourceID = sourceID
	return b
}

func (b *MessageEnvelopeBuilder) WithMessageID(messageID int64) *MessageEnvelopeBuilder {
	b.envelope.MessageID = messageID
	return b
}

func (b *MessageEnvelopeBuilder) WithText(text string) *MessageEnvelopeBuilder {
	b.envelope.Text = text
	return b
}

func (b *MessageEnvelopeBuilder) WithMediaRefs(refs ...string) *MessageEnvelopeBuilder {
	b.envelope.MediaRefs = refs
	return b
}

func (b *MessageEnvelopeBuilder) WithPostedAt(postedAt time.Time) *MessageEnvelopeBuilder {
	b.envelope.PostedAt = postedAt
	return b
}

func (b *MessageEnvelopeBuilder) WithRawMetadata(metadata map[string]interface{}) *MessageEnvelopeBuilder {
	b.envelope.RawMetadata = metadata
	return b
}

func (b *MessageEnvelopeBuilder) WithTraceID(traceID string) *MessageEnvelopeBuilder {
	b.envelope.TraceID = traceID
	return b
}

func (b *MessageEnvelopeBuilder) Build() *MessageEnvelope {
	if b.envelope.PostedAt.IsZero() {
		b.envelope.PostedAt = time.Now().UTC()
	}
	return b.envelope
}
