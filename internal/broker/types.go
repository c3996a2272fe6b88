package broker

import (
	"context"

	"argus/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	PublishRaw(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// Consumer reads one topic per instance. Consume delivers decoded message
// envelopes with retry and DLQ handling; ConsumeRaw delivers unparsed
// payloads and commits regardless of handler outcome.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	ConsumeRaw(ctx context.Context, topic string, handler RawHandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error

type RawHandlerFunc func(ctx context.Context, key, value []byte) error
