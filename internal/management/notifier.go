package management

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"argus/internal/broker"
	"argus/pkg/models"
)

// ConfigEventProducer publishes rule-change events to the config topic so
// running pipeline instances reload their snapshots without waiting for the
// next ticker pass. Events ride as raw JSON; the pipeline's config handler
// consumes them with ConsumeRaw.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishSpamRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType:   models.EventTypeSpamRuleUpdated,
		ServiceType: models.ServiceTypeSpam,
		RuleID:      ruleID,
		Action:      action,
		Timestamp:   time.Now().UTC(),
		ChangedBy:   changedBy,
	})
}

func (p *ConfigEventProducer) PublishRoutingRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType:   models.EventTypeRoutingRuleUpdated,
		ServiceType: models.ServiceTypeRouting,
		RuleID:      ruleID,
		Action:      action,
		Timestamp:   time.Now().UTC(),
		ChangedBy:   changedBy,
	})
}

func (p *ConfigEventProducer) publishEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal config event: %w", err)
	}

	return p.producer.PublishRaw(ctx, p.topic, []byte(event.ServiceType), payload)
}
