package integration

import (
	"time"

	"argus/internal/config"
	"argus/internal/logger"
	"argus/internal/management"
	"argus/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Stream:          "test:messages",
		ConsumerGroup:   "test-workers",
		MaxAttempts:     2,
		RequeueDelay:    50 * time.Millisecond,
		ClaimTimeout:    time.Minute,
		RequeueInterval: 25 * time.Millisecond,
	}
}

func createSpamRuleRequest(name, kind, pattern string, weight float64, priority int) management.CreateSpamRuleRequest {
	return management.CreateSpamRuleRequest{
		Name:     name,
		Kind:     kind,
		Pattern:  pattern,
		Weight:   weight,
		Priority: priority,
	}
}

func createRoutingRuleRequest(name, kind string, priority int, triggers []string, topic, partition string) management.CreateRoutingRuleRequest {
	return management.CreateRoutingRuleRequest{
		Name:      name,
		Kind:      kind,
		Priority:  priority,
		Triggers:  triggers,
		Topic:     topic,
		Partition: partition,
	}
}

func createTestEnvelope(sourceID string, messageID int64, text string) models.MessageEnvelope {
	return models.MessageEnvelope{
		SourceID:  sourceID,
		MessageID: messageID,
		Text:      text,
		PostedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}
