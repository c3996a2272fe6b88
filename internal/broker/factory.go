package broker

import (
	"fmt"

	"argus/internal/config"
	"argus/internal/logger"
)

// Kafka is the only transport wired today; the indirection keeps the
// ingest and config-update paths off the concrete client.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if cfg.Type != "kafka" {
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	if cfg.Type != "kafka" {
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
	return NewKafkaConsumer(cfg.Kafka, log), nil
}
