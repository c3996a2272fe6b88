package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateQueue(cfg.Queue); err != nil {
		errors = append(errors, err)
	}

	if err := validateSpam(cfg.Spam); err != nil {
		errors = append(errors, err)
	}

	if err := validateEnrichment(cfg.Enrichment); err != nil {
		errors = append(errors, err)
	}

	if err := validateMedia(cfg.Media); err != nil {
		errors = append(errors, err)
	}

	if err := validateWorker(cfg.Worker); err != nil {
		errors = append(errors, err)
	}

	if err := validateIngest(cfg.Ingest); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateQueue(cfg QueueConfig) error {
	if cfg.Stream == "" {
		return &ValidationError{
			Field:   "queue.stream",
			Message: "stream key is required",
		}
	}

	if cfg.ConsumerGroup == "" {
		return &ValidationError{
			Field:   "queue.consumer_group",
			Message: "consumer group is required",
		}
	}

	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "queue.max_attempts",
			Message: fmt.Sprintf("max_attempts must be at least 1, got %d", cfg.MaxAttempts),
		}
	}

	if cfg.RequeueDelay < 0 {
		return &ValidationError{
			Field:   "queue.requeue_delay",
			Message: "requeue_delay must be non-negative",
		}
	}

	if cfg.ClaimTimeout <= 0 {
		return &ValidationError{
			Field:   "queue.claim_timeout",
			Message: "claim_timeout must be positive",
		}
	}

	if cfg.RequeueInterval < 0 {
		return &ValidationError{
			Field:   "queue.requeue_interval",
			Message: "requeue_interval must be non-negative",
		}
	}

	return nil
}

func validateSpam(cfg SpamConfig) error {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return &ValidationError{
			Field:   "spam.threshold",
			Message: fmt.Sprintf("threshold must be between 0.0 and 1.0, got %g", cfg.Threshold),
		}
	}

	validOnError := map[string]bool{
		"allow": true, "deny": true, "error": true,
	}
	if cfg.Fallback.OnError != "" && !validOnError[strings.ToLower(cfg.Fallback.OnError)] {
		return &ValidationError{
			Field:   "spam.fallback.on_error",
			Message: fmt.Sprintf("invalid on_error value: %s (valid: allow, deny, error)", cfg.Fallback.OnError),
		}
	}

	if cfg.Reload.IntervalSeconds < 0 {
		return &ValidationError{
			Field:   "spam.reload.interval_seconds",
			Message: "reload interval must be non-negative",
		}
	}

	return nil
}

func validateEnrichment(cfg EnrichmentConfig) error {
	if cfg.SubCallTimeout < 0 {
		return &ValidationError{
			Field:   "enrichment.sub_call_timeout",
			Message: "sub_call_timeout must be non-negative",
		}
	}

	if cfg.OuterTimeout > 0 && cfg.SubCallTimeout > 0 && cfg.OuterTimeout < cfg.SubCallTimeout {
		return &ValidationError{
			Field:   "enrichment.outer_timeout",
			Message: "outer_timeout must be greater than or equal to sub_call_timeout",
		}
	}

	endpoints := []struct {
		field string
		url   string
	}{
		{"enrichment.classification.base_url", cfg.Classification.BaseURL},
		{"enrichment.entities.base_url", cfg.Entities.BaseURL},
		{"enrichment.geolocation.base_url", cfg.Geolocation.BaseURL},
	}
	for _, ep := range endpoints {
		if ep.url == "" {
			continue
		}
		if !strings.HasPrefix(ep.url, "http://") && !strings.HasPrefix(ep.url, "https://") {
			return &ValidationError{
				Field:   ep.field,
				Message: fmt.Sprintf("base URL must start with http:// or https://, got %s", ep.url),
			}
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return &ValidationError{
			Field:   "enrichment.cache.ttl",
			Message: "cache TTL must be positive when the cache is enabled",
		}
	}

	return nil
}

func validateMedia(cfg MediaConfig) error {
	if cfg.MaxBytes < 0 {
		return &ValidationError{
			Field:   "media.max_bytes",
			Message: "max_bytes must be non-negative",
		}
	}

	if cfg.FetchTimeout < 0 {
		return &ValidationError{
			Field:   "media.fetch_timeout",
			Message: "fetch_timeout must be non-negative",
		}
	}

	return nil
}

func validateWorker(cfg WorkerConfig) error {
	if cfg.Count < 1 {
		return &ValidationError{
			Field:   "worker.count",
			Message: fmt.Sprintf("worker count must be at least 1, got %d", cfg.Count),
		}
	}

	if cfg.ClaimBatchSize < 1 {
		return &ValidationError{
			Field:   "worker.claim_batch_size",
			Message: fmt.Sprintf("claim batch size must be at least 1, got %d", cfg.ClaimBatchSize),
		}
	}

	if cfg.ClaimBlock <= 0 {
		return &ValidationError{
			Field:   "worker.claim_block",
			Message: "claim block timeout must be positive",
		}
	}

	if cfg.ProcessTimeout <= 0 {
		return &ValidationError{
			Field:   "worker.process_timeout",
			Message: "process timeout must be positive",
		}
	}

	return nil
}

func validateIngest(cfg IngestConfig) error {
	if cfg.SeenWindow.Enabled && cfg.SeenWindow.TTL <= 0 {
		return &ValidationError{
			Field:   "ingest.seen_window.ttl",
			Message: "seen window TTL must be positive when enabled",
		}
	}

	validOnError := map[string]bool{
		"allow": true, "deny": true,
	}
	if cfg.SeenWindow.OnRedisError != "" && !validOnError[strings.ToLower(cfg.SeenWindow.OnRedisError)] {
		return &ValidationError{
			Field:   "ingest.seen_window.on_redis_error",
			Message: fmt.Sprintf("invalid on_redis_error value: %s (valid: allow, deny)", cfg.SeenWindow.OnRedisError),
		}
	}

	return nil
}
