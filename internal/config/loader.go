package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads the YAML config file, layers environment overrides on
// top, and validates the result before returning it.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvVariables binds the env vars used by deployment manifests. Viper's
// AutomaticEnv does not see nested keys that are absent from the YAML file,
// so each override needs an explicit binding.
func bindEnvVariables() {
	bindings := []string{
		"server.port",
		"database.postgres.host",
		"database.postgres.port",
		"database.postgres.user",
		"database.postgres.password",
		"database.postgres.dbname",
		"database.redis.host",
		"database.redis.port",
		"database.redis.password",
		"database.mongodb.uri",
		"database.mongodb.database",
		"database.run_migrations",
		"broker.kafka.group_id",
		"broker.kafka.input_topic",
		"broker.kafka.config_update_topic",
		"broker.kafka.dlq_topic",
		"logging.level",
		"logging.format",
		"queue.stream",
		"queue.consumer_group",
		"queue.max_attempts",
		"spam.threshold",
		"routing.default_partition",
		"enrichment.classification.base_url",
		"enrichment.entities.base_url",
		"enrichment.geolocation.base_url",
		"worker.count",
		"management.rate_limit.enabled",
		"tracing.enabled",
		"tracing.service_name",
	}

	for _, key := range bindings {
		_ = viper.BindEnv(key)
	}
}

// applyEnvOverrides handles the cases viper cannot express: list-valued env
// vars and keys whose env name does not follow the dot-to-underscore rule.
func applyEnvOverrides(cfg *Config) {
	if brokers := os.Getenv("BROKER_KAFKA_BROKERS"); brokers != "" {
		cfg.Broker.Kafka.Brokers = splitAndTrim(brokers)
	}

	if endpoint := os.Getenv("TRACING_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Tracing.OTLP.Endpoint = endpoint
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
