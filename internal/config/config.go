package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Queue          QueueConfig
	Spam           SpamConfig
	Routing        RoutingConfig
	Enrichment     EnrichmentConfig
	Media          MediaConfig
	Worker         WorkerConfig
	Ingest         IngestConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers           []string    `mapstructure:"brokers"`
	GroupID           string      `mapstructure:"group_id"`
	InputTopic        string      `mapstructure:"input_topic"`
	ConfigUpdateTopic string      `mapstructure:"config_update_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueueConfig governs the Redis Streams queue and its retry bookkeeping.
// MaxAttempts counts failed completions before dead-letter promotion: an
// envelope failing every attempt is requeued MaxAttempts times and its
// history carries MaxAttempts+1 records.
type QueueConfig struct {
	Stream          string        `mapstructure:"stream"`
	ConsumerGroup   string        `mapstructure:"consumer_group"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RequeueDelay    time.Duration `mapstructure:"requeue_delay"`
	ClaimTimeout    time.Duration `mapstructure:"claim_timeout"`
	RequeueInterval time.Duration `mapstructure:"requeue_interval"`
}

type SpamConfig struct {
	Threshold float64        `mapstructure:"threshold"`
	Reload    ReloadConfig   `mapstructure:"reload"`
	Fallback  FallbackConfig `mapstructure:"fallback"`
}

type RoutingConfig struct {
	DefaultPartition string       `mapstructure:"default_partition"`
	Reload           ReloadConfig `mapstructure:"reload"`
}

type FallbackConfig struct {
	OnError string `mapstructure:"on_error"` // "allow", "deny", "error" (default: "error")
}

type ReloadConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

// EnrichmentConfig wires the four sub-services. Classification, entities
// and geolocation are remote HTTP collaborators; engagement is extracted
// locally and needs no endpoint.
type EnrichmentConfig struct {
	SubCallTimeout time.Duration    `mapstructure:"sub_call_timeout"`
	OuterTimeout   time.Duration    `mapstructure:"outer_timeout"`
	Classification SubServiceConfig `mapstructure:"classification"`
	Entities       SubServiceConfig `mapstructure:"entities"`
	Geolocation    SubServiceConfig `mapstructure:"geolocation"`
	Cache          CacheConfig      `mapstructure:"cache"`
}

type SubServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type MediaConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
}

// WorkerConfig sizes the claim-process-ack loops. ProcessTimeout bounds one
// envelope end to end, which also bounds how long a shutting-down worker
// keeps running its in-flight batch.
type WorkerConfig struct {
	Count          int           `mapstructure:"count"`
	ClaimBatchSize int           `mapstructure:"claim_batch_size"`
	ClaimBlock     time.Duration `mapstructure:"claim_block"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

// IngestConfig controls the relay between the inbound Kafka topic and the
// queue. The seen-window drops exact identity redeliveries before they
// reach the queue; the pipeline stays idempotent without it.
type IngestConfig struct {
	SeenWindow   SeenWindowConfig `mapstructure:"seen_window"`
	EnqueueRetry RetryConfig      `mapstructure:"enqueue_retry"`
}

type SeenWindowConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TTL          time.Duration `mapstructure:"ttl"`
	OnRedisError string        `mapstructure:"on_redis_error"` // "allow" relays anyway, "deny" fails the message
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
