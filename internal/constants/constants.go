package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

// Redis key layout shared across services.
const (
	MessageStreamKey     = "argus:messages"
	CacheKeyPrefixEnrich = "argus:enrich:"
	IngestSeenKeyPrefix  = "argus:seen:"
	DefaultConsumerGroup = "pipeline-workers"
)

const (
	DefaultIngestTopic = "raw_messages"
	DefaultConfigTopic = "config_updates"
)

// Storage partitions a message can be routed to.
const (
	PartitionCombat     = "messages_combat"
	PartitionCivilian   = "messages_civilian"
	PartitionDiplomatic = "messages_diplomatic"
	PartitionEquipment  = "messages_equipment"
	PartitionGeneral    = "messages_general"
)

const (
	DefaultMongoDBName   = "argus"
	DeadLetterCollection = "dead_letters"
	MediaBucketName      = "media"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit       = 100
	MaxLimit           = 1000
	DefaultTruncateLen = 100
)

// Pipeline defaults, overridable per config section.
const (
	DefaultMaxAttempts     = 3
	DefaultRequeueDelay    = 5 * time.Second
	DefaultRequeueInterval = time.Second
	DefaultClaimTimeout    = 60 * time.Second
	DefaultClaimBlock      = 2 * time.Second
	DefaultClaimBatchSize  = 10
	DefaultWorkerCount     = 5
	DefaultProcessTimeout  = 2 * time.Minute
	DefaultSpamThreshold   = 0.85
	DefaultEnrichTimeout   = 30 * time.Second
	DefaultSubCallTimeout  = 10 * time.Second
	DefaultMediaMaxBytes   = 10 << 20
	DefaultIngestSeenTTL   = 24 * time.Hour
	DefaultEnrichCacheTTL  = time.Hour
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
	FallbackError = "error"
)

// Spam rule kinds. Substring and regex rules match against the message
// text; expression rules run a compiled CEL program over text+metadata.
const (
	RuleKindSubstring  = "substring"
	RuleKindRegex      = "regex"
	RuleKindExpression = "expression"
)

// Routing rule kinds stored in the routing_rules table.
const (
	RoutingKindTrigger = "trigger"
	RoutingKindTopic   = "topic"
	RoutingKindDefault = "default"
)
