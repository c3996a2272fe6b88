package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_total",
			Help: "Total number of envelopes completed by the worker pool, by terminal state (count)",
		},
		[]string{"terminal_state"},
	)

	PipelineProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_processing_duration_ms",
			Help:    "Claim-to-ack processing duration per envelope in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"terminal_state"},
	)

	SpamChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spam_checks_total",
			Help: "Total number of spam filter evaluations (count)",
		},
		[]string{"verdict"},
	)

	SpamCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spam_check_duration_us",
			Help:    "Spam filter evaluation duration in microseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	SpamActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spam_active_rules",
			Help: "Number of compiled spam rules in the active snapshot (count)",
		},
	)

	SpamRuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spam_rule_matches_total",
			Help: "Total number of spam rule matches (count)",
		},
		[]string{"rule_id", "rule_name", "decisive"},
	)

	QueueOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total number of queue operations (count)",
		},
		[]string{"operation", "status"},
	)

	QueueClaimDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_claim_duration_ms",
			Help:    "Duration of claim calls including block time in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"outcome"},
	)

	QueueClaimedBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_claimed_batch_size",
			Help:    "Number of envelopes returned per non-empty claim (count)",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	QueueDeadLettersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_dead_letters_total",
			Help: "Total number of envelopes promoted to the dead-letter store (count)",
		},
	)

	QueueRetrySetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_retry_set_size",
			Help: "Number of nacked envelopes waiting out their requeue backoff (count)",
		},
	)

	QueueReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_reclaimed_total",
			Help: "Total number of stale pending entries reclaimed past the claim timeout (count)",
		},
	)

	EnrichmentSubServiceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_subservice_requests_total",
			Help: "Total number of enrichment sub-service invocations (count)",
		},
		[]string{"sub_service", "status"},
	)

	EnrichmentSubServiceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrichment_subservice_duration_ms",
			Help:    "Duration of enrichment sub-service invocations in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"sub_service"},
	)

	EnrichmentRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_records_total",
			Help: "Total number of enrichment records produced, by completeness (count)",
		},
		[]string{"completeness"},
	)

	EnrichmentCacheHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_cache_hit_rate",
			Help: "Cache hit rate for enrichment records (ratio, 0.0 to 1.0)",
		},
	)

	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_decisions_total",
			Help: "Total number of routing decisions, by partition and match kind (count)",
		},
		[]string{"partition", "match"},
	)

	RoutingActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "routing_active_rules",
			Help: "Number of trigger rules in the active routing snapshot (count)",
		},
	)

	MediaFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_fetches_total",
			Help: "Total number of media reference fetches (count)",
		},
		[]string{"status"},
	)

	MediaStorePutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_store_puts_total",
			Help: "Total number of content-addressed store puts (count)",
		},
		[]string{"status"},
	)

	MediaBytesFetched = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_bytes_fetched",
			Help:    "Size of fetched media attachments in bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760},
		},
	)

	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of relay messages handled, by outcome (count)",
		},
		[]string{"status"},
	)

	IngestEnqueueDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_enqueue_duration_ms",
			Help:    "Duration of enqueue calls from the relay in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to the broker DLQ topic (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)

	DatabaseConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections (count)",
		},
		[]string{"service", "database"},
	)

	DeadLetterRemediationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letter_remediations_total",
			Help: "Total number of operator dead-letter remediations (count)",
		},
		[]string{"action", "status"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(PipelineMessagesTotal)
	prometheus.MustRegister(PipelineProcessingDuration)
	prometheus.MustRegister(SpamChecksTotal)
	prometheus.MustRegister(SpamCheckDuration)
	prometheus.MustRegister(SpamActiveRules)
	prometheus.MustRegister(SpamRuleMatchesTotal)
	prometheus.MustRegister(QueueOperationsTotal)
	prometheus.MustRegister(QueueClaimDuration)
	prometheus.MustRegister(QueueClaimedBatchSize)
	prometheus.MustRegister(QueueDeadLettersTotal)
	prometheus.MustRegister(QueueRetrySetSize)
	prometheus.MustRegister(QueueReclaimedTotal)
	prometheus.MustRegister(EnrichmentSubServiceRequestsTotal)
	prometheus.MustRegister(EnrichmentSubServiceDuration)
	prometheus.MustRegister(EnrichmentRecordsTotal)
	prometheus.MustRegister(EnrichmentCacheHitRate)
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(RoutingActiveRules)
	prometheus.MustRegister(MediaFetchesTotal)
	prometheus.MustRegister(MediaStorePutsTotal)
	prometheus.MustRegister(MediaBytesFetched)
	prometheus.MustRegister(IngestMessagesTotal)
	prometheus.MustRegister(IngestEnqueueDuration)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
	prometheus.MustRegister(DatabaseConnectionsActive)
	prometheus.MustRegister(DeadLetterRemediationsTotal)
}

func IncPipelineMessage(terminalState string) {
	PipelineMessagesTotal.WithLabelValues(terminalState).Inc()
}

func ObservePipelineDuration(duration time.Duration, terminalState string) {
	PipelineProcessingDuration.WithLabelValues(terminalState).Observe(float64(duration.Milliseconds()))
}

func IncSpamCheck(verdict string) {
	SpamChecksTotal.WithLabelValues(verdict).Inc()
}

func ObserveSpamCheckDuration(duration time.Duration) {
	SpamCheckDuration.Observe(float64(duration.Microseconds()))
}

func SetSpamActiveRules(count int) {
	SpamActiveRules.Set(float64(count))
}

func IncSpamRuleMatch(ruleID, ruleName string, decisive bool) {
	SpamRuleMatchesTotal.WithLabelValues(ruleID, ruleName, fmt.Sprintf("%t", decisive)).Inc()
}

func IncQueueOperation(operation, status string) {
	QueueOperationsTotal.WithLabelValues(operation, status).Inc()
}

func ObserveQueueClaimDuration(duration time.Duration, outcome string) {
	QueueClaimDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func ObserveClaimedBatchSize(size int) {
	QueueClaimedBatchSize.Observe(float64(size))
}

func SetQueueRetrySetSize(size int64) {
	QueueRetrySetSize.Set(float64(size))
}

func IncEnrichmentSubServiceRequest(subService, status string) {
	EnrichmentSubServiceRequestsTotal.WithLabelValues(subService, status).Inc()
}

func ObserveEnrichmentSubServiceDuration(subService string, duration time.Duration) {
	EnrichmentSubServiceDuration.WithLabelValues(subService).Observe(float64(duration.Milliseconds()))
}

func IncEnrichmentRecord(completeness string) {
	EnrichmentRecordsTotal.WithLabelValues(completeness).Inc()
}

func SetEnrichmentCacheHitRate(rate float64) {
	EnrichmentCacheHitRate.Set(rate)
}

func IncRoutingDecision(partition, match string) {
	RoutingDecisionsTotal.WithLabelValues(partition, match).Inc()
}

func SetRoutingActiveRules(count int) {
	RoutingActiveRules.Set(float64(count))
}

func IncMediaFetch(status string) {
	MediaFetchesTotal.WithLabelValues(status).Inc()
}

func IncMediaStorePut(status string) {
	MediaStorePutsTotal.WithLabelValues(status).Inc()
}

func ObserveMediaBytesFetched(sizeBytes int) {
	MediaBytesFetched.Observe(float64(sizeBytes))
}

func IncIngestMessage(status string) {
	IngestMessagesTotal.WithLabelValues(status).Inc()
}

func ObserveIngestEnqueueDuration(duration time.Duration) {
	IngestEnqueueDuration.Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

func SetDatabaseConnectionsActive(service, database string, count int) {
	DatabaseConnectionsActive.WithLabelValues(service, database).Set(float64(count))
}

func IncDeadLetterRemediation(action, status string) {
	DeadLetterRemediationsTotal.WithLabelValues(action, status).Inc()
}
