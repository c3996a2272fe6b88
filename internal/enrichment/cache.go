package enrichment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// recordCache memoizes enrichment records keyed by a digest of the message
// text. Only complete records are cached: a cached partial would keep masking
// a sub-service that has since recovered. Engagement is stripped before
// caching and re-extracted per envelope by the caller.
type recordCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger

	cacheHits   int64
	cacheMisses int64
}

func newRecordCache(client *redis.Client, ttl time.Duration, log logger.Logger) *recordCache {
	if ttl <= 0 {
		ttl = constants.DefaultEnrichCacheTTL
	}
	return &recordCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return constants.CacheKeyPrefixEnrich + hex.EncodeToString(digest[:])
}

// get treats every cache problem as a miss: enrichment must keep working
// when Redis is down or an entry is corrupt.
func (c *recordCache) get(ctx context.Context, text string) (*models.EnrichmentRecord, bool) {
	data, err := c.client.Get(ctx, cacheKey(text)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.DebugwCtx(ctx, "Enrichment cache read failed", "error", err)
		}
		c.recordMiss()
		return nil, false
	}

	var record models.EnrichmentRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		c.logger.DebugwCtx(ctx, "Enrichment cache entry corrupt, ignoring", "error", err)
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return &record, true
}

func (c *recordCache) put(ctx context.Context, text string, record *models.EnrichmentRecord) {
	// Engagement comes from the envelope's own metadata; caching it on a text
	// key would serve one message's counters to another with the same text.
	cached := *record
	cached.Engagement = nil

	data, err := json.Marshal(&cached)
	if err != nil {
		c.logger.DebugwCtx(ctx, "Failed to encode enrichment record for cache", "error", err)
		return
	}

	if err := c.client.Set(ctx, cacheKey(text), data, c.ttl).Err(); err != nil {
		c.logger.DebugwCtx(ctx, "Enrichment cache write failed", "error", err)
	}
}

func (c *recordCache) recordHit() {
	hits := atomic.AddInt64(&c.cacheHits, 1)
	c.updateHitRate(hits, atomic.LoadInt64(&c.cacheMisses))
}

func (c *recordCache) recordMiss() {
	misses := atomic.AddInt64(&c.cacheMisses, 1)
	c.updateHitRate(atomic.LoadInt64(&c.cacheHits), misses)
}

func (c *recordCache) updateHitRate(hits, misses int64) {
	total := hits + misses
	if total == 0 {
		return
	}
	metrics.SetEnrichmentCacheHitRate(float64(hits) / float64(total))
}
