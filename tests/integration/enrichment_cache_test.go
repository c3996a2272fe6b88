package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/enrichment"
	"argus/pkg/models"
)

func newCachedEnrichService(t *testing.T, classifyCalls *int64) *enrichment.Service {
	t.Helper()

	infra := SetupTestInfraWithOptions(t, false, false, true)

	classifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(classifyCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.Classification{
			OSINTScore: 65,
			Topics:     []string{"combat"},
			Sentiment:  models.SentimentNeutral,
		})
	}))
	entitiesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.Entities{Locations: []string{"Bakhmut"}})
	}))
	geolocateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"geolocations": []models.Geolocation{}})
	}))
	t.Cleanup(classifySrv.Close)
	t.Cleanup(entitiesSrv.Close)
	t.Cleanup(geolocateSrv.Close)

	cfg := config.EnrichmentConfig{
		SubCallTimeout: 2 * time.Second,
		OuterTimeout:   10 * time.Second,
		Cache:          config.CacheConfig{Enabled: true, TTL: time.Minute},
	}

	return enrichment.NewService(
		enrichment.NewClassificationClient(classifySrv.URL, 2*time.Second, nil),
		enrichment.NewEntitiesClient(entitiesSrv.URL, 2*time.Second, nil),
		enrichment.NewGeolocationClient(geolocateSrv.URL, 2*time.Second, nil),
		enrichment.NewEngagementExtractor(),
		infra.RedisClient,
		cfg,
		createTestLogger(),
	)
}

// Two envelopes sharing the same text hit the same cache entry, but each
// keeps the engagement counters from its own metadata.
func TestEnrichmentCache_EngagementStaysPerEnvelope(t *testing.T) {
	var classifyCalls int64
	svc := newCachedEnrichService(t, &classifyCalls)
	ctx := context.Background()

	text := "обстріл north of the city, details follow"

	first := createTestEnvelope("ch1", 501, text)
	first.RawMetadata = map[string]interface{}{"views": float64(10), "forwards": float64(2)}

	recA, err := svc.Enrich(ctx, &first)
	require.NoError(t, err)
	require.NotNil(t, recA)
	assert.Equal(t, float64(10), recA.Engagement["views"])

	second := createTestEnvelope("ch2", 777, text)
	second.RawMetadata = map[string]interface{}{"views": float64(999), "forwards": float64(40)}

	recB, err := svc.Enrich(ctx, &second)
	require.NoError(t, err)
	require.NotNil(t, recB)

	// Served from cache: the classification endpoint was only hit once.
	assert.Equal(t, int64(1), atomic.LoadInt64(&classifyCalls))
	require.NotNil(t, recB.Classification)
	assert.Equal(t, 65, recB.Classification.OSINTScore)

	// Engagement reflects the second envelope's own metadata.
	assert.Equal(t, float64(999), recB.Engagement["views"])
	assert.Equal(t, float64(40), recB.Engagement["forwards"])
}

func TestEnrichmentCache_MissingMetadataFallsThrough(t *testing.T) {
	var classifyCalls int64
	svc := newCachedEnrichService(t, &classifyCalls)
	ctx := context.Background()

	text := "supply convoy spotted near the border"

	first := createTestEnvelope("ch1", 502, text)
	first.RawMetadata = map[string]interface{}{"views": float64(7)}

	recA, err := svc.Enrich(ctx, &first)
	require.NoError(t, err)
	assert.Equal(t, float64(7), recA.Engagement["views"])

	second := createTestEnvelope("ch3", 503, text)
	second.RawMetadata = nil

	recB, err := svc.Enrich(ctx, &second)
	require.NoError(t, err)
	require.NotNil(t, recB)
	assert.NotContains(t, recB.Engagement, "views")
}
