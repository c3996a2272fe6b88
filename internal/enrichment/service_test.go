package enrichment

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
	"argus/internal/logger"
	"argus/pkg/errors"
	"argus/pkg/models"
)

func jsonHandler(t *testing.T, status int, body interface{}) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			require.NoError(t, json.NewEncoder(w).Encode(body))
		}
	}
}

func okClassification() models.Classification {
	return models.Classification{
		OSINTScore: 72,
		Topics:     []string{"equipment"},
		Sentiment:  models.SentimentNeutral,
	}
}

func okEntities() models.Entities {
	return models.Entities{
		MilitaryUnits: []string{"93rd Brigade"},
		Locations:     []string{"Bakhmut"},
	}
}

func okGeolocations() geolocateResponse {
	return geolocateResponse{
		Geolocations: []models.Geolocation{
			{Lat: 48.59, Lon: 38.0, SourceSpan: models.Span{Start: 10, End: 17}},
		},
	}
}

func testEnvelope() *models.MessageEnvelope {
	return &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		Text:      "HIMARS delivered to front line",
		PostedAt:  time.Now().UTC(),
		RawMetadata: map[string]interface{}{
			"views":    float64(1500),
			"forwards": 12,
		},
	}
}

func newTestService(t *testing.T, classify, entities, geolocate http.HandlerFunc) *Service {
	t.Helper()

	classifySrv := httptest.NewServer(classify)
	entitiesSrv := httptest.NewServer(entities)
	geolocateSrv := httptest.NewServer(geolocate)
	t.Cleanup(classifySrv.Close)
	t.Cleanup(entitiesSrv.Close)
	t.Cleanup(geolocateSrv.Close)

	cfg := config.EnrichmentConfig{
		SubCallTimeout: 500 * time.Millisecond,
		OuterTimeout:   5 * time.Second,
	}

	return NewService(
		NewClassificationClient(classifySrv.URL, time.Second, nil),
		NewEntitiesClient(entitiesSrv.URL, time.Second, nil),
		NewGeolocationClient(geolocateSrv.URL, time.Second, nil),
		NewEngagementExtractor(),
		nil,
		cfg,
		logger.NopLogger(),
	)
}

func TestEnrichCompleteRecord(t *testing.T) {
	svc := newTestService(t,
		jsonHandler(t, http.StatusOK, okClassification()),
		jsonHandler(t, http.StatusOK, okEntities()),
		jsonHandler(t, http.StatusOK, okGeolocations()),
	)

	record, err := svc.Enrich(context.Background(), testEnvelope())
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.False(t, record.Partial())
	assert.Empty(t, record.FailedServices)

	require.NotNil(t, record.Classification)
	assert.Equal(t, 72, record.Classification.OSINTScore)
	assert.Equal(t, []string{"equipment"}, record.TopicSet())

	require.NotNil(t, record.Entities)
	assert.Equal(t, []string{"93rd Brigade"}, record.Entities.MilitaryUnits)

	require.Len(t, record.Geolocations, 1)
	assert.InDelta(t, 48.59, record.Geolocations[0].Lat, 1e-9)

	assert.Equal(t, float64(1500), record.Engagement["views"])
	assert.Equal(t, float64(12), record.Engagement["forwards"])
}

func TestEnrichPartialFailureIsTerminal(t *testing.T) {
	svc := newTestService(t,
		jsonHandler(t, http.StatusOK, okClassification()),
		jsonHandler(t, http.StatusInternalServerError, nil),
		jsonHandler(t, http.StatusOK, okGeolocations()),
	)

	record, err := svc.Enrich(context.Background(), testEnvelope())
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, record.Partial())
	assert.Equal(t, []string{models.SubServiceEntities}, record.FailedServices)
	assert.Nil(t, record.Entities)

	// The surviving sub-results are unaffected by the failed one.
	require.NotNil(t, record.Classification)
	assert.Equal(t, []string{"equipment"}, record.TopicSet())
	assert.Len(t, record.Geolocations, 1)
}

func TestEnrichTotalFailure(t *testing.T) {
	svc := newTestService(t,
		jsonHandler(t, http.StatusInternalServerError, nil),
		jsonHandler(t, http.StatusInternalServerError, nil),
		jsonHandler(t, http.StatusInternalServerError, nil),
	)

	env := testEnvelope()
	env.RawMetadata = map[string]interface{}{"views": "not-a-number"}

	record, err := svc.Enrich(context.Background(), env)
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, errors.IsTotalEnrichmentFailure(err))
}

func TestEnrichRetriesFailedSubCallOnce(t *testing.T) {
	var calls int32
	flaky := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		jsonHandler(t, http.StatusOK, okEntities())(w, r)
	}

	svc := newTestService(t,
		jsonHandler(t, http.StatusOK, okClassification()),
		flaky,
		jsonHandler(t, http.StatusOK, okGeolocations()),
	)

	record, err := svc.Enrich(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.False(t, record.Partial())
	require.NotNil(t, record.Entities)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnrichGivesUpAfterOneRetry(t *testing.T) {
	var calls int32
	failing := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}

	svc := newTestService(t,
		failing,
		jsonHandler(t, http.StatusOK, okEntities()),
		jsonHandler(t, http.StatusOK, okGeolocations()),
	)

	record, err := svc.Enrich(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.Equal(t, []string{models.SubServiceClassification}, record.FailedServices)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnrichSubCallTimeout(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		jsonHandler(t, http.StatusOK, okGeolocations())(w, r)
	}

	classifySrv := httptest.NewServer(jsonHandler(t, http.StatusOK, okClassification()))
	entitiesSrv := httptest.NewServer(jsonHandler(t, http.StatusOK, okEntities()))
	geolocateSrv := httptest.NewServer(http.HandlerFunc(slow))
	t.Cleanup(classifySrv.Close)
	t.Cleanup(entitiesSrv.Close)
	t.Cleanup(geolocateSrv.Close)

	cfg := config.EnrichmentConfig{
		SubCallTimeout: 50 * time.Millisecond,
		OuterTimeout:   5 * time.Second,
	}
	svc := NewService(
		NewClassificationClient(classifySrv.URL, time.Second, nil),
		NewEntitiesClient(entitiesSrv.URL, time.Second, nil),
		NewGeolocationClient(geolocateSrv.URL, time.Second, nil),
		NewEngagementExtractor(),
		nil,
		cfg,
		logger.NopLogger(),
	)

	record, err := svc.Enrich(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.Equal(t, []string{models.SubServiceGeolocation}, record.FailedServices)
	require.NotNil(t, record.Classification)
	require.NotNil(t, record.Entities)
}

func TestEnrichWithoutMetadata(t *testing.T) {
	svc := newTestService(t,
		jsonHandler(t, http.StatusOK, okClassification()),
		jsonHandler(t, http.StatusOK, okEntities()),
		jsonHandler(t, http.StatusOK, okGeolocations()),
	)

	env := testEnvelope()
	env.RawMetadata = nil

	record, err := svc.Enrich(context.Background(), env)
	require.NoError(t, err)

	assert.False(t, record.Partial())
	assert.Empty(t, record.Engagement)
}

func TestClassificationClientNormalizesResponse(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{
		"osint_score": 250,
		"topics":      []string{"combat"},
	}))
	t.Cleanup(srv.Close)

	client := NewClassificationClient(srv.URL, time.Second, nil)
	result, err := client.Classify(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, 100, result.OSINTScore)
	assert.Equal(t, models.SentimentUnknown, result.Sentiment)
}

func TestEngagementExtractor(t *testing.T) {
	extractor := NewEngagementExtractor()

	engagement, err := extractor.Extract(map[string]interface{}{
		"views":     float64(1500),
		"forwards":  int64(12),
		"reactions": 3,
		"author":    "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"views":     1500,
		"forwards":  12,
		"reactions": 3,
	}, engagement)
}

func TestEngagementExtractorCorruptCounter(t *testing.T) {
	extractor := NewEngagementExtractor()

	_, err := extractor.Extract(map[string]interface{}{"views": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "views")
}

func TestEngagementExtractorNilMetadata(t *testing.T) {
	extractor := NewEngagementExtractor()

	engagement, err := extractor.Extract(nil)
	require.NoError(t, err)
	assert.Empty(t, engagement)
}
