package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/errors"
	"argus/pkg/models"
)

type stubSpam struct {
	verdict models.SpamVerdict
	err     error
}

func (s *stubSpam) Check(context.Context, *models.MessageEnvelope) (models.SpamVerdict, error) {
	return s.verdict, s.err
}

type stubMedia struct {
	addresses []string
	err       error
	calls     int
}

func (s *stubMedia) Process(context.Context, *models.MessageEnvelope) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.addresses, nil
}

type stubEnricher struct {
	record *models.EnrichmentRecord
	err    error
	calls  int
}

func (s *stubEnricher) Enrich(context.Context, *models.MessageEnvelope) (*models.EnrichmentRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

type stubRouter struct {
	decision         models.RoutingDecision
	defaultPartition string
	calls            int
	topics           []string
}

func (s *stubRouter) Route(_ string, topics []string) models.RoutingDecision {
	s.calls++
	s.topics = topics
	return s.decision
}

func (s *stubRouter) DefaultPartition() string {
	if s.defaultPartition == "" {
		return constants.PartitionGeneral
	}
	return s.defaultPartition
}

type captureWriter struct {
	byIdentity map[string]*models.StoredMessage
	upserts    int
	err        error
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{byIdentity: make(map[string]*models.StoredMessage)}
}

func (w *captureWriter) Upsert(_ context.Context, msg *models.StoredMessage) error {
	if w.err != nil {
		return w.err
	}
	w.upserts++
	w.byIdentity[fmt.Sprintf("%s:%d", msg.SourceID, msg.MessageID)] = msg
	return nil
}

func cleanVerdict() models.SpamVerdict {
	return models.SpamVerdict{IsSpam: false, Confidence: 1.0}
}

func enrichedRecord() *models.EnrichmentRecord {
	return &models.EnrichmentRecord{
		Classification: &models.Classification{
			OSINTScore: 72,
			Topics:     []string{"equipment"},
			Sentiment:  models.SentimentNeutral,
		},
		Entities:   &models.Entities{MilitaryUnits: []string{"93rd Brigade"}},
		Engagement: map[string]float64{"views": 1500},
	}
}

func workerEnvelope() *models.MessageEnvelope {
	return &models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		Text:      "HIMARS delivered to front line",
		PostedAt:  time.Now().UTC(),
	}
}

func TestProcessStoresEnrichedMessage(t *testing.T) {
	media := &stubMedia{addresses: []string{"media/ab/cd/abcd.jpg"}}
	enricher := &stubEnricher{record: enrichedRecord()}
	router := &stubRouter{decision: models.RoutingDecision{
		TargetPartition: constants.PartitionEquipment,
		DecidedAt:       time.Now().UTC(),
	}}
	writer := newCaptureWriter()

	processor := NewProcessor(&stubSpam{verdict: cleanVerdict()}, media, enricher, router, writer, logger.NopLogger())

	state, err := processor.Process(context.Background(), workerEnvelope())
	require.NoError(t, err)
	assert.Equal(t, models.StateEnriched, state)

	require.Equal(t, 1, writer.upserts)
	stored := writer.byIdentity["ch1:42"]
	require.NotNil(t, stored)

	assert.Equal(t, constants.PartitionEquipment, stored.Routing.TargetPartition)
	assert.Equal(t, []string{"media/ab/cd/abcd.jpg"}, stored.MediaHashes)
	assert.Equal(t, models.StateEnriched, stored.State)
	require.NotNil(t, stored.Enrichment)

	// The router sees the classification topics from the enrichment step.
	assert.Equal(t, []string{"equipment"}, router.topics)
}

func TestProcessSpamShortCircuit(t *testing.T) {
	media := &stubMedia{}
	enricher := &stubEnricher{record: enrichedRecord()}
	router := &stubRouter{}
	writer := newCaptureWriter()

	spam := &stubSpam{verdict: models.SpamVerdict{
		IsSpam:       true,
		Confidence:   0.9,
		MatchedRules: []string{"donation_keywords"},
	}}
	processor := NewProcessor(spam, media, enricher, router, writer, logger.NopLogger())

	state, err := processor.Process(context.Background(), workerEnvelope())
	require.NoError(t, err)
	assert.Equal(t, models.StateSpam, state)

	assert.Equal(t, 0, media.calls)
	assert.Equal(t, 0, enricher.calls)
	assert.Equal(t, 0, router.calls)

	stored := writer.byIdentity["ch1:42"]
	require.NotNil(t, stored)
	assert.Nil(t, stored.Enrichment)
	assert.Empty(t, stored.MediaHashes)
	assert.True(t, stored.Verdict.IsSpam)
	assert.Equal(t, constants.PartitionGeneral, stored.Routing.TargetPartition)
}

func TestProcessSpamUsesConfiguredDefaultPartition(t *testing.T) {
	router := &stubRouter{defaultPartition: "messages_quarantine"}
	writer := newCaptureWriter()

	spam := &stubSpam{verdict: models.SpamVerdict{IsSpam: true, Confidence: 0.9}}
	processor := NewProcessor(spam, &stubMedia{}, &stubEnricher{}, router, writer, logger.NopLogger())

	state, err := processor.Process(context.Background(), workerEnvelope())
	require.NoError(t, err)
	assert.Equal(t, models.StateSpam, state)

	// An operator override of the default partition applies to spam records
	// the same way it applies to unmatched clean messages.
	stored := writer.byIdentity["ch1:42"]
	require.NotNil(t, stored)
	assert.Equal(t, "messages_quarantine", stored.Routing.TargetPartition)
	assert.Equal(t, 0, router.calls)
}

func TestProcessPartialEnrichmentState(t *testing.T) {
	record := enrichedRecord()
	record.Entities = nil
	record.FailedServices = []string{models.SubServiceEntities}

	writer := newCaptureWriter()
	processor := NewProcessor(
		&stubSpam{verdict: cleanVerdict()},
		&stubMedia{},
		&stubEnricher{record: record},
		&stubRouter{decision: models.RoutingDecision{TargetPartition: constants.PartitionGeneral}},
		writer,
		logger.NopLogger(),
	)

	state, err := processor.Process(context.Background(), workerEnvelope())
	require.NoError(t, err)
	assert.Equal(t, models.StatePartiallyEnriched, state)
	assert.Equal(t, models.StatePartiallyEnriched, writer.byIdentity["ch1:42"].State)
}

func TestProcessTotalEnrichmentFailureNacks(t *testing.T) {
	writer := newCaptureWriter()
	processor := NewProcessor(
		&stubSpam{verdict: cleanVerdict()},
		&stubMedia{},
		&stubEnricher{err: errors.ErrTotalEnrichmentFailure},
		&stubRouter{},
		writer,
		logger.NopLogger(),
	)

	_, err := processor.Process(context.Background(), workerEnvelope())
	require.Error(t, err)
	assert.True(t, errors.IsTotalEnrichmentFailure(err))
	assert.Equal(t, 0, writer.upserts)
}

func TestProcessMediaFailureStopsPipeline(t *testing.T) {
	enricher := &stubEnricher{record: enrichedRecord()}
	processor := NewProcessor(
		&stubSpam{verdict: cleanVerdict()},
		&stubMedia{err: fmt.Errorf("fetch failed")},
		enricher,
		&stubRouter{},
		newCaptureWriter(),
		logger.NopLogger(),
	)

	_, err := processor.Process(context.Background(), workerEnvelope())
	require.Error(t, err)
	assert.Equal(t, 0, enricher.calls)
}

func TestProcessStoreFailurePropagates(t *testing.T) {
	writer := newCaptureWriter()
	writer.err = errors.ErrStoreUnavailable

	processor := NewProcessor(
		&stubSpam{verdict: cleanVerdict()},
		&stubMedia{},
		&stubEnricher{record: enrichedRecord()},
		&stubRouter{decision: models.RoutingDecision{TargetPartition: constants.PartitionGeneral}},
		writer,
		logger.NopLogger(),
	)

	_, err := processor.Process(context.Background(), workerEnvelope())
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestProcessDoubleDeliveryConverges(t *testing.T) {
	writer := newCaptureWriter()
	processor := NewProcessor(
		&stubSpam{verdict: cleanVerdict()},
		&stubMedia{addresses: []string{"media/ab/cd/abcd.jpg"}},
		&stubEnricher{record: enrichedRecord()},
		&stubRouter{decision: models.RoutingDecision{TargetPartition: constants.PartitionEquipment}},
		writer,
		logger.NopLogger(),
	)

	env := workerEnvelope()
	_, err := processor.Process(context.Background(), env)
	require.NoError(t, err)
	_, err = processor.Process(context.Background(), env)
	require.NoError(t, err)

	// Two deliveries, one identity: the writer keyed by identity holds a
	// single document with identical pipeline content.
	assert.Equal(t, 2, writer.upserts)
	require.Len(t, writer.byIdentity, 1)

	stored := writer.byIdentity["ch1:42"]
	assert.Equal(t, models.StateEnriched, stored.State)
	assert.Equal(t, []string{"media/ab/cd/abcd.jpg"}, stored.MediaHashes)
}

func TestSafeProcessRecoversPanics(t *testing.T) {
	panicking := &stubSpam{}
	processor := NewProcessor(panicking, &stubMedia{}, &stubEnricher{}, &stubRouter{}, newCaptureWriter(), logger.NopLogger())

	pool := &Pool{processor: processor, logger: logger.NopLogger()}
	pool.processor.spam = panicSpam{}

	_, err := pool.safeProcess(context.Background(), workerEnvelope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

type panicSpam struct{}

func (panicSpam) Check(context.Context, *models.MessageEnvelope) (models.SpamVerdict, error) {
	panic("rule snapshot corrupted")
}
