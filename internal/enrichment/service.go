package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/errors"
	"argus/pkg/metrics"
	"argus/pkg/models"
	"argus/pkg/retry"
	"argus/pkg/tracing"
)

// subServiceCount is the size of the fan-out; a record with that many failed
// services carries no data and is reported as a total failure.
const subServiceCount = 4

// subCallAttempts bounds each sub-service to one retry after the first
// failure. Attempt-level retries stay cheap; anything beyond that is the
// queue's job.
const subCallAttempts = 2

// Completeness labels reported per assembled record.
const (
	recordComplete = "complete"
	recordPartial  = "partial"
	recordFailed   = "failed"
)

// Service fans a message out to the four enrichment sub-services and joins
// their results into one EnrichmentRecord. Sub-service failures are isolated
// from each other: a failed sub-service is listed in FailedServices and
// contributes nothing, and only the loss of all four becomes an error.
type Service struct {
	classification ClassificationClient
	entities       EntitiesClient
	geolocation    GeolocationClient
	engagement     EngagementExtractor

	cache          *recordCache
	subCallTimeout time.Duration
	outerTimeout   time.Duration
	logger         logger.Logger
}

func NewService(
	classification ClassificationClient,
	entities EntitiesClient,
	geolocation GeolocationClient,
	engagement EngagementExtractor,
	redisClient *redis.Client,
	cfg config.EnrichmentConfig,
	log logger.Logger,
) *Service {
	subCallTimeout := cfg.SubCallTimeout
	if subCallTimeout <= 0 {
		subCallTimeout = constants.DefaultSubCallTimeout
	}

	outerTimeout := cfg.OuterTimeout
	if outerTimeout <= 0 {
		outerTimeout = constants.DefaultEnrichTimeout
	}

	svc := &Service{
		classification: classification,
		entities:       entities,
		geolocation:    geolocation,
		engagement:     engagement,
		subCallTimeout: subCallTimeout,
		outerTimeout:   outerTimeout,
		logger:         log,
	}

	if cfg.Cache.Enabled && redisClient != nil {
		svc.cache = newRecordCache(redisClient, cfg.Cache.TTL, log)
	}

	return svc
}

// Enrich runs the four sub-services concurrently and assembles the record.
// The returned record may be partial; the error is non-nil only when every
// sub-service failed, which tells the caller to retry the whole attempt.
func (s *Service) Enrich(ctx context.Context, msg *models.MessageEnvelope) (*models.EnrichmentRecord, error) {
	tracer := tracing.GetTracer("pipeline-service")
	ctx, span := tracer.Start(ctx, "enrichment.enrich")
	defer span.End()

	if s.cache != nil {
		if record, ok := s.cache.get(ctx, msg.Text); ok {
			// Engagement is per envelope, not a function of the text, so it is
			// never cached: re-extract it from this envelope's metadata. An
			// extraction failure falls through to the full fan-out, which
			// already accounts for a failed engagement slot.
			if engagement, err := s.engagement.Extract(msg.RawMetadata); err == nil {
				record.Engagement = engagement
				s.logger.DebugwCtx(ctx, "Enrichment record served from cache",
					"identity", msg.Identity())
				return record, nil
			}
		}
	}

	if s.outerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.outerTimeout)
		defer cancel()
	}

	var (
		classification *models.Classification
		entities       *models.Entities
		geolocations   []models.Geolocation
		engagement     map[string]float64

		classificationErr error
		entitiesErr       error
		geolocationErr    error
		engagementErr     error
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		classificationErr = s.subCall(gCtx, models.SubServiceClassification, func(callCtx context.Context) error {
			var err error
			classification, err = s.classification.Classify(callCtx, msg.Text)
			return err
		})
		return nil
	})

	g.Go(func() error {
		entitiesErr = s.subCall(gCtx, models.SubServiceEntities, func(callCtx context.Context) error {
			var err error
			entities, err = s.entities.Extract(callCtx, msg.Text)
			return err
		})
		return nil
	})

	g.Go(func() error {
		geolocationErr = s.subCall(gCtx, models.SubServiceGeolocation, func(callCtx context.Context) error {
			var err error
			geolocations, err = s.geolocation.Locate(callCtx, msg.Text)
			return err
		})
		return nil
	})

	g.Go(func() error {
		engagementErr = s.subCall(gCtx, models.SubServiceEngagement, func(context.Context) error {
			var err error
			engagement, err = s.engagement.Extract(msg.RawMetadata)
			return err
		})
		return nil
	})

	// The closures capture their errors per slot and always return nil, so
	// Wait only joins the goroutines.
	_ = g.Wait()

	record := &models.EnrichmentRecord{}
	var failed []string
	var failures []string

	if classificationErr != nil {
		failed = append(failed, models.SubServiceClassification)
		failures = append(failures, fmt.Sprintf("%s: %v", models.SubServiceClassification, classificationErr))
	} else {
		record.Classification = classification
	}

	if entitiesErr != nil {
		failed = append(failed, models.SubServiceEntities)
		failures = append(failures, fmt.Sprintf("%s: %v", models.SubServiceEntities, entitiesErr))
	} else {
		record.Entities = entities
	}

	if geolocationErr != nil {
		failed = append(failed, models.SubServiceGeolocation)
		failures = append(failures, fmt.Sprintf("%s: %v", models.SubServiceGeolocation, geolocationErr))
	} else {
		record.Geolocations = geolocations
	}

	if engagementErr != nil {
		failed = append(failed, models.SubServiceEngagement)
		failures = append(failures, fmt.Sprintf("%s: %v", models.SubServiceEngagement, engagementErr))
	} else {
		record.Engagement = engagement
	}

	if len(failed) == subServiceCount {
		metrics.IncEnrichmentRecord(recordFailed)
		err := errors.Wrap(fmt.Errorf("%s", strings.Join(failures, "; ")), errors.ErrTotalEnrichmentFailure)
		s.logger.ErrorwCtx(ctx, "All enrichment sub-services failed",
			"identity", msg.Identity(),
			"error", err)
		return nil, err
	}

	record.FailedServices = failed
	completeness := recordComplete
	if record.Partial() {
		completeness = recordPartial
		s.logger.WarnwCtx(ctx, "Enrichment record is partial",
			"identity", msg.Identity(),
			"failed_services", failed)
	}
	metrics.IncEnrichmentRecord(completeness)

	if s.cache != nil && !record.Partial() {
		s.cache.put(ctx, msg.Text, record)
	}

	return record, nil
}

// subCall runs one sub-service call with a per-attempt timeout and at most
// one retry. The per-attempt context keeps a hung peer from eating the whole
// enrichment budget.
func (s *Service) subCall(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	policy := retry.Policy{
		MaxAttempts:     subCallAttempts,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		Multiplier:      2.0,
	}

	err := retry.Retry(ctx, policy, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.subCallTimeout)
		defer cancel()
		return fn(callCtx)
	})

	metrics.ObserveEnrichmentSubServiceDuration(name, time.Since(start))
	if err != nil {
		metrics.IncEnrichmentSubServiceRequest(name, "error")
		s.logger.WarnwCtx(ctx, "Enrichment sub-service failed",
			"sub_service", name,
			"error", err)
		return err
	}

	metrics.IncEnrichmentSubServiceRequest(name, "ok")
	return nil
}
