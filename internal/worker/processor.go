package worker

import (
	"context"
	"fmt"
	"time"

	"argus/internal/logger"
	"argus/pkg/models"
	"argus/pkg/tracing"
)

// Stage collaborators, narrowed to what the processor calls so each one can
// be stubbed in tests.
type SpamChecker interface {
	Check(ctx context.Context, msg *models.MessageEnvelope) (models.SpamVerdict, error)
}

type MediaProcessor interface {
	Process(ctx context.Context, msg *models.MessageEnvelope) ([]string, error)
}

type Enricher interface {
	Enrich(ctx context.Context, msg *models.MessageEnvelope) (*models.EnrichmentRecord, error)
}

type Router interface {
	Route(text string, topics []string) models.RoutingDecision
	DefaultPartition() string
}

type MessageWriter interface {
	Upsert(ctx context.Context, msg *models.StoredMessage) error
}

// Processor runs the per-envelope pipeline: spam gate, media content
// addressing, enrichment, routing, terminal upsert. It holds no state across
// envelopes; retry bookkeeping lives in the queue.
type Processor struct {
	spam     SpamChecker
	media    MediaProcessor
	enricher Enricher
	router   Router
	writer   MessageWriter
	logger   logger.Logger
}

func NewProcessor(
	spam SpamChecker,
	media MediaProcessor,
	enricher Enricher,
	router Router,
	writer MessageWriter,
	log logger.Logger,
) *Processor {
	return &Processor{
		spam:     spam,
		media:    media,
		enricher: enricher,
		router:   router,
		writer:   writer,
		logger:   log,
	}
}

// Process returns the terminal state the envelope reached, or the error that
// must nack the delivery. Every step is idempotent under redelivery, so a
// crash anywhere between claim and ack only costs a repeat run.
func (p *Processor) Process(ctx context.Context, msg *models.MessageEnvelope) (string, error) {
	ctx, span := tracing.GetTracer("pipeline-service").Start(ctx, "worker.process")
	defer span.End()

	verdict, err := p.spam.Check(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("spam check: %w", err)
	}

	stored := models.NewStoredMessage(msg)
	stored.Verdict = verdict

	if verdict.IsSpam {
		// Spam short-circuits the pipeline: no media fetch, no enrichment,
		// no trigger/topic routing. The minimal record lands on the router's
		// configured default partition and is distinguished by its state.
		stored.Routing = models.RoutingDecision{
			TargetPartition: p.router.DefaultPartition(),
			DecidedAt:       time.Now().UTC(),
		}
		stored.State = stored.ResolveState()

		if err := p.writer.Upsert(ctx, stored); err != nil {
			return "", fmt.Errorf("upsert spam message: %w", err)
		}

		p.logger.DebugwCtx(ctx, "Envelope marked as spam",
			"identity", msg.Identity(),
			"confidence", verdict.Confidence,
			"matched_rules", verdict.MatchedRules)
		return stored.State, nil
	}

	addresses, err := p.media.Process(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	stored.MediaHashes = addresses

	record, err := p.enricher.Enrich(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("enrich: %w", err)
	}
	stored.Enrichment = record

	stored.Routing = p.router.Route(msg.Text, record.TopicSet())
	stored.State = stored.ResolveState()

	if err := p.writer.Upsert(ctx, stored); err != nil {
		return "", fmt.Errorf("upsert: %w", err)
	}

	return stored.State, nil
}
