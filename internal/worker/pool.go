package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/internal/queue"
	"argus/pkg/errors"
	"argus/pkg/logging"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// stateFailed is the terminal-state label for deliveries that got nacked.
const stateFailed = "failed"

// claimBackoff throttles the claim loop after a queue error so a Redis
// outage does not spin the workers hot.
const claimBackoff = time.Second

// Pool runs N independent claim-process-ack loops against one consumer
// group. Workers share nothing but the queue and the stage collaborators,
// all safe for concurrent use; the consumer-group claim is the only
// cross-worker synchronization.
type Pool struct {
	queue     *queue.Queue
	processor *Processor
	cfg       config.WorkerConfig
	logger    logger.Logger
}

func NewPool(q *queue.Queue, processor *Processor, cfg config.WorkerConfig, log logger.Logger) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = constants.DefaultWorkerCount
	}
	if cfg.ClaimBatchSize <= 0 {
		cfg.ClaimBatchSize = constants.DefaultClaimBatchSize
	}
	if cfg.ClaimBlock <= 0 {
		cfg.ClaimBlock = constants.DefaultClaimBlock
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = constants.DefaultProcessTimeout
	}

	return &Pool{
		queue:     q,
		processor: processor,
		cfg:       cfg,
		logger:    log,
	}
}

// Run blocks until ctx is cancelled and every worker has drained its
// in-flight batch. Consumer names are stable per instance+index so the
// queue's pending-entries bookkeeping survives restarts.
func (p *Pool) Run(ctx context.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "pipeline"
	}

	p.logger.Infow("Starting worker pool",
		"workers", p.cfg.Count,
		"claim_batch_size", p.cfg.ClaimBatchSize,
		"claim_block", p.cfg.ClaimBlock)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Count; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", hostname, i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}

	wg.Wait()
	p.logger.Infow("Worker pool stopped")
	return nil
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	p.logger.Infow("Worker started", "worker_id", workerID)

	for {
		select {
		case <-ctx.Done():
			p.logger.Infow("Worker stopping", "worker_id", workerID)
			return
		default:
		}

		deliveries, err := p.queue.Claim(ctx, workerID, p.cfg.ClaimBatchSize, p.cfg.ClaimBlock)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Infow("Worker stopping", "worker_id", workerID)
				return
			}
			p.logger.Errorw("Claim failed, backing off",
				"worker_id", workerID,
				"error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(claimBackoff):
			}
			continue
		}

		for i := range deliveries {
			p.handleDelivery(ctx, workerID, deliveries[i])
		}
	}
}

// handleDelivery runs one envelope on its own budget. Loop cancellation must
// not turn claimed work into spurious nacks, so processing detaches from the
// claim context and is bounded by ProcessTimeout instead.
func (p *Pool) handleDelivery(ctx context.Context, workerID string, d queue.Delivery) {
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.ProcessTimeout)
	defer cancel()

	procCtx = logging.WithWorkerID(procCtx, workerID)
	procCtx = logging.WithMessageID(procCtx, d.Envelope.Identity())
	if d.Envelope.TraceID != "" {
		procCtx = logging.WithTraceID(procCtx, d.Envelope.TraceID)
	}

	start := time.Now()
	state, err := p.safeProcess(procCtx, &d.Envelope)
	duration := time.Since(start)

	if err != nil {
		metrics.IncPipelineMessage(stateFailed)
		metrics.ObservePipelineDuration(duration, stateFailed)
		p.logger.ErrorwCtx(procCtx, "Envelope processing failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)

		if nackErr := p.queue.Nack(procCtx, d, err); nackErr != nil {
			p.logger.ErrorwCtx(procCtx, "Nack failed; claim-timeout reclamation will recover the delivery",
				"error", nackErr)
		}
		return
	}

	if ackErr := p.queue.Ack(procCtx, d); ackErr != nil {
		// The upsert already happened and is idempotent, so the coming
		// redelivery converges on the same stored document.
		p.logger.ErrorwCtx(procCtx, "Ack failed after successful processing",
			"error", ackErr)
		return
	}

	metrics.IncPipelineMessage(state)
	metrics.ObservePipelineDuration(duration, state)
	p.logger.InfowCtx(procCtx, "Envelope processed",
		"state", state,
		"duration_ms", duration.Milliseconds())
}

func (p *Pool) safeProcess(ctx context.Context, msg *models.MessageEnvelope) (state string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
		}
	}()
	return p.processor.Process(ctx, msg)
}
