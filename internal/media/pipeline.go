package media

import (
	"context"
	"fmt"

	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Pipeline fetches an envelope's media references and content-addresses
// them. Any fetch or store failure fails the whole attempt: a StoredMessage
// must never silently reference media that was dropped on the floor.
type Pipeline struct {
	fetcher *Fetcher
	store   Store
	logger  logger.Logger
}

func NewPipeline(fetcher *Fetcher, store Store, log logger.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		logger:  log,
	}
}

// Process returns the content addresses for msg.MediaRefs in reference
// order. Re-running it for the same envelope is safe: identical bytes land
// on identical addresses and repeat puts are no-ops.
func (p *Pipeline) Process(ctx context.Context, msg *models.MessageEnvelope) ([]string, error) {
	if len(msg.MediaRefs) == 0 {
		return nil, nil
	}

	addresses := make([]string, 0, len(msg.MediaRefs))
	for _, ref := range msg.MediaRefs {
		data, ext, err := p.fetcher.Fetch(ctx, ref)
		if err != nil {
			metrics.IncMediaFetch("error")
			return nil, fmt.Errorf("fetch %s: %w", ref, err)
		}
		metrics.IncMediaFetch("ok")
		metrics.ObserveMediaBytesFetched(len(data))

		address, err := p.store.Put(ctx, data, ext)
		if err != nil {
			metrics.IncMediaStorePut("error")
			return nil, fmt.Errorf("store %s: %w", ref, err)
		}
		metrics.IncMediaStorePut("ok")

		p.logger.DebugwCtx(ctx, "Media reference content-addressed",
			"identity", msg.Identity(),
			"ref", ref,
			"address", address,
			"bytes", len(data))
		addresses = append(addresses, address)
	}

	return addresses, nil
}
