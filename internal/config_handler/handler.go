package config_handler

import (
	"context"
	"encoding/json"
	"sync"

	"argus/internal/logger"
	"argus/pkg/models"
)

// ConfigReloader re-reads rule definitions from their backing store and
// swaps the active snapshot.
type ConfigReloader interface {
	ReloadRules(ctx context.Context) error
}

// Handler dispatches config update events to the reloader registered for
// the event's service type. Events for unregistered services are ignored,
// so one consumer can serve a process hosting several rule engines.
type Handler struct {
	mu        sync.RWMutex
	reloaders map[string]ConfigReloader
	logger    logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	return &Handler{
		reloaders: make(map[string]ConfigReloader),
		logger:    log,
	}
}

func (h *Handler) Register(serviceType string, reloader ConfigReloader) *Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloaders[serviceType] = reloader
	return h
}

// HandleConfigUpdateEvent decodes a config update event and triggers the
// matching reloader. The signature matches the raw consumer handler.
func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, key, value []byte) error {
	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to unmarshal config event",
			"error", err,
			"key", string(key),
		)
		return err
	}

	if event.EventType == "" || event.ServiceType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing event_type or service_type",
			"key", string(key),
		)
		return nil
	}

	h.mu.RLock()
	reloader, ok := h.reloaders[event.ServiceType]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"service_type", event.ServiceType,
		"action", event.Action,
		"rule_id", event.RuleID,
	)

	if err := reloader.ReloadRules(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload rules after config update",
			"error", err,
			"service_type", event.ServiceType,
		)
		return err
	}

	h.logger.InfowCtx(ctx, "Rules reloaded after config update",
		"service_type", event.ServiceType,
		"action", event.Action,
	)

	return nil
}
