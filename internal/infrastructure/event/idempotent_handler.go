package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// IdempotencyStats counts outcomes of an IdempotentHandler.
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler skips events that a named handler already processed.
// The key is "<name>:<eventID>", so two handlers consuming the same event
// are tracked independently. An event is marked only after the wrapped
// handler succeeds; a failed event stays eligible for redelivery.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps handler under name.
func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	logger *zap.Logger,
) *IdempotentHandler {
	return &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger.Named("idempotent").With(zap.String("handler", name)),
	}
}

// Name returns the handler name used in idempotency keys.
func (h *IdempotentHandler) Name() string { return h.name }

// EventTypes delegates to the wrapped handler.
func (h *IdempotentHandler) EventTypes() []string { return h.handler.EventTypes() }

// Handle runs the wrapped handler unless the event was already processed.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, ev)
	}

	key := h.name + ":" + ev.EventID().String()
	log := h.logger.With(zap.String("event_id", ev.EventID().String()), zap.String("event_type", ev.EventType()))

	done, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		// a store outage must not drop events; handlers tolerate replays
		log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
	} else if done {
		h.duplicate.Add(1)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		log.Warn("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
