package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Outbox dispatch outcomes reported to an OutboxObserver.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
	OutcomeDead   = "dead"
)

// OutboxObserver is notified of each entry's dispatch outcome.
type OutboxObserver interface {
	ObserveOutbox(outcome string)
}

// OutboxProcessorConfig controls polling.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupRetention time.Duration
}

// DefaultOutboxProcessorConfig returns the defaults used when config is empty.
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     time.Second,
		CleanupRetention: 7 * 24 * time.Hour,
	}
}

// OutboxProcessor polls the outbox and replays entries through the event bus.
// Delivery is at-least-once; handlers are expected to be idempotent.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	observer   OutboxObserver

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a processor. A nil observer disables reporting.
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
	observer OutboxObserver,
) *OutboxProcessor {
	def := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.CleanupRetention <= 0 {
		config.CleanupRetention = def.CleanupRetention
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
		observer:   observer,
	}
}

// Start launches the poll loop. Cleanup is scheduled separately.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loop and waits for the current batch.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Outbox poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce dispatches one batch of pending entries and one batch of due
// retries, returning how many entries were claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		return 0, err
	}
	n, err := p.processEntries(ctx, pending)
	if err != nil {
		return n, err
	}

	retryable, err := p.repo.FindRetryable(ctx, time.Now().UTC(), p.config.BatchSize)
	if err != nil {
		return n, err
	}
	m, err := p.processEntries(ctx, retryable)
	return n + m, err
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, entry := range claimed {
		p.processEntry(ctx, entry)
	}
	return len(claimed), nil
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}
	if err != nil {
		entry.MarkFailed(err.Error())
		outcome := OutcomeFailed
		if entry.IsDead() {
			outcome = OutcomeDead
			log.Warn("Outbox entry moved to dead letter",
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("retry_count", entry.RetryCount),
				zap.Error(err),
			)
		} else {
			log.Warn("Outbox dispatch failed", zap.Int("retry_count", entry.RetryCount), zap.Error(err))
		}
		p.observe(outcome)
		if uerr := p.repo.Update(ctx, entry); uerr != nil {
			log.Error("Failed to record outbox failure", zap.Error(uerr))
		}
		return
	}

	entry.MarkSent()
	p.observe(OutcomeSent)
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("Failed to mark outbox entry sent", zap.Error(err))
		return
	}
	log.Debug("Outbox entry dispatched")
}

func (p *OutboxProcessor) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObserveOutbox(outcome)
	}
}

// Cleanup deletes SENT entries older than the configured retention.
func (p *OutboxProcessor) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		p.logger.Info("Outbox cleaned up", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return nil
}

// Backlog reports the number of entries per status.
func (p *OutboxProcessor) Backlog(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	return p.repo.CountByStatus(ctx)
}
