package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *countingObserver) ObserveOutbox(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

type processorFixture struct {
	db        *gorm.DB
	repo      *GormOutboxRepository
	bus       *InMemoryEventBus
	publisher *OutboxPublisher
	observer  *countingObserver
	processor *OutboxProcessor
}

func newProcessorFixture(t *testing.T, maxRetries int) *processorFixture {
	t.Helper()
	db := setupOutboxDB(t)
	s := NewEventSerializer()
	RegisterAllEvents(s)
	f := &processorFixture{
		db:        db,
		repo:      NewGormOutboxRepository(db),
		bus:       NewInMemoryEventBus(zap.NewNop()),
		publisher: NewOutboxPublisher(s, maxRetries),
		observer:  &countingObserver{},
	}
	f.processor = NewOutboxProcessor(f.repo, f.bus, s, OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
	}, zap.NewNop(), f.observer)
	return f
}

func (f *processorFixture) publish(t *testing.T, events ...shared.DomainEvent) {
	t.Helper()
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.publisher.PublishWithTx(context.Background(), tx, events...)
	}))
}

func TestOutboxProcessor_ProcessOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches pending entries and marks them sent", func(t *testing.T) {
		f := newProcessorFixture(t, 0)
		h := newTestHandler(point.EventTypeCompensatePayment)
		f.bus.Subscribe(h)

		ev := point.NewCompensatePaymentEvent(uuid.New(), uuid.New(), 100, "r")
		f.publish(t, ev)

		n, err := f.processor.ProcessOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Equal(t, 1, h.count())
		assert.Equal(t, ev.EventID(), h.handled[0].EventID())

		counts, err := f.processor.Backlog(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
		assert.Equal(t, 1, f.observer.outcomes[OutcomeSent])

		n, err = f.processor.ProcessOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("handler failure schedules retry then dead letter", func(t *testing.T) {
		f := newProcessorFixture(t, 2)
		h := newTestHandler(payment.EventTypePaymentRefunded)
		h.err = errors.New("downstream unavailable")
		f.bus.Subscribe(h)

		p := &payment.PaymentRefundedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(payment.EventTypePaymentRefunded, payment.AggregateTypePayment, uuid.New()),
		}
		f.publish(t, p)

		_, err := f.processor.ProcessOnce(ctx)
		require.NoError(t, err)
		counts, _ := f.repo.CountByStatus(ctx)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

		// make the retry due now
		require.NoError(t, f.db.Exec("UPDATE outbox_events SET next_retry_at = ?", time.Now().UTC().Add(-time.Second)).Error)

		_, err = f.processor.ProcessOnce(ctx)
		require.NoError(t, err)
		counts, _ = f.repo.CountByStatus(ctx)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
		assert.Equal(t, 2, h.count())
		assert.Equal(t, 1, f.observer.outcomes[OutcomeFailed])
		assert.Equal(t, 1, f.observer.outcomes[OutcomeDead])
	})

	t.Run("unknown event type fails the entry", func(t *testing.T) {
		f := newProcessorFixture(t, 0)
		require.NoError(t, f.repo.Save(ctx, shared.NewOutboxEntry(newTestEvent("Unregistered"), []byte(`{}`))))

		_, err := f.processor.ProcessOnce(ctx)
		require.NoError(t, err)

		counts, _ := f.repo.CountByStatus(ctx)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
	})
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, 0)

	e := newEntry(t, "A")
	e.MarkSent()
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	e.ProcessedAt = &old
	require.NoError(t, f.repo.Save(ctx, e))

	require.NoError(t, f.processor.Cleanup(ctx))
	counts, err := f.repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(t, 0)
	h := newTestHandler(point.EventTypePointRewardFailed)
	f.bus.Subscribe(h)
	f.publish(t, point.NewPointRewardFailedEvent(uuid.New(), uuid.New(), 10, "x"))

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool { return h.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(ctx))
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	p := NewOutboxProcessor(nil, nil, nil, OutboxProcessorConfig{}, zap.NewNop(), nil)
	assert.Equal(t, DefaultOutboxProcessorConfig(), p.config)
}
