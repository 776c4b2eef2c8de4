package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEntry_IsDead(t *testing.T) {
	t.Run("returns true for dead entries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusDead}
		assert.True(t, entry.IsDead())
	})

	t.Run("returns false for non-dead entries", func(t *testing.T) {
		testCases := []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		}

		for _, status := range testCases {
			entry := &OutboxEntry{Status: status}
			assert.False(t, entry.IsDead())
		}
	})
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		Status:     OutboxStatusProcessing,
		RetryCount: 4, // Already retried 4 times
		MaxRetries: 5,
	}

	entry.MarkFailed("final error")

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, 5, entry.RetryCount)
	assert.Equal(t, "final error", entry.LastError)
	assert.True(t, entry.IsDead())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		Status:     OutboxStatusProcessing,
		RetryCount: 0,
		MaxRetries: 5,
	}

	// First failure: 1s backoff
	entry.MarkFailed("error 1")
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.NotNil(t, entry.NextRetryAt)
	firstBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, firstBackoff > 0 && firstBackoff <= 2*time.Second)

	// Second failure: 2s backoff
	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 2")
	assert.Equal(t, 2, entry.RetryCount)
	secondBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, secondBackoff > time.Second && secondBackoff <= 3*time.Second)

	// Third failure: 4s backoff
	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 3")
	assert.Equal(t, 3, entry.RetryCount)
	thirdBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, thirdBackoff > 3*time.Second && thirdBackoff <= 5*time.Second)
}

func TestNewOutboxEntry_CopiesEventMetadata(t *testing.T) {
	aggID := uuid.New()
	base := NewBaseDomainEvent("PaymentCompleted", "Payment", aggID)

	entry := NewOutboxEntry(&base, []byte(`{"k":"v"}`))

	assert.Equal(t, base.ID, entry.EventID)
	assert.Equal(t, "PaymentCompleted", entry.EventType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, "Payment", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusPending}
	assert.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)

	sent := &OutboxEntry{Status: OutboxStatusSent}
	assert.Error(t, sent.MarkProcessing())
}

func TestOutboxEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name   string
		status OutboxStatus
		count  int
		want   bool
	}{
		{"pending", OutboxStatusPending, 0, false},
		{"failed with retries left", OutboxStatusFailed, 2, true},
		{"failed at max", OutboxStatusFailed, DefaultMaxRetries, false},
		{"sent", OutboxStatusSent, 0, false},
		{"dead", OutboxStatusDead, DefaultMaxRetries, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &OutboxEntry{Status: tt.status, RetryCount: tt.count, MaxRetries: DefaultMaxRetries}
			assert.Equal(t, tt.want, e.CanRetry())
		})
	}
}

func TestOutboxEntry_Requeue(t *testing.T) {
	base := NewBaseDomainEvent("PaymentCompleted", "Payment", uuid.New())
	entry := NewOutboxEntry(&base, nil)
	assert.Error(t, entry.Requeue())

	entry.MaxRetries = 1
	entry.MarkFailed("boom")
	require.True(t, entry.IsDead())

	require.NoError(t, entry.Requeue())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)
	assert.Nil(t, entry.NextRetryAt)
}
