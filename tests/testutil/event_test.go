package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler("payment.completed")
	assert.Equal(t, []string{"payment.completed"}, h.EventTypes())

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, NewTestEvent("payment.completed")))
	require.NoError(t, h.Handle(ctx, NewTestEvent("payment.cancelled")))

	assert.Equal(t, 1, h.Count("payment.completed"))
	assert.Equal(t, 2, h.Count(""))
	assert.Len(t, h.Handled(), 2)

	boom := errors.New("boom")
	h.FailWith(boom)
	assert.ErrorIs(t, h.Handle(ctx, NewTestEvent("payment.completed")), boom)
	assert.Equal(t, 2, h.Count("payment.completed"))
}

func TestRecordingHandler_WaitFor(t *testing.T) {
	h := NewRecordingHandler()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = h.Handle(context.Background(), NewTestEvent("seat.held"))
	}()
	h.WaitFor(t, "seat.held", 1, time.Second)
}

func TestNewTestEvent(t *testing.T) {
	ev := NewTestEvent("seat.held")
	assert.Equal(t, "seat.held", ev.EventType())
	assert.Equal(t, "TestAggregate", ev.AggregateType())
	assert.NotEqual(t, ev.EventID(), NewTestEvent("seat.held").EventID())
	assert.False(t, ev.OccurredAt().IsZero())
}
