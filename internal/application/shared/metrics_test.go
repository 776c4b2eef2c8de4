package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type countingMetrics struct {
	calls int
}

func (c *countingMetrics) SeatHold(context.Context, string, int)          { c.calls++ }
func (c *countingMetrics) Payment(context.Context, string, int64)         { c.calls++ }
func (c *countingMetrics) PointOperation(context.Context, string, string) { c.calls++ }
func (c *countingMetrics) Admission(context.Context, uuid.UUID, int)      { c.calls++ }
func (c *countingMetrics) WaitingSize(context.Context, uuid.UUID, int64)  { c.calls++ }

func TestMultiMetricsFansOut(t *testing.T) {
	var a, b countingMetrics
	m := MultiMetrics{&a, &b}
	ctx := context.Background()

	m.SeatHold(ctx, ResultSuccess, 2)
	m.Payment(ctx, ResultFailed, 0)
	m.Admission(ctx, uuid.New(), 3)

	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
}

func TestMetricsOrNop(t *testing.T) {
	assert.IsType(t, NopMetrics{}, MetricsOrNop(nil))
	c := &countingMetrics{}
	assert.Same(t, c, MetricsOrNop(c))
}
