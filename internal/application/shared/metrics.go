package shared

import (
	"context"

	"github.com/google/uuid"
)

// Result labels shared by every Metrics implementation.
const (
	ResultSuccess     = "success"
	ResultFailed      = "failed"
	ResultDuplicate   = "duplicate"
	ResultUnavailable = "unavailable"
	ResultReplayed    = "replayed"
)

// Metrics records business outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SeatHold(ctx context.Context, result string, seats int)
	Payment(ctx context.Context, result string, paidAmount int64)
	PointOperation(ctx context.Context, operation, result string)
	Admission(ctx context.Context, scheduleID uuid.UUID, admitted int)
	WaitingSize(ctx context.Context, scheduleID uuid.UUID, size int64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SeatHold(context.Context, string, int)          {}
func (NopMetrics) Payment(context.Context, string, int64)         {}
func (NopMetrics) PointOperation(context.Context, string, string) {}
func (NopMetrics) Admission(context.Context, uuid.UUID, int)      {}
func (NopMetrics) WaitingSize(context.Context, uuid.UUID, int64)  {}

// MultiMetrics fans every call out to each recorder.
type MultiMetrics []Metrics

func (m MultiMetrics) SeatHold(ctx context.Context, result string, seats int) {
	for _, r := range m {
		r.SeatHold(ctx, result, seats)
	}
}

func (m MultiMetrics) Payment(ctx context.Context, result string, paidAmount int64) {
	for _, r := range m {
		r.Payment(ctx, result, paidAmount)
	}
}

func (m MultiMetrics) PointOperation(ctx context.Context, operation, result string) {
	for _, r := range m {
		r.PointOperation(ctx, operation, result)
	}
}

func (m MultiMetrics) Admission(ctx context.Context, scheduleID uuid.UUID, admitted int) {
	for _, r := range m {
		r.Admission(ctx, scheduleID, admitted)
	}
}

func (m MultiMetrics) WaitingSize(ctx context.Context, scheduleID uuid.UUID, size int64) {
	for _, r := range m {
		r.WaitingSize(ctx, scheduleID, size)
	}
}

// MetricsOrNop returns m, or NopMetrics when m is nil.
func MetricsOrNop(m Metrics) Metrics {
	if m == nil {
		return NopMetrics{}
	}
	return m
}

var (
	_ Metrics = NopMetrics{}
	_ Metrics = MultiMetrics(nil)
)
