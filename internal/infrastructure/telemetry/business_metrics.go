package telemetry

import (
	"context"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics exports reservation-flow counters over OTLP.
type BusinessMetrics struct {
	seatHolds     *Counter
	seatsHeld     *Counter
	payments      *Counter
	paidAmount    *Counter
	pointOps      *Counter
	admissions    *Counter
	waitingLength *Gauge
}

// NewBusinessMetrics registers the instruments on meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	var (
		bm  BusinessMetrics
		err error
	)
	if bm.seatHolds, err = NewCounter(meter, "reservation.seat_hold.requests", "Seat hold requests by result", "{request}"); err != nil {
		return nil, err
	}
	if bm.seatsHeld, err = NewCounter(meter, "reservation.seats.held", "Seats successfully held", "{seat}"); err != nil {
		return nil, err
	}
	if bm.payments, err = NewCounter(meter, "payment.requests", "Payment requests by result", "{payment}"); err != nil {
		return nil, err
	}
	if bm.paidAmount, err = NewCounter(meter, "payment.paid_amount", "Points paid for reservations", "KRW"); err != nil {
		return nil, err
	}
	if bm.pointOps, err = NewCounter(meter, "point.operations", "Point wallet operations by type and result", "{operation}"); err != nil {
		return nil, err
	}
	if bm.admissions, err = NewCounter(meter, "waiting.admissions", "Users admitted from the waiting queue", "{user}"); err != nil {
		return nil, err
	}
	if bm.waitingLength, err = NewGauge(meter, "waiting.queue.length", "Users waiting per schedule", "{user}"); err != nil {
		return nil, err
	}
	return &bm, nil
}

func (bm *BusinessMetrics) SeatHold(ctx context.Context, result string, seats int) {
	bm.seatHolds.Inc(ctx, AttrResult.String(result))
	if result == appshared.ResultSuccess && seats > 0 {
		bm.seatsHeld.Add(ctx, int64(seats))
	}
}

func (bm *BusinessMetrics) Payment(ctx context.Context, result string, paidAmount int64) {
	bm.payments.Inc(ctx, AttrResult.String(result))
	if result == appshared.ResultSuccess && paidAmount > 0 {
		bm.paidAmount.Add(ctx, paidAmount)
	}
}

func (bm *BusinessMetrics) PointOperation(ctx context.Context, operation, result string) {
	bm.pointOps.Inc(ctx, AttrOperation.String(operation), AttrResult.String(result))
}

func (bm *BusinessMetrics) Admission(ctx context.Context, _ uuid.UUID, admitted int) {
	if admitted > 0 {
		bm.admissions.Add(ctx, int64(admitted))
	}
}

func (bm *BusinessMetrics) WaitingSize(ctx context.Context, scheduleID uuid.UUID, size int64) {
	bm.waitingLength.Record(ctx, size, AttrScheduleID.String(scheduleID.String()))
}

var _ appshared.Metrics = (*BusinessMetrics)(nil)
