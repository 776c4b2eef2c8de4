package event

import (
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
)

// RegisterAllEvents registers every event type the outbox may carry.
func RegisterAllEvents(s *EventSerializer) {
	s.Register(payment.EventTypePaymentCompleted, &payment.PaymentCompletedEvent{})
	s.Register(payment.EventTypeReservationCompleted, &payment.ReservationCompletedEvent{})
	s.Register(payment.EventTypePaymentRefunded, &payment.PaymentRefundedEvent{})

	s.Register(point.EventTypePointRewardCompleted, &point.PointRewardCompletedEvent{})
	s.Register(point.EventTypePointRewardFailed, &point.PointRewardFailedEvent{})
	s.Register(point.EventTypeCompensatePayment, &point.CompensatePaymentEvent{})
}
