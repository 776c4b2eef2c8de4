package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"go.uber.org/zap"
)

// CompensationHandler refunds payments whose reward could not be credited
type CompensationHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewCompensationHandler creates the CompensatePayment handler
func NewCompensationHandler(service *Service, logger *zap.Logger) *CompensationHandler {
	return &CompensationHandler{service: service, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *CompensationHandler) EventTypes() []string {
	return []string{point.EventTypeCompensatePayment}
}

// Handle implements shared.EventHandler. A payment that is no longer
// refundable counts as compensated; other business errors are logged and
// dropped, infrastructure errors go back to the outbox for retry.
func (h *CompensationHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	e, ok := ev.(*point.CompensatePaymentEvent)
	if !ok {
		return fmt.Errorf("compensation handler: unexpected event %T", ev)
	}
	_, err := h.service.refund(ctx, e.PaymentID, nil, "compensation: "+e.Reason)
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrInvalidState) {
		h.logger.Info("Payment already compensated", zap.String("payment_id", e.PaymentID.String()))
		return nil
	}
	if _, business := shared.AsDomainError(err); business {
		h.logger.Error("Payment compensation rejected",
			zap.String("payment_id", e.PaymentID.String()),
			zap.Error(err),
		)
		return nil
	}
	return err
}
