package service

import (
	"context"
	"fmt"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/event"
	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TransitionResult reports a committed status change. Warnings hold the
// side effects that failed after commit.
type TransitionResult struct {
	Order    *model.Order
	Previous model.OrderStatus
	Changed  bool
	Payment  *model.Payment
	Warnings []string
}

// ── Transition ───────────────────────────────────────────────────────────────
//   1. TX: lock order, validate against the transition table, write status
//      (closing timestamp and totals when entering finalized)
//   2. after commit: services_finished → notification
//                    finalized        → payment in its own TX, then notification

func (s *orderService) Transition(ctx context.Context, orderID uuid.UUID, req dto.TransitionRequest) (*TransitionResult, error) {
	next := model.OrderStatus(req.Status)
	if !next.Valid() {
		return nil, apierror.Validation("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	res := &TransitionResult{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		res.Previous = order.Status
		res.Changed = order.Status != next

		switch {
		case !res.Changed:
			if req.ResponsibleID != nil {
				if err := s.orders.UpdateStatusTx(tx, orderID, order.Status, req.ResponsibleID, nil); err != nil {
					return err
				}
			}
		case !order.Status.CanTransitionTo(next):
			return apierror.ErrInvalidTransition.WithMessage(
				fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
		case order.Status == model.OrderAwaitingParts && next == model.OrderInProgress:
			open, err := s.orders.CountOpenPartRequestsTx(tx, orderID)
			if err != nil {
				return err
			}
			if open > 0 {
				return apierror.ErrInvalidTransition.WithMessage(
					fmt.Sprintf("order has %d open part requests", open))
			}
			if err := s.orders.UpdateStatusTx(tx, orderID, next, req.ResponsibleID, nil); err != nil {
				return err
			}
		default:
			var closedAt *time.Time
			if next == model.OrderFinalized {
				now := time.Now().UTC()
				closedAt = &now
			}
			if err := s.orders.UpdateStatusTx(tx, orderID, next, req.ResponsibleID, closedAt); err != nil {
				return err
			}
			if next == model.OrderFinalized {
				if _, err := recomputeTotals(tx, s.orders, orderID, adjustments{}); err != nil {
					return err
				}
			}
		}

		res.Order, err = s.orders.FindByIDTx(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !res.Changed {
		return res, nil
	}
	log.Info().
		Str("order_id", orderID.String()).
		Str("from", string(res.Previous)).
		Str("to", string(next)).
		Msg("order status changed")

	switch next {
	case model.OrderServicesFinished:
		res.Warnings = append(res.Warnings, publish(ctx, s.events, event.New(event.OrderServicesFinished, orderID, map[string]any{
			"client_id": res.Order.ClientID.String(),
			"total":     res.Order.Total.StringFixed(2),
		}))...)
	case model.OrderFinalized:
		s.afterFinalize(ctx, res)
	}
	return res, nil
}

// afterFinalize creates the payment and emits the notification. Neither can
// undo the committed status.
func (s *orderService) afterFinalize(ctx context.Context, res *TransitionResult) {
	order := res.Order

	var registerID *uuid.UUID
	reg, err := s.registers.FindOpenByEstablishment(ctx, order.EstablishmentID)
	switch {
	case err == nil:
		registerID = &reg.ID
	case !apierror.IsNotFound(err):
		log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("open register lookup failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("open cash register lookup failed: %v", err))
	}

	out, err := s.payments.CreateOnFinalize(ctx, dto.CreatePaymentRequest{
		OrderID:        order.ID,
		ClientID:       order.ClientID,
		TotalAmount:    order.Total,
		CashRegisterID: registerID,
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("payment generation failed after finalize")
		res.Warnings = append(res.Warnings, fmt.Sprintf("payment not generated: %v", err))
	} else {
		res.Payment = out.Payment
		res.Warnings = append(res.Warnings, out.Warnings...)
	}

	res.Warnings = append(res.Warnings, publish(ctx, s.events, event.New(event.OrderFinalized, order.ID, map[string]any{
		"client_id": order.ClientID.String(),
		"total":     order.Total.StringFixed(2),
	}))...)
}
