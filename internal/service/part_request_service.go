package service

import (
	"context"
	"strings"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Part requests ────────────────────────────────────────────────────────────
// While any request of an order is open the order stays in awaiting_parts.
// Closing returns it to in_progress only when the open count reaches zero.

func (s *orderService) OpenPartRequest(ctx context.Context, orderID uuid.UUID, req dto.OpenPartRequestRequest) (*model.PartRequest, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apierror.Validation("description", "description is required")
	}

	pr := &model.PartRequest{OrderID: orderID, Description: desc, Status: model.PartRequestOpen}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderInProgress && order.Status != model.OrderAwaitingParts {
			return apierror.ErrInvalidTransition.WithMessage("parts can only be requested while the order is in progress")
		}
		if err := s.orders.CreatePartRequestTx(tx, pr); err != nil {
			return err
		}
		if order.Status == model.OrderInProgress {
			return s.orders.UpdateStatusTx(tx, orderID, model.OrderAwaitingParts, nil, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func (s *orderService) ClosePartRequest(ctx context.Context, partRequestID uuid.UUID) (*model.PartRequest, error) {
	var pr *model.PartRequest
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		found, err := s.orders.FindPartRequestTx(tx, partRequestID)
		if err != nil {
			return err
		}
		// Order row first, same lock order as every other order mutation.
		order, err := s.orders.LockByIDTx(tx, found.OrderID)
		if err != nil {
			return err
		}
		pr, err = s.orders.LockPartRequestTx(tx, partRequestID)
		if err != nil {
			return err
		}
		if pr.Status == model.PartRequestClosed {
			return apierror.ErrPartRequestClosed
		}

		now := time.Now().UTC()
		if err := s.orders.ClosePartRequestTx(tx, pr.ID, now); err != nil {
			return err
		}
		pr.Status = model.PartRequestClosed
		pr.ClosedAt = &now

		open, err := s.orders.CountOpenPartRequestsTx(tx, order.ID)
		if err != nil {
			return err
		}
		if open == 0 && order.Status == model.OrderAwaitingParts {
			return s.orders.UpdateStatusTx(tx, order.ID, model.OrderInProgress, nil, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}
