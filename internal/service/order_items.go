package service

import (
	"context"
	"strings"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ── AddItem ──────────────────────────────────────────────────────────────────
// Retryable transaction:
//   1. lock the order row
//   2. lock the active rows of (order, catalog item) ordered by id
//   3. service: reject a second row; product: merge into the lowest id row
//   4. fold in any duplicate that raced in, recompute totals

func (s *orderService) AddItem(ctx context.Context, orderID uuid.UUID, req dto.AddItemRequest) (*model.OrderItem, error) {
	if req.Quantity <= 0 {
		return nil, apierror.Validation("quantity", "quantity must be greater than zero")
	}
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	cat, err := s.catalog.GetItem(ctx, req.CatalogItemID)
	if err != nil {
		return nil, err
	}
	if !cat.Active {
		return nil, apierror.Validation("catalog_item_id", "catalog item is inactive")
	}
	if cat.Kind == model.ItemService && req.Quantity != 1 {
		return nil, apierror.Validation("quantity", "a service is added one unit at a time")
	}

	var result model.OrderItem
	err = s.store.RetryTransaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apierror.ErrOrderClosed
		}

		rows, err := s.orders.LockItemsTx(tx, orderID, cat.ID)
		if err != nil {
			return err
		}

		switch {
		case cat.Kind == model.ItemService && len(rows) > 0:
			return apierror.ErrDuplicateService
		case len(rows) > 0:
			kept, err := s.mergeRows(tx, rows, req.Quantity)
			if err != nil {
				return err
			}
			result = *kept
		default:
			catalogID := cat.ID
			it := model.OrderItem{
				OrderID:       orderID,
				CatalogItemID: &catalogID,
				Description:   cat.Name,
				Kind:          cat.Kind,
				UnitPrice:     cat.Price,
				Status:        model.ItemActive,
			}
			it.Resize(req.Quantity)
			if err := s.orders.CreateItemTx(tx, &it); err != nil {
				return err
			}
			result = it
		}

		if kept, err := s.consolidate(tx, orderID, cat.ID); err != nil {
			return err
		} else if kept != nil {
			result = *kept
		}

		_, err = recomputeTotals(tx, s.orders, orderID, adjustments{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ── AddAdHocItem ─────────────────────────────────────────────────────────────
// Ad-hoc lines have no catalog reference and are never consolidated.

func (s *orderService) AddAdHocItem(ctx context.Context, orderID uuid.UUID, req dto.AddAdHocItemRequest) (*model.OrderItem, error) {
	kind := model.ItemKind(req.Kind)
	switch {
	case strings.TrimSpace(req.Description) == "":
		return nil, apierror.Validation("description", "description is required")
	case !kind.Valid():
		return nil, apierror.Validation("kind", "kind must be product or service")
	case req.Quantity <= 0:
		return nil, apierror.Validation("quantity", "quantity must be greater than zero")
	case kind == model.ItemService && req.Quantity != 1:
		return nil, apierror.Validation("quantity", "a service is added one unit at a time")
	case req.UnitPrice.IsNegative():
		return nil, apierror.Validation("unit_price", "unit price cannot be negative")
	}

	it := model.OrderItem{
		OrderID:     orderID,
		Description: strings.TrimSpace(req.Description),
		Kind:        kind,
		UnitPrice:   req.UnitPrice.Round(2),
		Status:      model.ItemActive,
	}
	it.Resize(req.Quantity)

	err := s.store.RetryTransaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apierror.ErrOrderClosed
		}
		it.ID = uuid.Nil
		if err := s.orders.CreateItemTx(tx, &it); err != nil {
			return err
		}
		_, err = recomputeTotals(tx, s.orders, orderID, adjustments{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ── RemoveItem ───────────────────────────────────────────────────────────────
// Consolidates the row's duplicates first, then takes one unit off the
// surviving row. A row reaching zero is deleted.

func (s *orderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.OrderItem, error) {
	var result *model.OrderItem
	err := s.store.RetryTransaction(ctx, func(tx *gorm.DB) error {
		result = nil
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apierror.ErrOrderClosed
		}

		target, err := s.orders.LockItemTx(tx, orderID, itemID)
		if err != nil {
			return err
		}
		if target.CatalogItemID != nil {
			if kept, err := s.consolidate(tx, orderID, *target.CatalogItemID); err != nil {
				return err
			} else if kept != nil {
				target = kept
			}
		}

		if target.Quantity <= 1 {
			if err := s.orders.DeleteItemsTx(tx, []uuid.UUID{target.ID}); err != nil {
				return err
			}
		} else {
			target.Resize(target.Quantity - 1)
			if err := s.orders.ResizeItemTx(tx, target); err != nil {
				return err
			}
			result = target
		}

		_, err = recomputeTotals(tx, s.orders, orderID, adjustments{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ── Consolidation helpers ────────────────────────────────────────────────────

// consolidate merges every active row of (order, catalog item) into the
// earliest one. It returns the surviving row, or nil when there is none.
func (s *orderService) consolidate(tx *gorm.DB, orderID, catalogItemID uuid.UUID) (*model.OrderItem, error) {
	rows, err := s.orders.LockItemsTx(tx, orderID, catalogItemID)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	if len(rows) == 1 {
		return &rows[0], nil
	}
	return s.mergeRows(tx, rows, 0)
}

// mergeRows folds rows (locked, id ascending) plus extra units into rows[0]
// and deletes the rest. The kept row's unit price is the earliest snapshot.
func (s *orderService) mergeRows(tx *gorm.DB, rows []model.OrderItem, extra int) (*model.OrderItem, error) {
	kept := rows[0]
	quantity := extra
	var dropped []uuid.UUID
	for i, r := range rows {
		quantity += r.Quantity
		if i > 0 {
			dropped = append(dropped, r.ID)
		}
	}
	if len(dropped) > 0 {
		log.Info().
			Str("order_id", kept.OrderID.String()).
			Str("kept_item_id", kept.ID.String()).
			Int("merged_rows", len(dropped)).
			Msg("consolidated duplicate order items")
	}

	kept.Resize(quantity)
	if err := s.orders.ResizeItemTx(tx, &kept); err != nil {
		return nil, err
	}
	if err := s.orders.DeleteItemsTx(tx, dropped); err != nil {
		return nil, err
	}
	return &kept, nil
}
