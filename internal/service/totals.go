package service

import (
	"oficina/internal/apierror"
	"oficina/internal/model"
	"oficina/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// consistencyEpsilon is the largest stored/recomputed gap tolerated as rounding.
var consistencyEpsilon = decimal.RequireFromString("0.005")

// adjustments carries caller-supplied discount/surcharge; nil keeps the stored value.
type adjustments struct {
	discount  *decimal.Decimal
	surcharge *decimal.Decimal
}

// recomputeTotals is the only writer of Order.Subtotal and Order.Total.
// It runs inside the transaction of the mutation that triggered it.
func recomputeTotals(tx *gorm.DB, orders repository.OrderRepository, orderID uuid.UUID, adj adjustments) (model.Totals, error) {
	order, err := orders.LockByIDTx(tx, orderID)
	if err != nil {
		return model.Totals{}, err
	}
	items, err := orders.ListActiveItemsTx(tx, orderID)
	if err != nil {
		return model.Totals{}, err
	}

	discount, surcharge := order.Discount, order.Surcharge
	if adj.discount != nil {
		discount = adj.discount.Round(2)
		if discount.IsNegative() {
			return model.Totals{}, apierror.Validation("discount", "discount cannot be negative")
		}
	}
	if adj.surcharge != nil {
		surcharge = adj.surcharge.Round(2)
		if surcharge.IsNegative() {
			return model.Totals{}, apierror.Validation("surcharge", "surcharge cannot be negative")
		}
	}

	t := model.ComputeTotals(items, discount, surcharge)
	ceiling := t.Subtotal.Add(surcharge)
	if discount.GreaterThan(ceiling) {
		if adj.discount != nil {
			return model.Totals{}, apierror.Validation("discount", "discount cannot exceed subtotal plus surcharge")
		}
		// Items were removed under a stored discount: keep the total at zero.
		log.Warn().
			Str("order_id", orderID.String()).
			Str("discount", discount.String()).
			Str("ceiling", ceiling.String()).
			Msg("stored discount capped to order value")
		t = model.ComputeTotals(items, ceiling, surcharge)
	}

	if err := orders.UpdateTotalsTx(tx, orderID, t); err != nil {
		return model.Totals{}, err
	}

	stored, err := orders.LockByIDTx(tx, orderID)
	if err != nil {
		return model.Totals{}, err
	}
	if diverges(stored.Subtotal, t.Subtotal) || diverges(stored.Total, t.Total) ||
		diverges(stored.Total, stored.Subtotal.Sub(stored.Discount).Add(stored.Surcharge)) {
		log.Error().
			Str("order_id", orderID.String()).
			Str("stored_subtotal", stored.Subtotal.String()).
			Str("stored_total", stored.Total.String()).
			Str("computed_subtotal", t.Subtotal.String()).
			Str("computed_total", t.Total.String()).
			Msg("CONSISTENCY VIOLATION: order totals diverge after recompute")
		return model.Totals{}, apierror.ErrConsistency.WithMessage("order totals diverge after recompute")
	}
	return t, nil
}

func diverges(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(consistencyEpsilon)
}
