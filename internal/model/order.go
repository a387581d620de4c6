package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a unit of repair work for one client/vehicle.
// Subtotal and Total are derived: only the totals recomputation writes them.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EstablishmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	VehicleID       *uuid.UUID      `gorm:"type:uuid"`
	Description     string          `gorm:"type:text"`
	Status          OrderStatus     `gorm:"type:varchar(30);not null;default:'pending'"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Surcharge       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OpenedBy        uuid.UUID       `gorm:"type:uuid;not null"`
	ResponsibleID   *uuid.UUID      `gorm:"type:uuid"`
	OpenedAt        time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items        []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PartRequests []PartRequest `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = newID()
	}
	if o.OpenedAt.IsZero() {
		o.OpenedAt = time.Now().UTC()
	}
	return nil
}

// Totals is the derived money tuple of an order.
type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals sums the active items and applies discount and surcharge.
func ComputeTotals(items []OrderItem, discount, surcharge decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Status != ItemActive {
			continue
		}
		subtotal = subtotal.Add(it.Total)
	}
	subtotal = subtotal.Round(2)
	return Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Surcharge: surcharge,
		Total:     subtotal.Sub(discount).Add(surcharge).Round(2),
	}
}

// Totals returns the stored totals of the order.
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, Discount: o.Discount, Surcharge: o.Surcharge, Total: o.Total}
}
