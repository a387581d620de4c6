package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemKind distinguishes countable products from one-off services.
type ItemKind string

const (
	ItemProduct ItemKind = "product"
	ItemService ItemKind = "service"
)

func (k ItemKind) Valid() bool { return k == ItemProduct || k == ItemService }

// OrderItemStatus: "active" | "inactive" (soft-removed).
type OrderItemStatus string

const (
	ItemActive   OrderItemStatus = "active"
	ItemInactive OrderItemStatus = "inactive"
)

// OrderItem is a line on an order. UnitPrice is a snapshot of the catalog
// price at insertion time. CatalogItemID is nil for ad-hoc lines.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_items_order_catalog"`
	CatalogItemID *uuid.UUID      `gorm:"type:uuid;index:idx_order_items_order_catalog"`
	Description   string          `gorm:"not null"`
	Kind          ItemKind        `gorm:"type:varchar(20);not null"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status        OrderItemStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = newID()
	}
	return nil
}

// Resize sets the quantity and the line total that follows from it.
func (i *OrderItem) Resize(quantity int) {
	i.Quantity = quantity
	i.Total = i.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
