package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateOrderRequest struct {
	EstablishmentID uuid.UUID  `json:"establishment_id" validate:"required"`
	ClientID        uuid.UUID  `json:"client_id"        validate:"required"`
	VehicleID       *uuid.UUID `json:"vehicle_id"`
	Description     string     `json:"description"      validate:"max=2000"`
}

type AddItemRequest struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id" validate:"required"`
	Quantity      int       `json:"quantity"        validate:"required,min=1"`
}

// AddAdHocItemRequest adds a line that is not in the catalog.
type AddAdHocItemRequest struct {
	Description string          `json:"description" validate:"required,min=2"`
	Kind        string          `json:"kind"        validate:"required,oneof=product service"`
	Quantity    int             `json:"quantity"    validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"  validate:"min=0"`
}

// AdjustmentsRequest: nil keeps the stored value.
type AdjustmentsRequest struct {
	Discount  *decimal.Decimal `json:"discount"`
	Surcharge *decimal.Decimal `json:"surcharge"`
}

type TransitionRequest struct {
	Status        string     `json:"status"         validate:"required"`
	ResponsibleID *uuid.UUID `json:"responsible_id"`
}

type OpenPartRequestRequest struct {
	Description string `json:"description" validate:"required,min=2"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrderItemResponse struct {
	ID            string          `json:"id"`
	CatalogItemID *string         `json:"catalog_item_id"`
	Description   string          `json:"description"`
	Kind          string          `json:"kind"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Total         decimal.Decimal `json:"total"`
}

type TotalsResponse struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Total     decimal.Decimal `json:"total"`
}

type PartRequestResponse struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	OpenedAt    string  `json:"opened_at"`
	ClosedAt    *string `json:"closed_at"`
}

type OrderResponse struct {
	ID              string                `json:"id"`
	EstablishmentID string                `json:"establishment_id"`
	ClientID        string                `json:"client_id"`
	VehicleID       *string               `json:"vehicle_id"`
	Description     string                `json:"description"`
	Status          string                `json:"status"`
	Totals          TotalsResponse        `json:"totals"`
	ResponsibleID   *string               `json:"responsible_id"`
	Items           []OrderItemResponse   `json:"items"`
	PartRequests    []PartRequestResponse `json:"part_requests"`
	OpenedAt        string                `json:"opened_at"`
	ClosedAt        *string               `json:"closed_at"`
}

type TransitionResponse struct {
	Order    OrderResponse    `json:"order"`
	Previous string           `json:"previous_status"`
	Changed  bool             `json:"changed"`
	Payment  *PaymentResponse `json:"payment,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}
