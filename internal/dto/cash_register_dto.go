package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenRegisterRequest struct {
	EstablishmentID uuid.UUID       `json:"establishment_id" validate:"required"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"  validate:"min=0"`
}

type PostMovementRequest struct {
	Type        string          `json:"type"        validate:"required,oneof=entry exit"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
}

type CloseRegisterRequest struct {
	DeclaredAmount decimal.Decimal `json:"declared_amount" validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CashRegisterResponse struct {
	ID                    string           `json:"id"`
	EstablishmentID       string           `json:"establishment_id"`
	Status                string           `json:"status"`
	OpeningBalance        decimal.Decimal  `json:"opening_balance"`
	EntriesTotal          decimal.Decimal  `json:"entries_total"`
	ExitsTotal            decimal.Decimal  `json:"exits_total"`
	Balance               decimal.Decimal  `json:"balance"`
	RevenueTotal          decimal.Decimal  `json:"revenue_total"`
	DeclaredClosingAmount *decimal.Decimal `json:"declared_closing_amount"`
	ClosingDifference     *decimal.Decimal `json:"closing_difference"`
	DifferenceClass       *string          `json:"difference_class"` // normal | warning | critical
	OpenedBy              string           `json:"opened_by"`
	ClosedBy              *string          `json:"closed_by"`
	OpenedAt              string           `json:"opened_at"`
	ClosedAt              *string          `json:"closed_at"`
}

type CashMovementResponse struct {
	ID             string          `json:"id"`
	CashRegisterID string          `json:"cash_register_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	PriorBalance   decimal.Decimal `json:"prior_balance"`
	Description    string          `json:"description"`
	UserID         *string         `json:"user_id"`
	ReversesID     *string         `json:"reverses_id"`
	CreatedAt      string          `json:"created_at"`
}
