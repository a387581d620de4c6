package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentPlan is either "full" (pay in full, à vista) or a count.
// In JSON it is the string "full" or a positive integer. An absent or null
// value is the pay-in-full plan.
type InstallmentPlan struct {
	Full  bool
	Count int
	set   bool
}

func FullPlan() InstallmentPlan { return InstallmentPlan{Full: true, set: true} }
func Installments(n int) InstallmentPlan { return InstallmentPlan{Count: n, set: true} }

// OrFull returns p, or the pay-in-full plan when the request left it out.
func (p InstallmentPlan) OrFull() InstallmentPlan {
	if !p.set {
		return FullPlan()
	}
	return p
}

func (p InstallmentPlan) MarshalJSON() ([]byte, error) {
	if p.Full || !p.set {
		return []byte(`"full"`), nil
	}
	return json.Marshal(p.Count)
}

func (p *InstallmentPlan) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`"full"`)) {
		*p = FullPlan()
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("installments must be \"full\" or a number: %w", err)
	}
	*p = Installments(n)
	return nil
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreatePaymentRequest is built by the order workflow on finalization.
type CreatePaymentRequest struct {
	OrderID        uuid.UUID
	ClientID       uuid.UUID
	TotalAmount    decimal.Decimal
	CashRegisterID *uuid.UUID
}

type ConfigurePaymentRequest struct {
	Method       string           `json:"method"       validate:"required,oneof=cash debit credit pix transfer bank_slip"`
	Installments InstallmentPlan  `json:"installments"`
	Discount     *decimal.Decimal `json:"discount"`
	Surcharge    *decimal.Decimal `json:"surcharge"`
	DueDate      *time.Time       `json:"due_date"`
}

type MarkPaidRequest struct {
	PaidDate *time.Time `json:"paid_date"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InstallmentResponse struct {
	ID         string           `json:"id"`
	Number     int              `json:"number"`
	Label      string           `json:"label"`
	Amount     decimal.Decimal  `json:"amount"`
	DueDate    string           `json:"due_date"`
	Status     string           `json:"status"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
	PaidDate   *string          `json:"paid_date"`
}

type PaymentResponse struct {
	ID               string                `json:"id"`
	OrderID          string                `json:"order_id"`
	ClientID         string                `json:"client_id"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	Discount         decimal.Decimal       `json:"discount"`
	Surcharge        decimal.Decimal       `json:"surcharge"`
	PaidAmount       *decimal.Decimal      `json:"paid_amount"`
	InstallmentCount *int                  `json:"installment_count"`
	Plan             string                `json:"plan"`
	Method           string                `json:"method"`
	Status           string                `json:"status"`
	DueDate          *string               `json:"due_date"`
	PaidDate         *string               `json:"paid_date"`
	CashRegisterID   *string               `json:"cash_register_id"`
	Installments     []InstallmentResponse `json:"installments"`
	AlreadyExisted   bool                  `json:"already_existed,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
}
