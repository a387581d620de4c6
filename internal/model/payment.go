package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus: "generated" | "pending" | "paid" | "overdue" | "cancelled"
type PaymentStatus string

const (
	PaymentGenerated PaymentStatus = "generated"
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentMethod is "pending" until the payment is configured.
type PaymentMethod string

const (
	MethodPending  PaymentMethod = "pending"
	MethodCash     PaymentMethod = "cash"
	MethodDebit    PaymentMethod = "debit"
	MethodCredit   PaymentMethod = "credit"
	MethodPix      PaymentMethod = "pix"
	MethodTransfer PaymentMethod = "transfer"
	MethodBankSlip PaymentMethod = "bank_slip"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPending, MethodCash, MethodDebit, MethodCredit, MethodPix, MethodTransfer, MethodBankSlip:
		return true
	}
	return false
}

// Payment is the billing record of an order. At most one non-cancelled
// payment exists per order.
type Payment struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	ClientID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	TotalAmount      decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Discount         decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Surcharge        decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PaidAmount       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InstallmentCount *int
	DueDate          *time.Time
	PaidDate         *time.Time
	Method           PaymentMethod `gorm:"type:varchar(20);not null;default:'pending'"`
	Status           PaymentStatus `gorm:"type:varchar(20);not null;default:'generated'"`
	CashRegisterID   *uuid.UUID    `gorm:"type:uuid"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Installments []Installment `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = newID()
	}
	return nil
}

// PlanLabel is the display text of the plan. A nil count is the pay-in-full
// plan ("à vista"), which stays distinct from an explicit single installment.
func (p *Payment) PlanLabel() string {
	if p.InstallmentCount == nil {
		return "à vista"
	}
	return fmt.Sprintf("%dx", *p.InstallmentCount)
}

// InstallmentStatus: "pending" | "paid" | "overdue"
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled portion of a payment.
type Installment struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PaymentID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Number     int               `gorm:"not null"`
	Amount     decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	DueDate    time.Time         `gorm:"not null"`
	Status     InstallmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaidAmount *decimal.Decimal  `gorm:"type:decimal(12,2)"`
	PaidDate   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (i *Installment) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = newID()
	}
	return nil
}

// Label renders "n/N" for the installment within its plan.
func (i *Installment) Label(count int) string {
	return fmt.Sprintf("%d/%d", i.Number, count)
}
