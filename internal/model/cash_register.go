package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashRegisterStatus: "open" | "closed"
type CashRegisterStatus string

const (
	RegisterOpen   CashRegisterStatus = "open"
	RegisterClosed CashRegisterStatus = "closed"
)

// DifferenceClass grades the closing difference against the expected balance.
type DifferenceClass string

const (
	DifferenceNormal   DifferenceClass = "normal"
	DifferenceWarning  DifferenceClass = "warning"
	DifferenceCritical DifferenceClass = "critical"
)

// CashRegister is one per-establishment cash drawer session.
// The balance is never stored; see Balance.
type CashRegister struct {
	ID                    uuid.UUID          `gorm:"type:uuid;primaryKey"`
	EstablishmentID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Status                CashRegisterStatus `gorm:"type:varchar(20);not null;default:'open'"`
	OpeningBalance        decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	EntriesTotal          decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	ExitsTotal            decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	RevenueTotal          decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	OpenedBy              uuid.UUID          `gorm:"type:uuid;not null"`
	ClosedBy              *uuid.UUID         `gorm:"type:uuid"`
	DeclaredClosingAmount *decimal.Decimal   `gorm:"type:decimal(12,2)"`
	ClosingDifference     *decimal.Decimal   `gorm:"type:decimal(12,2)"`
	DifferenceClass       *DifferenceClass   `gorm:"type:varchar(20)"`
	OpenedAt              time.Time
	ClosedAt              *time.Time

	Movements []CashMovement `gorm:"foreignKey:CashRegisterID"`
}

func (r *CashRegister) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = newID()
	}
	if r.OpenedAt.IsZero() {
		r.OpenedAt = time.Now().UTC()
	}
	return nil
}

// Balance is openingBalance + entriesTotal − exitsTotal.
func (r *CashRegister) Balance() decimal.Decimal {
	return r.OpeningBalance.Add(r.EntriesTotal).Sub(r.ExitsTotal)
}

func (r *CashRegister) IsOpen() bool { return r.Status == RegisterOpen }

// MovementType: "entry" | "exit"
type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

func (t MovementType) Valid() bool { return t == MovementEntry || t == MovementExit }

// Opposite is the type of the compensating movement.
func (t MovementType) Opposite() MovementType {
	if t == MovementEntry {
		return MovementExit
	}
	return MovementEntry
}

// CashMovement is an immutable ledger posting. Corrections are new rows
// pointing at the corrected movement through ReversesID.
type CashMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type           MovementType    `gorm:"type:varchar(10);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PriorBalance   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description    string          `gorm:"not null"`
	UserID         *uuid.UUID      `gorm:"type:uuid"`
	ReversesID     *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt      time.Time
}

func (m *CashMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = newID()
	}
	return nil
}
