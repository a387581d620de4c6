package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartRequestStatus: "open" | "closed"
type PartRequestStatus string

const (
	PartRequestOpen   PartRequestStatus = "open"
	PartRequestClosed PartRequestStatus = "closed"
)

// PartRequest tracks a part the shop is waiting on. While any request of an
// order is open the order stays in awaiting_parts.
type PartRequest struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Description string            `gorm:"not null"`
	Status      PartRequestStatus `gorm:"type:varchar(20);not null;default:'open'"`
	OpenedAt    time.Time
	ClosedAt    *time.Time
}

func (p *PartRequest) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = newID()
	}
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}
	return nil
}
