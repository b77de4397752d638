package models

import (
	"etix/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payment struct {
	ID          uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	BookingID   uint                `json:"booking_id,omitempty"`
	Amount      float64             `json:"amount"`
	Currency    string              `gorm:"default:'usd'" json:"currency,omitempty"`
	Provider    string              `json:"provider,omitempty"`
	ReferenceID string              `json:"reference_id,omitempty"`
	Status      types.PaymentStatus `gorm:"default:'pending'" json:"status,omitempty"`

	Booking *Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
