package models

import (
	"etix/src/types"
	"time"
)

// Ticket.Price is an immutable snapshot of the pricing engine output at
// issuance; it is never recomputed after the fact.
type Ticket struct {
	ID           uint               `gorm:"primarykey" json:"id"`
	BookingID    uint               `json:"booking_id,omitempty"`
	TicketTypeID uint               `json:"ticket_type_id,omitempty"`
	EventID      uint               `json:"event_id,omitempty"`
	Price        float64            `json:"price"`
	Status       types.TicketStatus `gorm:"default:'reserved'" json:"status,omitempty"`
	QrCode       string             `gorm:"uniqueIndex" json:"qr_code,omitempty"`
	HolderName   *string            `json:"holder_name,omitempty"`
	HolderPhone  *string            `json:"holder_phone,omitempty"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`

	Booking    *Booking    `gorm:"foreignKey:booking_id" json:"booking,omitempty"`
	TicketType *TicketType `gorm:"foreignKey:ticket_type_id" json:"ticket_type,omitempty"`
	Event      *Event      `gorm:"foreignKey:event_id" json:"event,omitempty"`

	types.Timestamps
}
