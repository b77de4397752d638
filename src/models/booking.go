package models

import (
	"etix/src/types"
	"time"
)

type Booking struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	UserID      uint                `json:"user_id,omitempty"`
	EventID     uint                `json:"event_id,omitempty"`
	Status      types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	TotalAmount float64             `json:"total_amount"`
	ValidUntil  *time.Time          `json:"valid_until,omitempty"`

	Event    *Event    `gorm:"foreignKey:event_id" json:"event,omitempty"`
	User     *User     `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Tickets  []Ticket  `gorm:"foreignKey:booking_id" json:"tickets,omitempty"`
	Payments []Payment `gorm:"foreignKey:booking_id" json:"payments,omitempty"`

	types.Timestamps
}
