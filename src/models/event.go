package models

import (
	"etix/src/types"
	"time"
)

type Event struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	Title       string            `json:"title,omitempty"`
	About       *string           `json:"about,omitempty"`
	Location    string            `json:"location,omitempty"`
	Status      types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	Capacity    uint              `json:"capacity,omitempty"`
	OrganizerID uint              `json:"organizer,omitempty"`
	SaleOpensAt *time.Time        `json:"sale_opens_at,omitempty"`
	StartsAt    time.Time         `json:"starts_at,omitempty"`
	EndsAt      time.Time         `json:"ends_at,omitempty"`

	TicketTypes []TicketType `json:"ticket_types,omitempty"`

	types.Timestamps
}
