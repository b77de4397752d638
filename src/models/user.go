package models

import "etix/src/types"

type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	ActiveOrg uint   `json:"active_org,omitempty"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`

	types.Timestamps
}
