package models

import "etix/src/types"

// GatePerson links a scanning identity to an organizer. An empty EventIDs
// list authorizes every event of that organizer; a non-empty list restricts
// scanning to the listed events.
type GatePerson struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id,omitempty"`
	OrganizerID uint           `json:"organizer_id,omitempty"`
	EventIDs    types.UintList `gorm:"type:jsonb" json:"event_ids,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}
