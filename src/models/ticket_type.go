package models

import "etix/src/types"

// TicketType is the unit of inventory. Sold is only ever mutated through
// conditional UPDATEs that re-check Sold against Quantity, never through a
// read followed by a write.
type TicketType struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	EventID   uint    `json:"event_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	BasePrice float64 `json:"base_price"`
	Quantity  uint    `json:"quantity"`
	Sold      uint    `gorm:"default:0" json:"sold"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`

	Event Event                `json:"event,omitempty"`
	Rules []DynamicPricingRule `gorm:"foreignKey:ticket_type_id" json:"rules,omitempty"`

	types.Timestamps
}
