package models

import (
	"etix/src/types"
	"time"
)

// DynamicPricingRule carries the fields for all three variants; which fields
// matter depends on RuleType. Definitions are validated at write time, the
// pricing engine trusts what it reads.
type DynamicPricingRule struct {
	ID               uint                  `gorm:"primarykey" json:"id"`
	TicketTypeID     uint                  `json:"ticket_type_id,omitempty"`
	RuleType         types.PricingRuleType `json:"rule_type,omitempty"`
	DiscountPercent  float64               `json:"discount_percent,omitempty"`
	IncreasePercent  float64               `json:"increase_percent,omitempty"`
	StartDate        *time.Time            `json:"start_date,omitempty"`
	EndDate          *time.Time            `json:"end_date,omitempty"`
	LastNDays        int                   `json:"last_n_days,omitempty"`
	ThresholdPercent float64               `json:"threshold_percent,omitempty"`
	IsActive         bool                  `gorm:"default:true" json:"is_active"`

	TicketType TicketType `json:"ticket_type,omitempty"`

	types.Timestamps
}
