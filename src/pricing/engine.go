package pricing

import (
	"errors"
	"time"

	"etix/src/db"
	"etix/src/models"
	"etix/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeInput is everything the price calculation reads. Given identical
// inputs the result is identical; there is no hidden clock or store access.
type ComputeInput struct {
	Base       decimal.Decimal
	Sold       uint
	Quantity   uint
	EventStart time.Time
	Now        time.Time
	Rules      []models.DynamicPricingRule
}

// Compute evaluates the three rule variants independently against the base
// price (adjustments are not compounded on each other):
//
//	final = base - earlyBird - lastMinute + demand
//
// rounded to 2 decimal places. The result is deliberately not clamped at
// zero: overlapping discounts can drive it negative, matching the platform's
// historical behavior.
func Compute(in ComputeInput) decimal.Decimal {
	price := in.Base

	if r := pickEarlyBird(in.Rules, in.Now); r != nil {
		discount := in.Base.Mul(decimal.NewFromFloat(r.DiscountPercent)).Div(oneHundred)
		price = price.Sub(discount)
	}
	if r := pickLastMinute(in.Rules, in.EventStart, in.Now); r != nil {
		discount := in.Base.Mul(decimal.NewFromFloat(r.DiscountPercent)).Div(oneHundred)
		price = price.Sub(discount)
	}
	if r := pickDemandBased(in.Rules, in.Sold, in.Quantity); r != nil {
		increase := in.Base.Mul(decimal.NewFromFloat(r.IncreasePercent)).Div(oneHundred)
		price = price.Add(increase)
	}

	return price.Round(2)
}

// pickEarlyBird returns the active early-bird rule whose window contains now.
// When several windows overlap the one with the earliest EndDate wins, so the
// selection is deterministic.
func pickEarlyBird(rules []models.DynamicPricingRule, now time.Time) *models.DynamicPricingRule {
	var picked *models.DynamicPricingRule
	for i := range rules {
		r := &rules[i]
		if r.RuleType != types.RULE_EARLY_BIRD || !r.IsActive {
			continue
		}
		if r.StartDate == nil || r.EndDate == nil {
			continue
		}
		if now.Before(*r.StartDate) || now.After(*r.EndDate) {
			continue
		}
		if picked == nil || r.EndDate.Before(*picked.EndDate) {
			picked = r
		}
	}
	return picked
}

// DaysBeforeEvent returns whole days between now and the event start, or -1
// once the event has started.
func DaysBeforeEvent(eventStart, now time.Time) int {
	diff := eventStart.Sub(now)
	if diff < 0 {
		return -1
	}
	return int(diff.Hours() / 24)
}

// pickLastMinute applies when the event starts within the rule's window of
// days, inclusive on both ends: days-before-event in [0, LastNDays]. Lowest
// rule ID wins when several match.
func pickLastMinute(rules []models.DynamicPricingRule, eventStart, now time.Time) *models.DynamicPricingRule {
	days := DaysBeforeEvent(eventStart, now)
	if days < 0 {
		return nil
	}
	var picked *models.DynamicPricingRule
	for i := range rules {
		r := &rules[i]
		if r.RuleType != types.RULE_LAST_MINUTE || !r.IsActive {
			continue
		}
		if days > r.LastNDays {
			continue
		}
		if picked == nil || r.ID < picked.ID {
			picked = r
		}
	}
	return picked
}

// pickDemandBased applies when sold/quantity reaches the rule threshold.
// Lowest rule ID wins when several match.
func pickDemandBased(rules []models.DynamicPricingRule, sold, quantity uint) *models.DynamicPricingRule {
	if quantity == 0 {
		return nil
	}
	soldPct := float64(sold) / float64(quantity) * 100
	var picked *models.DynamicPricingRule
	for i := range rules {
		r := &rules[i]
		if r.RuleType != types.RULE_DEMAND_BASED || !r.IsActive {
			continue
		}
		if soldPct < r.ThresholdPercent {
			continue
		}
		if picked == nil || r.ID < picked.ID {
			picked = r
		}
	}
	return picked
}

// CurrentPrice computes the price of a ticket type as of now, reading through
// the given handle so callers inside a transaction see their own writes.
func CurrentPrice(tx *gorm.DB, ticketTypeID uint, now time.Time) (decimal.Decimal, error) {
	var ticketType models.TicketType
	if err := tx.
		Model(&models.TicketType{}).
		Where(&models.TicketType{ID: ticketTypeID}).
		Preload("Event").
		First(&ticketType).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, types.NotFoundError("ticket type %d not found", ticketTypeID)
		}
		return decimal.Zero, err
	}
	var rules []models.DynamicPricingRule
	if err := tx.
		Where(&models.DynamicPricingRule{TicketTypeID: ticketTypeID, IsActive: true}).
		Find(&rules).
		Error; err != nil {
		return decimal.Zero, err
	}
	return Compute(ComputeInput{
		Base:       decimal.NewFromFloat(ticketType.BasePrice),
		Sold:       ticketType.Sold,
		Quantity:   ticketType.Quantity,
		EventStart: ticketType.Event.StartsAt,
		Now:        now,
		Rules:      rules,
	}), nil
}

// GetCurrentPrice is the public pricing contract.
func GetCurrentPrice(ticketTypeID uint) (decimal.Decimal, error) {
	return CurrentPrice(db.GetDb(), ticketTypeID, time.Now())
}

// ValidateRule enforces the write-time constraints on rule definitions.
// Invalid definitions are rejected here, never at pricing time.
func ValidateRule(rule *models.DynamicPricingRule) error {
	switch rule.RuleType {
	case types.RULE_EARLY_BIRD:
		if rule.StartDate == nil || rule.EndDate == nil {
			return types.ValidationError("early bird rule requires a start and end date")
		}
		if !rule.StartDate.Before(*rule.EndDate) {
			return types.ValidationError("early bird rule start date must be before end date")
		}
		if rule.DiscountPercent <= 0 {
			return types.ValidationError("early bird rule requires a positive discount")
		}
	case types.RULE_LAST_MINUTE:
		if rule.LastNDays <= 0 {
			return types.ValidationError("last minute rule requires a positive day window")
		}
		if rule.DiscountPercent <= 0 {
			return types.ValidationError("last minute rule requires a positive discount")
		}
	case types.RULE_DEMAND_BASED:
		if rule.ThresholdPercent <= 0 {
			return types.ValidationError("demand based rule requires a positive threshold")
		}
		if rule.IncreasePercent <= 0 {
			return types.ValidationError("demand based rule requires a positive increase")
		}
	default:
		return types.ValidationError("unknown rule type %q", rule.RuleType)
	}
	return nil
}
