package pricing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"etix/src/db"
	"etix/src/models"
	"etix/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestComputeEarlyBirdDiscount(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	eventStart := now.Add(30 * 24 * time.Hour)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 20,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        true,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(100),
		Sold:       0,
		Quantity:   100,
		EventStart: eventStart,
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "80", price.String())
}

func TestComputeEarlyBirdOutsideWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 20,
			StartDate:       datePtr(now.Add(24 * time.Hour)),
			EndDate:         datePtr(now.Add(48 * time.Hour)),
			IsActive:        true,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(100),
		Quantity:   100,
		EventStart: now.Add(30 * 24 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "100", price.String())
}

func TestComputeEarlyBirdOverlapPicksEarliestEnd(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              7,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 30,
			StartDate:       datePtr(now.Add(-48 * time.Hour)),
			EndDate:         datePtr(now.Add(96 * time.Hour)),
			IsActive:        true,
		},
		{
			ID:              9,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 10,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        true,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(100),
		Quantity:   100,
		EventStart: now.Add(30 * 24 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "90", price.String())
}

func TestComputeDemandBasedIncrease(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:               1,
			RuleType:         types.RULE_DEMAND_BASED,
			IncreasePercent:  10,
			ThresholdPercent: 80,
			IsActive:         true,
		},
	}
	in := ComputeInput{
		Base:       decimal.NewFromInt(100),
		Sold:       81,
		Quantity:   100,
		EventStart: now.Add(30 * 24 * time.Hour),
		Now:        now,
		Rules:      rules,
	}
	assert.Equal(t, "110", Compute(in).String())

	in.Sold = 80
	assert.Equal(t, "110", Compute(in).String())

	in.Sold = 79
	assert.Equal(t, "100", Compute(in).String())
}

func TestComputeLastMinuteWindowInclusive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_LAST_MINUTE,
			DiscountPercent: 25,
			LastNDays:       2,
			IsActive:        true,
		},
	}
	base := ComputeInput{
		Base:     decimal.NewFromInt(100),
		Quantity: 100,
		Now:      now,
		Rules:    rules,
	}

	// 2 days and some hours out rounds down to 2 whole days, inside the window.
	base.EventStart = now.Add(2*24*time.Hour + 6*time.Hour)
	assert.Equal(t, "75", Compute(base).String())

	base.EventStart = now.Add(3*24*time.Hour + 6*time.Hour)
	assert.Equal(t, "100", Compute(base).String())

	// Day of the event.
	base.EventStart = now.Add(3 * time.Hour)
	assert.Equal(t, "75", Compute(base).String())

	// Event already started, no discount.
	base.EventStart = now.Add(-1 * time.Hour)
	assert.Equal(t, "100", Compute(base).String())
}

func TestDaysBeforeEvent(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBeforeEvent(now.Add(6*time.Hour), now))
	assert.Equal(t, 1, DaysBeforeEvent(now.Add(36*time.Hour), now))
	assert.Equal(t, -1, DaysBeforeEvent(now.Add(-1*time.Minute), now))
}

func TestComputeStacksIndependentlyAgainstBase(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 20,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        true,
		},
		{
			ID:              2,
			RuleType:        types.RULE_LAST_MINUTE,
			DiscountPercent: 30,
			LastNDays:       2,
			IsActive:        true,
		},
		{
			ID:               3,
			RuleType:         types.RULE_DEMAND_BASED,
			IncreasePercent:  15,
			ThresholdPercent: 50,
			IsActive:         true,
		},
	}
	// Each adjustment is a percentage of base, not of the running price:
	// 100 - 20 - 30 + 15 = 65.
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(100),
		Sold:       60,
		Quantity:   100,
		EventStart: now.Add(12 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "65", price.String())
}

func TestComputeCanGoNegative(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 60,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        true,
		},
		{
			ID:              2,
			RuleType:        types.RULE_LAST_MINUTE,
			DiscountPercent: 60,
			LastNDays:       3,
			IsActive:        true,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(10),
		Quantity:   100,
		EventStart: now.Add(24 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "-2", price.String())
}

func TestComputeRoundsToCents(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 33.333,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        true,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromFloat(19.99),
		Quantity:   100,
		EventStart: now.Add(30 * 24 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "13.33", price.String())
}

func TestComputeIsDeterministic(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	in := ComputeInput{
		Base:       decimal.NewFromFloat(42.5),
		Sold:       90,
		Quantity:   100,
		EventStart: now.Add(24 * time.Hour),
		Now:        now,
		Rules: []models.DynamicPricingRule{
			{ID: 1, RuleType: types.RULE_LAST_MINUTE, DiscountPercent: 10, LastNDays: 2, IsActive: true},
			{ID: 2, RuleType: types.RULE_DEMAND_BASED, IncreasePercent: 20, ThresholdPercent: 75, IsActive: true},
		},
	}
	first := Compute(in)
	for i := 0; i < 10; i++ {
		assert.True(t, first.Equal(Compute(in)))
	}
}

func TestComputeIgnoresInactiveRules(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := []models.DynamicPricingRule{
		{
			ID:              1,
			RuleType:        types.RULE_EARLY_BIRD,
			DiscountPercent: 20,
			StartDate:       datePtr(now.Add(-24 * time.Hour)),
			EndDate:         datePtr(now.Add(24 * time.Hour)),
			IsActive:        false,
		},
	}
	price := Compute(ComputeInput{
		Base:       decimal.NewFromInt(100),
		Quantity:   100,
		EventStart: now.Add(30 * 24 * time.Hour),
		Now:        now,
		Rules:      rules,
	})
	assert.Equal(t, "100", price.String())
}

func TestValidateRule(t *testing.T) {
	now := time.Now()
	later := now.Add(24 * time.Hour)

	err := ValidateRule(&models.DynamicPricingRule{
		RuleType:        types.RULE_EARLY_BIRD,
		DiscountPercent: 20,
		StartDate:       &now,
		EndDate:         &later,
	})
	assert.Nil(t, err)

	err = ValidateRule(&models.DynamicPricingRule{
		RuleType:        types.RULE_EARLY_BIRD,
		DiscountPercent: 20,
	})
	assert.True(t, types.IsKind(err, types.KindValidation))

	err = ValidateRule(&models.DynamicPricingRule{
		RuleType:        types.RULE_EARLY_BIRD,
		DiscountPercent: 20,
		StartDate:       &later,
		EndDate:         &now,
	})
	assert.True(t, types.IsKind(err, types.KindValidation))

	err = ValidateRule(&models.DynamicPricingRule{
		RuleType:        types.RULE_LAST_MINUTE,
		DiscountPercent: 10,
		LastNDays:       0,
	})
	assert.True(t, types.IsKind(err, types.KindValidation))

	err = ValidateRule(&models.DynamicPricingRule{
		RuleType:        types.RULE_LAST_MINUTE,
		DiscountPercent: 10,
		LastNDays:       3,
	})
	assert.Nil(t, err)

	err = ValidateRule(&models.DynamicPricingRule{
		RuleType:         types.RULE_DEMAND_BASED,
		IncreasePercent:  0,
		ThresholdPercent: 80,
	})
	assert.True(t, types.IsKind(err, types.KindValidation))

	err = ValidateRule(&models.DynamicPricingRule{RuleType: "weekend_special"})
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func newTestDB(t *testing.T) *gorm.DB {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&models.Event{},
		&models.TicketType{},
		&models.DynamicPricingRule{},
	))
	db.NewDB(gdb)
	return gdb
}

func TestCurrentPriceReadsRulesFromStore(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now()

	event := models.Event{
		Title:    "Launch Party",
		Status:   types.EVENT_PUBLISHED,
		Capacity: 100,
		StartsAt: now.Add(10 * 24 * time.Hour),
		EndsAt:   now.Add(10*24*time.Hour + 4*time.Hour),
	}
	require.NoError(t, gdb.Create(&event).Error)
	ticketType := models.TicketType{
		EventID:   event.ID,
		Name:      "GA",
		BasePrice: 50,
		Quantity:  100,
		Sold:      85,
		IsActive:  true,
	}
	require.NoError(t, gdb.Create(&ticketType).Error)
	rule := models.DynamicPricingRule{
		TicketTypeID:     ticketType.ID,
		RuleType:         types.RULE_DEMAND_BASED,
		IncreasePercent:  10,
		ThresholdPercent: 80,
		IsActive:         true,
	}
	require.NoError(t, gdb.Create(&rule).Error)

	price, err := CurrentPrice(gdb, ticketType.ID, now)
	require.NoError(t, err)
	assert.Equal(t, "55", price.String())

	_, err = CurrentPrice(gdb, 9999, now)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}
