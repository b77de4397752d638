package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, a)
}

// UintList is stored as a JSONB array. For gate assignments an empty list
// means "all organizer events", so it must round-trip distinctly from NULL.
type UintList []uint

func (a UintList) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *UintList) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, a)
}

func (a UintList) Contains(id uint) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_COMPLETED EventStatus = "completed"
	EVENT_CANCELED  EventStatus = "canceled"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELED  BookingStatus = "canceled"
	BOOKING_EXPIRED   BookingStatus = "expired"
)

type TicketStatus string

const (
	TICKET_RESERVED   TicketStatus = "reserved"
	TICKET_CHECKED_IN TicketStatus = "checked_in"
	TICKET_CANCELED   TicketStatus = "canceled"
)

type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_CANCELED PaymentStatus = "canceled"
)

type PricingRuleType string

const (
	RULE_EARLY_BIRD   PricingRuleType = "early_bird"
	RULE_LAST_MINUTE  PricingRuleType = "last_minute"
	RULE_DEMAND_BASED PricingRuleType = "demand_based"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateEventRequestBody struct {
	Title    string  `json:"title" binding:"required"`
	About    string  `json:"about,omitempty"`
	Location string  `json:"location,omitempty"`
	Capacity uint    `json:"capacity" binding:"required"`
	StartsAt string  `json:"starts_at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt   string  `json:"ends_at" binding:"required,bookabledate,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	OpensAt  *string `json:"opens_at,omitempty" binding:"omitempty,ltdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	Publish  bool    `json:"publish,omitempty"`
}

type CreateTicketTypeRequestBody struct {
	EventID   uint    `json:"event" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	BasePrice float64 `json:"base_price"`
	Quantity  uint    `json:"quantity" binding:"required"`
}

type PricingRuleRequestBody struct {
	TicketTypeID     uint            `json:"ticket_type" binding:"required"`
	RuleType         PricingRuleType `json:"rule_type" binding:"required"`
	DiscountPercent  float64         `json:"discount_percent,omitempty"`
	IncreasePercent  float64         `json:"increase_percent,omitempty"`
	StartDate        *string         `json:"start_date,omitempty"`
	EndDate          *string         `json:"end_date,omitempty"`
	LastNDays        int             `json:"last_n_days,omitempty"`
	ThresholdPercent float64         `json:"threshold_percent,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

type BookingItem struct {
	TicketTypeID uint    `json:"ticket_type" binding:"required"`
	Qty          uint    `json:"qty" binding:"required"`
	HolderName   *string `json:"holder_name,omitempty"`
	HolderPhone  *string `json:"holder_phone,omitempty"`
}

type CreateBookingRequestBody struct {
	EventID uint          `json:"event" binding:"required"`
	Items   []BookingItem `json:"items" binding:"required,min=1,dive"`
}

type BookingTicket struct {
	TicketID uint         `json:"ticket_id"`
	QrCode   string       `json:"qr_code"`
	Price    float64      `json:"price"`
	Status   TicketStatus `json:"status"`
}

type BookingResult struct {
	BookingID   uint            `json:"booking_id"`
	Status      BookingStatus   `json:"status"`
	TotalAmount float64         `json:"total_amount"`
	IsFree      bool            `json:"is_free"`
	Tickets     []BookingTicket `json:"tickets"`
}

type CreateGatePersonRequestBody struct {
	UserID      uint   `json:"user" binding:"required"`
	OrganizerID uint   `json:"organizer" binding:"required"`
	EventIDs    []uint `json:"events,omitempty"`
}

type ScanTicketRequestBody struct {
	Code     string  `json:"code" binding:"required"`
	DeviceID *string `json:"device_id,omitempty"`
	Location *string `json:"location,omitempty"`
}

type ScanResult struct {
	IsValid       bool       `json:"is_valid"`
	Message       string     `json:"message"`
	TicketID      *uint      `json:"ticket_id,omitempty"`
	TicketHolder  *string    `json:"ticket_holder,omitempty"`
	TicketType    *string    `json:"ticket_type,omitempty"`
	EventName     *string    `json:"event_name,omitempty"`
	EventStartsAt *time.Time `json:"event_starts_at,omitempty"`
	EventEndsAt   *time.Time `json:"event_ends_at,omitempty"`
}

type ScanSummary struct {
	EventID  uint             `json:"event_id"`
	Total    int64            `json:"total"`
	Valid    int64            `json:"valid"`
	Invalid  int64            `json:"invalid"`
	ByReason map[string]int64 `json:"by_reason"`
}

type Claims struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	Organization uint   `json:"org,omitempty"`
	jwt.RegisteredClaims
}
