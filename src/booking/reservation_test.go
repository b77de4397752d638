package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"etix/src/db"
	"etix/src/models"
	"etix/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.TicketType{},
		&models.DynamicPricingRule{},
		&models.Booking{},
		&models.Ticket{},
		&models.Payment{},
	))
	db.NewDB(gdb)
	return gdb
}

type fixture struct {
	event      models.Event
	ticketType models.TicketType
	users      []models.User
}

func newFixture(t *testing.T, gdb *gorm.DB, basePrice float64, quantity uint, userCount int) *fixture {
	now := time.Now()
	f := fixture{
		event: models.Event{
			Title:    "Summer Fest",
			Status:   types.EVENT_PUBLISHED,
			Capacity: 100,
			StartsAt: now.Add(10 * 24 * time.Hour),
			EndsAt:   now.Add(10*24*time.Hour + 4*time.Hour),
		},
	}
	require.NoError(t, gdb.Create(&f.event).Error)
	f.ticketType = models.TicketType{
		EventID:   f.event.ID,
		Name:      "GA",
		BasePrice: basePrice,
		Quantity:  quantity,
		IsActive:  true,
	}
	require.NoError(t, gdb.Create(&f.ticketType).Error)
	for i := 0; i < userCount; i++ {
		user := models.User{Name: fmt.Sprintf("Guest %d", i+1)}
		require.NoError(t, gdb.Create(&user).Error)
		f.users = append(f.users, user)
	}
	return &f
}

func (f *fixture) item(qty uint) []types.BookingItem {
	return []types.BookingItem{{TicketTypeID: f.ticketType.ID, Qty: qty}}
}

func TestCreateBookingIssuesTickets(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)

	result, err := CreateBooking(context.Background(), f.event.ID, f.item(2), f.users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_PENDING, result.Status)
	assert.False(t, result.IsFree)
	assert.Equal(t, float64(100), result.TotalAmount)
	assert.Len(t, result.Tickets, 2)

	codeFormat := regexp.MustCompile(`^SUMM-[0-9A-F]{32}$`)
	for _, ticket := range result.Tickets {
		assert.Equal(t, types.TICKET_RESERVED, ticket.Status)
		assert.Equal(t, float64(50), ticket.Price)
		assert.Regexp(t, codeFormat, ticket.QrCode)
	}

	var ticketType models.TicketType
	require.NoError(t, gdb.First(&ticketType, f.ticketType.ID).Error)
	assert.Equal(t, uint(2), ticketType.Sold)

	var booking models.Booking
	require.NoError(t, gdb.First(&booking, result.BookingID).Error)
	assert.NotNil(t, booking.ValidUntil)
	assert.True(t, booking.ValidUntil.After(time.Now()))
}

func TestCreateBookingValidation(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)

	_, err := CreateBooking(context.Background(), f.event.ID, nil, f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = CreateBooking(context.Background(), f.event.ID, f.item(0), f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = CreateBooking(context.Background(), 9999, f.item(1), f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestCreateBookingRejectsUnpublishedEvent(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)
	require.NoError(t, gdb.
		Model(&models.Event{}).
		Where("id = ?", f.event.ID).
		Update("status", types.EVENT_DRAFT).
		Error)

	_, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindInvalidState))
}

func TestCreateBookingRejectsSecondPendingForSameEvent(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)

	_, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	require.NoError(t, err)

	_, err = CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindInvalidState))
}

func TestBookingsNeverOversellTicketType(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 3, 5)

	succeeded := 0
	rejected := 0
	for _, user := range f.users {
		_, err := CreateBooking(context.Background(), f.event.ID, f.item(1), user.ID)
		switch {
		case err == nil:
			succeeded++
		case types.IsKind(err, types.KindCapacityExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %s", err.Error())
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 2, rejected)

	var ticketType models.TicketType
	require.NoError(t, gdb.First(&ticketType, f.ticketType.ID).Error)
	assert.Equal(t, uint(3), ticketType.Sold)

	var issued int64
	require.NoError(t, gdb.
		Model(&models.Ticket{}).
		Where("event_id = ? AND status = ?", f.event.ID, types.TICKET_RESERVED).
		Count(&issued).
		Error)
	assert.Equal(t, int64(3), issued)
}

func TestCreateBookingSurfacesBusyAfterRetries(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 2, 1)
	// Counter already at capacity but no ticket rows yet, so the cheap
	// pre-check passes and every transactional attempt loses the claim.
	require.NoError(t, gdb.
		Model(&models.TicketType{}).
		Where("id = ?", f.ticketType.ID).
		Update("sold", 2).
		Error)

	_, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindCapacityExceeded))
	assert.Equal(t, "system busy, please try again", err.Error())

	// The failed attempts left nothing behind.
	var bookings int64
	require.NoError(t, gdb.Model(&models.Booking{}).Count(&bookings).Error)
	assert.Equal(t, int64(0), bookings)
}

func TestFreeBookingConfirmsImmediately(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 0, 10, 1)

	result, err := CreateBooking(context.Background(), f.event.ID, f.item(2), f.users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_CONFIRMED, result.Status)
	assert.True(t, result.IsFree)
	assert.Equal(t, float64(0), result.TotalAmount)

	var payment models.Payment
	require.NoError(t, gdb.
		Where(&models.Payment{BookingID: result.BookingID}).
		First(&payment).
		Error)
	assert.Equal(t, "free", payment.Provider)
	assert.Equal(t, types.PAYMENT_PAID, payment.Status)
}

func TestCancelBookingReturnsSlots(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 2)

	result, err := CreateBooking(context.Background(), f.event.ID, f.item(2), f.users[0].ID)
	require.NoError(t, err)

	err = CancelBooking(result.BookingID, f.users[1].ID)
	assert.True(t, types.IsKind(err, types.KindNotFound), "another user must not see the booking")

	require.NoError(t, CancelBooking(result.BookingID, f.users[0].ID))

	var booking models.Booking
	require.NoError(t, gdb.First(&booking, result.BookingID).Error)
	assert.Equal(t, types.BOOKING_CANCELED, booking.Status)

	var ticketType models.TicketType
	require.NoError(t, gdb.First(&ticketType, f.ticketType.ID).Error)
	assert.Equal(t, uint(0), ticketType.Sold)

	var reserved int64
	require.NoError(t, gdb.
		Model(&models.Ticket{}).
		Where("booking_id = ? AND status = ?", result.BookingID, types.TICKET_RESERVED).
		Count(&reserved).
		Error)
	assert.Equal(t, int64(0), reserved)

	err = CancelBooking(result.BookingID, f.users[0].ID)
	assert.True(t, types.IsKind(err, types.KindInvalidState), "cancel is not idempotent past the terminal state")
}

func TestConfirmBookingPaid(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)

	result, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	require.NoError(t, err)

	require.NoError(t, ConfirmBookingPaid(result.BookingID, "cs_test_123"))

	var booking models.Booking
	require.NoError(t, gdb.First(&booking, result.BookingID).Error)
	assert.Equal(t, types.BOOKING_CONFIRMED, booking.Status)

	var payment models.Payment
	require.NoError(t, gdb.
		Where(&models.Payment{BookingID: result.BookingID}).
		First(&payment).
		Error)
	assert.Equal(t, "stripe", payment.Provider)
	assert.Equal(t, "cs_test_123", payment.ReferenceID)
	assert.Equal(t, types.PAYMENT_PAID, payment.Status)

	// Duplicate webhook delivery.
	err = ConfirmBookingPaid(result.BookingID, "cs_test_123")
	assert.True(t, types.IsKind(err, types.KindInvalidState))

	var payments int64
	require.NoError(t, gdb.
		Model(&models.Payment{}).
		Where(&models.Payment{BookingID: result.BookingID}).
		Count(&payments).
		Error)
	assert.Equal(t, int64(1), payments)

	err = ConfirmBookingPaid(9999, "cs_test_456")
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestConfirmBookingPaidSettlesPendingPayment(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 1)

	result, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[0].ID)
	require.NoError(t, err)

	// The checkout hand-off records the session as a pending payment before
	// the webhook arrives.
	pending := models.Payment{
		BookingID:   result.BookingID,
		Amount:      result.TotalAmount,
		Provider:    "stripe",
		ReferenceID: "cs_test_789",
		Status:      types.PAYMENT_PENDING,
	}
	require.NoError(t, gdb.Create(&pending).Error)

	require.NoError(t, ConfirmBookingPaid(result.BookingID, "cs_test_789"))

	var payments []models.Payment
	require.NoError(t, gdb.
		Where(&models.Payment{BookingID: result.BookingID}).
		Find(&payments).
		Error)
	require.Len(t, payments, 1)
	assert.Equal(t, pending.ID, payments[0].ID)
	assert.Equal(t, "cs_test_789", payments[0].ReferenceID)
	assert.Equal(t, types.PAYMENT_PAID, payments[0].Status)
}

func TestExpirePendingBookings(t *testing.T) {
	gdb := newTestDB(t)
	f := newFixture(t, gdb, 50, 10, 2)

	stale, err := CreateBooking(context.Background(), f.event.ID, f.item(2), f.users[0].ID)
	require.NoError(t, err)
	fresh, err := CreateBooking(context.Background(), f.event.ID, f.item(1), f.users[1].ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, gdb.
		Model(&models.Booking{}).
		Where("id = ?", stale.BookingID).
		Update("valid_until", past).
		Error)

	expired, err := ExpirePendingBookings(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	var booking models.Booking
	require.NoError(t, gdb.First(&booking, stale.BookingID).Error)
	assert.Equal(t, types.BOOKING_EXPIRED, booking.Status)

	booking = models.Booking{}
	require.NoError(t, gdb.First(&booking, fresh.BookingID).Error)
	assert.Equal(t, types.BOOKING_PENDING, booking.Status)

	// Only the stale booking's two slots came back.
	var ticketType models.TicketType
	require.NoError(t, gdb.First(&ticketType, f.ticketType.ID).Error)
	assert.Equal(t, uint(1), ticketType.Sold)

	expired, err = ExpirePendingBookings(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}
