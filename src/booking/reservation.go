package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"etix/src/config"
	"etix/src/db"
	"etix/src/lib"
	"etix/src/models"
	"etix/src/monitoring"
	"etix/src/pricing"
	"etix/src/types"
	"etix/src/utils"
	"etix/src/workers"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxAttempts      = 3
	retryBackoffStep = 100 * time.Millisecond
)

// CreateBooking reserves tickets for a user. Capacity is enforced with a
// conditional UPDATE per ticket type inside the transaction; the cheap
// pre-transaction estimate can race with a concurrently committing booking,
// which the bounded retry absorbs.
func CreateBooking(ctx context.Context, eventID uint, items []types.BookingItem, userID uint) (*types.BookingResult, error) {
	if len(items) == 0 {
		return nil, types.ValidationError("a booking needs at least one ticket request")
	}
	for _, item := range items {
		if item.Qty == 0 {
			return nil, types.ValidationError("quantity for ticket type %d must be positive", item.TicketTypeID)
		}
	}

	event, user, err := checkPreconditions(eventID, items, userID)
	if err != nil {
		monitoring.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	var result *types.BookingResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = createBookingTx(event, items, userID)
		if err == nil {
			break
		}
		if !types.IsKind(err, types.KindCapacityExceeded) {
			monitoring.BookingsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}
		monitoring.CapacityRetries.Inc()
		log.Printf("Booking attempt %d for event %d hit a capacity conflict, retrying\n", attempt, eventID)
		select {
		case <-time.After(time.Duration(attempt) * retryBackoffStep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		monitoring.BookingsTotal.WithLabelValues("capacity_exceeded").Inc()
		return nil, types.CapacityExceededError("system busy, please try again")
	}

	monitoring.BookingsTotal.WithLabelValues("created").Inc()
	monitoring.TicketsIssued.Add(float64(len(result.Tickets)))
	notifyBookingCreated(user, event, result)
	return result, nil
}

// checkPreconditions runs the cheap checks outside any transaction: event
// exists and is open for sale, rough demand fits the event capacity, and the
// user has no other unpaid booking for the same event.
func checkPreconditions(eventID uint, items []types.BookingItem, userID uint) (*models.Event, *models.User, error) {
	gdb := db.GetDb()
	var event models.Event
	if err := gdb.
		Model(&models.Event{}).
		Where(&models.Event{ID: eventID}).
		First(&event).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.NotFoundError("event %d not found", eventID)
		}
		return nil, nil, err
	}
	if event.Status != types.EVENT_PUBLISHED {
		return nil, nil, types.InvalidStateError("event %d is not open for booking", eventID)
	}
	now := time.Now()
	if now.After(event.EndsAt) {
		return nil, nil, types.InvalidStateError("event %d has already ended", eventID)
	}

	var requested uint
	for _, item := range items {
		requested += item.Qty
	}
	var issued int64
	if err := gdb.
		Model(&models.Ticket{}).
		Where("event_id = ? AND status <> ?", eventID, types.TICKET_CANCELED).
		Count(&issued).
		Error; err != nil {
		return nil, nil, err
	}
	if uint(issued)+requested > event.Capacity {
		return nil, nil, types.CapacityExceededError("event %d does not have %d seats left", eventID, requested)
	}

	var pending int64
	if err := gdb.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: userID, EventID: eventID, Status: types.BOOKING_PENDING}).
		Count(&pending).
		Error; err != nil {
		return nil, nil, err
	}
	if pending > 0 {
		return nil, nil, types.InvalidStateError("you already have an unpaid booking for this event")
	}

	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{ID: userID}).
		First(&user).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.NotFoundError("user %d not found", userID)
		}
		return nil, nil, err
	}
	return &event, &user, nil
}

// createBookingTx is one transactional attempt. Every ticket-type counter is
// claimed through a conditional UPDATE before any Ticket row exists, so a
// failed claim aborts the whole booking with nothing allocated.
func createBookingTx(event *models.Event, items []types.BookingItem, userID uint) (*types.BookingResult, error) {
	gdb := db.GetDb()
	var result types.BookingResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		validUntil := now.Add(config.PENDING_BOOKING_TTL_MINUTES * time.Minute)
		booking := models.Booking{
			UserID:     userID,
			EventID:    event.ID,
			Status:     types.BOOKING_PENDING,
			ValidUntil: &validUntil,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		for _, item := range items {
			res := tx.Exec(
				"UPDATE ticket_types SET sold = sold + ? WHERE id = ? AND event_id = ? AND is_active = ? AND sold + ? <= quantity",
				item.Qty, item.TicketTypeID, event.ID, true, item.Qty,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return types.CapacityExceededError("ticket type %d has no more slots available", item.TicketTypeID)
			}
		}

		total := decimal.Zero
		tickets := make([]types.BookingTicket, 0, len(items))
		for _, item := range items {
			price, err := pricing.CurrentPrice(tx, item.TicketTypeID, now)
			if err != nil {
				return err
			}
			for i := uint(0); i < item.Qty; i++ {
				code, err := utils.NewTicketCode(event.Title)
				if err != nil {
					return err
				}
				ticket := models.Ticket{
					BookingID:    booking.ID,
					TicketTypeID: item.TicketTypeID,
					EventID:      event.ID,
					Price:        price.InexactFloat64(),
					Status:       types.TICKET_RESERVED,
					QrCode:       code,
					HolderName:   item.HolderName,
					HolderPhone:  item.HolderPhone,
				}
				if err := tx.Create(&ticket).Error; err != nil {
					return err
				}
				total = total.Add(price)
				tickets = append(tickets, types.BookingTicket{
					TicketID: ticket.ID,
					QrCode:   ticket.QrCode,
					Price:    ticket.Price,
					Status:   ticket.Status,
				})
			}
		}

		totalAmount := total.Round(2).InexactFloat64()
		status := types.BOOKING_PENDING
		isFree := total.IsZero()
		if isFree {
			// Nothing to collect: self-confirm and synthesize a paid record,
			// bypassing the payment gateway entirely.
			status = types.BOOKING_CONFIRMED
			payment := models.Payment{
				BookingID: booking.ID,
				Amount:    0,
				Provider:  "free",
				Status:    types.PAYMENT_PAID,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			Updates(map[string]any{"total_amount": totalAmount, "status": status}).
			Error; err != nil {
			return err
		}

		result = types.BookingResult{
			BookingID:   booking.ID,
			Status:      status,
			TotalAmount: totalAmount,
			IsFree:      isFree,
			Tickets:     tickets,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelBooking releases a pending booking: booking and tickets flip to
// canceled and the Sold counters are handed back, floored at zero, in one
// transaction. Confirmed bookings cannot be canceled through this path.
func CancelBooking(bookingID uint, userID uint) error {
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: bookingID, UserID: userID}).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFoundError("booking %d not found", bookingID)
			}
			return err
		}
		if booking.Status != types.BOOKING_PENDING {
			return types.InvalidStateError("only pending bookings can be canceled")
		}
		return releaseBookingTx(tx, &booking, types.BOOKING_CANCELED)
	})
	if err == nil {
		monitoring.BookingsTotal.WithLabelValues("canceled").Inc()
	}
	return err
}

// releaseBookingTx flips the booking to its terminal status and hands the
// ticket slots back.
func releaseBookingTx(tx *gorm.DB, booking *models.Booking, newStatus types.BookingStatus) error {
	if err := tx.
		Model(&models.Booking{}).
		Where(&models.Booking{ID: booking.ID}).
		Update("status", newStatus).
		Error; err != nil {
		return err
	}
	return releaseTicketsTx(tx, booking.ID)
}

func notifyBookingCreated(user *models.User, event *models.Event, result *types.BookingResult) {
	if user.Email == "" {
		return
	}
	email := user.Email
	subject := fmt.Sprintf("Your booking for %s", event.Title)
	body := fmt.Sprintf("Booking %d created with %d ticket(s), total %.2f.", result.BookingID, len(result.Tickets), result.TotalAmount)
	if result.IsFree {
		body = fmt.Sprintf("Booking %d confirmed with %d free ticket(s). See you there!", result.BookingID, len(result.Tickets))
	}
	workers.Enqueue("booking-confirmation-mail", func(ctx context.Context) error {
		return lib.SendMail(&lib.SendMailInput{
			From:    "noreply@etix.local",
			To:      email,
			Subject: subject,
			Body:    body,
		})
	})
}
