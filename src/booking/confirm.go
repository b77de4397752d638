package booking

import (
	"errors"
	"log"
	"time"

	"etix/src/db"
	"etix/src/models"
	"etix/src/types"

	"gorm.io/gorm"
)

// ConfirmBookingPaid is the external payment signal. The pending→confirmed
// flip is a conditional UPDATE so a duplicate webhook delivery cannot confirm
// twice or resurrect a canceled booking.
func ConfirmBookingPaid(bookingID uint, referenceID string) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: bookingID}).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFoundError("booking %d not found", bookingID)
			}
			return err
		}
		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, types.BOOKING_PENDING).
			Update("status", types.BOOKING_CONFIRMED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.InvalidStateError("booking %d is not awaiting payment", bookingID)
		}
		// A checkout hand-off already recorded a pending payment for this
		// session; settle that row instead of stacking a second one.
		res = tx.
			Model(&models.Payment{}).
			Where("booking_id = ? AND reference_id = ? AND status = ?", bookingID, referenceID, types.PAYMENT_PENDING).
			Update("status", types.PAYMENT_PAID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		payment := models.Payment{
			BookingID:   bookingID,
			Amount:      booking.TotalAmount,
			Provider:    "stripe",
			ReferenceID: referenceID,
			Status:      types.PAYMENT_PAID,
		}
		return tx.Create(&payment).Error
	})
}

// ExpirePendingBookings releases pending bookings whose payment window has
// lapsed. Wired to a recurring scheduler job in boot; each booking is handled
// in its own transaction so one failure does not hold the rest back.
func ExpirePendingBookings(now time.Time) (int, error) {
	gdb := db.GetDb()
	var stale []models.Booking
	if err := gdb.
		Model(&models.Booking{}).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", types.BOOKING_PENDING, now).
		Find(&stale).
		Error; err != nil {
		return 0, err
	}
	expired := 0
	for i := range stale {
		b := stale[i]
		err := gdb.Transaction(func(tx *gorm.DB) error {
			res := tx.
				Model(&models.Booking{}).
				Where("id = ? AND status = ?", b.ID, types.BOOKING_PENDING).
				Update("status", types.BOOKING_EXPIRED)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Confirmed or canceled since we read it.
				return nil
			}
			return releaseTicketsTx(tx, b.ID)
		})
		if err != nil {
			log.Printf("Error expiring booking %d: %s\n", b.ID, err.Error())
			continue
		}
		expired++
	}
	return expired, nil
}

// releaseTicketsTx cancels the reserved tickets of a booking and returns
// their slots, without touching the booking row.
func releaseTicketsTx(tx *gorm.DB, bookingID uint) error {
	type typeCount struct {
		TicketTypeID uint
		N            uint
	}
	var counts []typeCount
	if err := tx.
		Model(&models.Ticket{}).
		Select("ticket_type_id, COUNT(*) AS n").
		Where("booking_id = ? AND status = ?", bookingID, types.TICKET_RESERVED).
		Group("ticket_type_id").
		Scan(&counts).
		Error; err != nil {
		return err
	}
	if err := tx.
		Model(&models.Ticket{}).
		Where("booking_id = ? AND status = ?", bookingID, types.TICKET_RESERVED).
		Update("status", types.TICKET_CANCELED).
		Error; err != nil {
		return err
	}
	for _, c := range counts {
		if err := tx.Exec(
			"UPDATE ticket_types SET sold = CASE WHEN sold >= ? THEN sold - ? ELSE 0 END WHERE id = ?",
			c.N, c.N, c.TicketTypeID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
