package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"etix/src/db"
	"etix/src/lib"
	"etix/src/models"
	"etix/src/types"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// CreateCheckoutSession opens a hosted stripe checkout for a pending booking
// and returns its URL. The webhook delivers the confirmation; this call only
// hands the payment off.
func CreateCheckoutSession(bookingID uint, userID uint) (*string, error) {
	gdb := db.GetDb()
	var booking models.Booking
	if err := gdb.
		Model(&models.Booking{}).
		Where(&models.Booking{ID: bookingID, UserID: userID}).
		Preload("Event").
		First(&booking).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFoundError("booking %d not found", bookingID)
		}
		return nil, err
	}
	if booking.Status != types.BOOKING_PENDING {
		return nil, types.InvalidStateError("booking %d is not awaiting payment", bookingID)
	}

	type lineItem struct {
		TicketTypeID uint
		Name         string
		Price        float64
		N            int64
	}
	var lines []lineItem
	if err := gdb.
		Model(&models.Ticket{}).
		Select("tickets.ticket_type_id, ticket_types.name, tickets.price, COUNT(*) AS n").
		Joins("JOIN ticket_types ON ticket_types.id = tickets.ticket_type_id").
		Where("tickets.booking_id = ? AND tickets.status = ?", bookingID, types.TICKET_RESERVED).
		Group("tickets.ticket_type_id, ticket_types.name, tickets.price").
		Scan(&lines).
		Error; err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, types.InvalidStateError("booking %d has no reserved tickets", bookingID)
	}

	metadata := map[string]string{
		"booking_id": strconv.FormatUint(uint64(bookingID), 10),
	}
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL: stripe.String(successUrl),
		UIMode:     stripe.String("hosted"),
		Mode:       stripe.String("payment"),
		Metadata:   metadata,
	}
	for _, line := range lines {
		unitAmount := decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		createParams.LineItems = append(createParams.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Quantity: stripe.Int64(line.N),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(unitAmount),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s - %s", booking.Event.Title, line.Name)),
				},
			},
		})
	}

	sc := lib.GetStripeClient()
	checkoutSession, err := sc.V1CheckoutSessions.Create(context.Background(), &createParams)
	if err != nil {
		log.Printf("Error creating checkout session for booking %d: %s\n", bookingID, err.Error())
		return nil, err
	}
	log.Printf("CheckoutSessionID: %s\n", checkoutSession.ID)

	payment := models.Payment{
		BookingID:   bookingID,
		Amount:      booking.TotalAmount,
		Provider:    "stripe",
		ReferenceID: checkoutSession.ID,
		Status:      types.PAYMENT_PENDING,
	}
	if err := gdb.Create(&payment).Error; err != nil {
		log.Printf("Error recording checkout for booking %d: %s\n", bookingID, err.Error())
	}
	return &checkoutSession.URL, nil
}
