package scan

import (
	"errors"
	"log"
	"time"

	"etix/src/db"
	"etix/src/models"
	"etix/src/monitoring"
	"etix/src/types"

	"gorm.io/gorm"
)

// Audit log reasons. Authorization failures are reported with the same
// surface as ticket-state failures so an out-of-scope scanner learns nothing
// about the ticket itself.
const (
	ReasonAdmitted      = "admitted"
	ReasonUnauthorized  = "scanner is not authorized"
	ReasonNotAssigned   = "not assigned to this event"
	ReasonAlreadyUsed   = "ticket has already been used"
	ReasonCanceled      = "ticket has been canceled"
	ReasonEventNotBegun = "event has not started"
	ReasonEventEnded    = "event already ended"
)

type ScanInput struct {
	QrCode        string
	ScannerUserID uint
	DeviceID      *string
	Location      *string
}

// ScanTicket validates and consumes one ticket. Business failures are never
// errors: the result always comes back structured, and every attempt past
// ticket lookup leaves an audit row. The returned error is reserved for
// storage failures.
func ScanTicket(in ScanInput) (*types.ScanResult, error) {
	gdb := db.GetDb()
	now := time.Now()

	var ticket models.Ticket
	if err := gdb.
		Model(&models.Ticket{}).
		Where(&models.Ticket{QrCode: in.QrCode}).
		Preload("Event").
		Preload("TicketType").
		Preload("Booking").
		First(&ticket).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to relate an audit row to.
			monitoring.ScansTotal.WithLabelValues("unknown_code").Inc()
			return &types.ScanResult{IsValid: false, Message: "invalid ticket code"}, nil
		}
		return nil, err
	}
	event := ticket.Event

	var gate models.GatePerson
	if err := gdb.
		Model(&models.GatePerson{}).
		Where(&models.GatePerson{UserID: in.ScannerUserID, IsActive: true}).
		First(&gate).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidScan(gdb, &gate, in, &ticket, now, ReasonUnauthorized)
		}
		return nil, err
	}

	if gate.OrganizerID != event.OrganizerID || (len(gate.EventIDs) > 0 && !gate.EventIDs.Contains(event.ID)) {
		return invalidScan(gdb, &gate, in, &ticket, now, ReasonNotAssigned)
	}

	if ticket.Status == types.TICKET_CHECKED_IN {
		return invalidScan(gdb, &gate, in, &ticket, now, ReasonAlreadyUsed)
	}
	if ticket.Status == types.TICKET_CANCELED {
		return invalidScan(gdb, &gate, in, &ticket, now, ReasonCanceled)
	}

	if beforeEventDay(now, event.StartsAt) {
		return invalidScan(gdb, &gate, in, &ticket, now, ReasonEventNotBegun)
	}
	if now.After(event.EndsAt) {
		return invalidScan(gdb, &gate, in, &ticket, now, ReasonEventEnded)
	}

	var admitted bool
	err := gdb.Transaction(func(tx *gorm.DB) error {
		// The conditional UPDATE closes the double-admission race: two
		// simultaneous scans both reach this point, only one row flip wins.
		res := tx.Exec(
			"UPDATE tickets SET status = ?, checked_in_at = ? WHERE id = ? AND status = ?",
			types.TICKET_CHECKED_IN, now, ticket.ID, types.TICKET_RESERVED,
		)
		if res.Error != nil {
			return res.Error
		}
		admitted = res.RowsAffected > 0
		reason := ReasonAdmitted
		if !admitted {
			reason = ReasonAlreadyUsed
		}
		return tx.Create(newScanLog(&gate, in, &ticket, now, admitted, reason)).Error
	})
	if err != nil {
		return nil, err
	}
	if !admitted {
		monitoring.ScansTotal.WithLabelValues("invalid").Inc()
		return &types.ScanResult{IsValid: false, Message: ReasonAlreadyUsed, TicketID: &ticket.ID}, nil
	}

	monitoring.ScansTotal.WithLabelValues("valid").Inc()
	result := &types.ScanResult{
		IsValid:       true,
		Message:       "ticket admitted",
		TicketID:      &ticket.ID,
		TicketHolder:  ticket.HolderName,
		EventName:     &event.Title,
		EventStartsAt: &event.StartsAt,
		EventEndsAt:   &event.EndsAt,
	}
	if ticket.TicketType != nil {
		result.TicketType = &ticket.TicketType.Name
	}
	return result, nil
}

// beforeEventDay compares calendar dates, not instants: gates open on the
// event's start date, not its start minute.
func beforeEventDay(now, startsAt time.Time) bool {
	ny, nm, nd := now.Date()
	sy, sm, sd := startsAt.Date()
	nowDay := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	startDay := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	return nowDay.Before(startDay)
}

func newScanLog(gate *models.GatePerson, in ScanInput, ticket *models.Ticket, now time.Time, isValid bool, reason string) *models.TicketScanLog {
	return &models.TicketScanLog{
		GatePersonID: gate.ID,
		ScannerID:    in.ScannerUserID,
		TicketID:     &ticket.ID,
		EventID:      ticket.EventID,
		QrCode:       in.QrCode,
		IsValid:      isValid,
		Reason:       reason,
		DeviceID:     in.DeviceID,
		Location:     in.Location,
		ScannedAt:    now,
	}
}

func invalidScan(gdb *gorm.DB, gate *models.GatePerson, in ScanInput, ticket *models.Ticket, now time.Time, reason string) (*types.ScanResult, error) {
	if err := gdb.Create(newScanLog(gate, in, ticket, now, false, reason)).Error; err != nil {
		log.Printf("Error writing scan log for ticket %d: %s\n", ticket.ID, err.Error())
		return nil, err
	}
	monitoring.ScansTotal.WithLabelValues("invalid").Inc()
	result := &types.ScanResult{IsValid: false, Message: reason}
	if reason != ReasonUnauthorized && reason != ReasonNotAssigned {
		// An unauthorized scanner learns nothing about the ticket itself.
		result.TicketID = &ticket.ID
	}
	return result, nil
}
