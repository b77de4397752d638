package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketScanLog is append-only. One row per scan attempt past ticket lookup,
// valid or not; rows are never updated or deleted.
type TicketScanLog struct {
	ID           uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	GatePersonID uint      `json:"gate_person_id,omitempty"`
	ScannerID    uint      `json:"scanner_id,omitempty"`
	TicketID     *uint     `json:"ticket_id,omitempty"`
	EventID      uint      `json:"event_id,omitempty"`
	QrCode       string    `json:"qr_code,omitempty"`
	IsValid      bool      `json:"is_valid"`
	Reason       string    `json:"reason,omitempty"`
	DeviceID     *string   `json:"device_id,omitempty"`
	Location     *string   `json:"location,omitempty"`
	ScannedAt    time.Time `json:"scanned_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
}

func (l *TicketScanLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
