package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"etix/src/db"
	"etix/src/lib"
	"etix/src/models"
	"etix/src/types"

	"github.com/redis/go-redis/v9"
)

const summaryCacheTTL = 30 * time.Second

// GetEventScanLogs returns the newest scan attempts for an event. Pure read
// over the audit log; not part of the write path.
func GetEventScanLogs(eventID uint, limit int) ([]models.TicketScanLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	gdb := db.GetDb()
	var logs []models.TicketScanLog
	err := gdb.
		Model(&models.TicketScanLog{}).
		Where(&models.TicketScanLog{EventID: eventID}).
		Order("scanned_at DESC").
		Limit(limit).
		Find(&logs).
		Error
	return logs, err
}

// GetScanSummary aggregates the audit log for an event, cached briefly in
// redis since gate dashboards poll it.
func GetScanSummary(eventID uint) (*types.ScanSummary, error) {
	cacheKey := summaryCacheKey(eventID)
	if rd := lib.GetRedisClient(); rd != nil {
		cached, err := rd.Get(context.Background(), cacheKey).Result()
		if err == nil {
			var summary types.ScanSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("Error reading scan summary from cache: %s\n", err.Error())
		}
	}

	gdb := db.GetDb()
	summary := types.ScanSummary{EventID: eventID, ByReason: map[string]int64{}}
	if err := gdb.
		Model(&models.TicketScanLog{}).
		Where(&models.TicketScanLog{EventID: eventID}).
		Count(&summary.Total).
		Error; err != nil {
		return nil, err
	}
	if err := gdb.
		Model(&models.TicketScanLog{}).
		Where("event_id = ? AND is_valid = ?", eventID, true).
		Count(&summary.Valid).
		Error; err != nil {
		return nil, err
	}
	summary.Invalid = summary.Total - summary.Valid

	type reasonCount struct {
		Reason string
		N      int64
	}
	var reasons []reasonCount
	if err := gdb.
		Model(&models.TicketScanLog{}).
		Select("reason, COUNT(*) AS n").
		Where("event_id = ? AND is_valid = ?", eventID, false).
		Group("reason").
		Scan(&reasons).
		Error; err != nil {
		return nil, err
	}
	for _, r := range reasons {
		summary.ByReason[r.Reason] = r.N
	}

	if rd := lib.GetRedisClient(); rd != nil {
		if payload, err := json.Marshal(&summary); err == nil {
			if err := rd.SetEx(context.Background(), cacheKey, string(payload), summaryCacheTTL).Err(); err != nil {
				log.Printf("Error caching scan summary: %s\n", err.Error())
			}
		}
	}
	return &summary, nil
}

func summaryCacheKey(eventID uint) string {
	return fmt.Sprintf("scan_summary:%d", eventID)
}

// GetGatePersonRecentScans returns the latest attempts recorded for a gate
// person across all their events.
func GetGatePersonRecentScans(gatePersonID uint, limit int) ([]models.TicketScanLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	gdb := db.GetDb()
	var logs []models.TicketScanLog
	err := gdb.
		Model(&models.TicketScanLog{}).
		Where(&models.TicketScanLog{GatePersonID: gatePersonID}).
		Order("scanned_at DESC").
		Limit(limit).
		Find(&logs).
		Error
	return logs, err
}
