// services/analytics_service.go
package services

import (
	"log"
	"sort"
	"sync"
	"time"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// snapshotTTL matches the dashboard's observed 60s cache window.
const snapshotTTL = 60 * time.Second

const topEarnersLimit = 10

type AnalyticsService struct {
	DB *gorm.DB

	mu    sync.RWMutex
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snapshot  models.AnalyticsSnapshot
	fetchedAt time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db, cache: make(map[string]cachedSnapshot)}
}

// GetAnalytics serves a rollup snapshot for ?range=week|month|quarter|year
// or an explicit ?start=...&end=... (RFC 3339) window. Preset ranges are
// cached for 60 seconds; explicit windows are always computed fresh.
func (s *AnalyticsService) GetAnalytics(c *fiber.Ctx) error {
	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr != "" || endStr != "" {
		start, err1 := time.Parse(time.RFC3339, startStr)
		end, err2 := time.Parse(time.RFC3339, endStr)
		if err1 != nil || err2 != nil || !end.After(start) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start and end must be RFC 3339 timestamps with end after start"})
		}
		snapshot, err := s.computeSnapshot(start, end)
		if err != nil {
			log.Printf("DB Error computing analytics: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute analytics"})
		}
		return c.JSON(snapshot)
	}

	timeRange := models.TimeRange(c.Query("range", string(models.TimeRangeMonth)))
	start, end, ok := rangeBounds(timeRange, time.Now().UTC())
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid range, expected week|month|quarter|year"})
	}

	if snapshot, hit := s.cachedFor(string(timeRange)); hit {
		return c.JSON(snapshot)
	}

	snapshot, err := s.computeSnapshot(start, end)
	if err != nil {
		log.Printf("DB Error computing analytics: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute analytics"})
	}
	s.storeSnapshot(string(timeRange), snapshot)
	return c.JSON(snapshot)
}

func (s *AnalyticsService) cachedFor(key string) (models.AnalyticsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Since(entry.fetchedAt) > snapshotTTL {
		return models.AnalyticsSnapshot{}, false
	}
	return entry.snapshot, true
}

func (s *AnalyticsService) storeSnapshot(key string, snapshot models.AnalyticsSnapshot) {
	s.mu.Lock()
	s.cache[key] = cachedSnapshot{snapshot: snapshot, fetchedAt: time.Now()}
	s.mu.Unlock()
}

// WarmRange recomputes and caches one preset range; used by the
// scheduler so dashboard reads rarely pay the aggregation cost.
func (s *AnalyticsService) WarmRange(timeRange models.TimeRange) error {
	start, end, ok := rangeBounds(timeRange, time.Now().UTC())
	if !ok {
		return nil
	}
	snapshot, err := s.computeSnapshot(start, end)
	if err != nil {
		return err
	}
	s.storeSnapshot(string(timeRange), snapshot)
	return nil
}

func (s *AnalyticsService) computeSnapshot(start, end time.Time) (models.AnalyticsSnapshot, error) {
	var entries []models.LedgerEntry
	if err := s.DB.
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&entries).Error; err != nil {
		return models.AnalyticsSnapshot{}, err
	}

	snapshot := aggregateEntries(entries)
	snapshot.RangeStart = start
	snapshot.RangeEnd = end
	snapshot.GeneratedAt = time.Now().UTC()

	// Best effort username enrichment from the recipient mirror
	s.attachUsernames(snapshot.TopEarners)

	return snapshot, nil
}

func (s *AnalyticsService) attachUsernames(earners []models.TopEarner) {
	if len(earners) == 0 {
		return
	}
	ids := make([]string, 0, len(earners))
	for _, e := range earners {
		ids = append(ids, e.RecipientID)
	}
	var mirrors []models.RecipientMirror
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&mirrors).Error; err != nil {
		log.Printf("DB Error enriching top earners: %v", err)
		return
	}
	byID := make(map[string]string, len(mirrors))
	for _, m := range mirrors {
		byID[m.ExternalUserID] = m.Username
	}
	for i := range earners {
		earners[i].Username = byID[earners[i].RecipientID]
	}
}

// aggregateEntries is the pure rollup over a set of ledger entries.
// Top earners are ranked by total amount descending; ties break on the
// lexicographically smallest recipient id so the ordering is stable.
func aggregateEntries(entries []models.LedgerEntry) models.AnalyticsSnapshot {
	byRole := make(map[models.RecipientRole]*models.RoleRevenue)
	byContent := make(map[string]*models.ContentRevenue)
	byRecipient := make(map[string]*models.TopEarner)

	for _, e := range entries {
		if r, ok := byRole[e.Role]; ok {
			r.TotalAmount = r.TotalAmount.Add(e.ShareAmount)
			r.EntryCount++
		} else {
			byRole[e.Role] = &models.RoleRevenue{Role: e.Role, TotalAmount: e.ShareAmount, EntryCount: 1}
		}

		if cr, ok := byContent[e.ContentType]; ok {
			cr.TotalAmount = cr.TotalAmount.Add(e.ShareAmount)
			cr.EntryCount++
		} else {
			byContent[e.ContentType] = &models.ContentRevenue{ContentType: e.ContentType, TotalAmount: e.ShareAmount, EntryCount: 1}
		}

		if te, ok := byRecipient[e.RecipientID]; ok {
			te.TotalAmount = te.TotalAmount.Add(e.ShareAmount)
			te.EntryCount++
		} else {
			byRecipient[e.RecipientID] = &models.TopEarner{RecipientID: e.RecipientID, TotalAmount: e.ShareAmount, EntryCount: 1}
		}
	}

	snapshot := models.AnalyticsSnapshot{
		RevenueByRole:    make([]models.RoleRevenue, 0, len(byRole)),
		RevenueByContent: make([]models.ContentRevenue, 0, len(byContent)),
		TopEarners:       make([]models.TopEarner, 0, len(byRecipient)),
	}
	for _, r := range byRole {
		snapshot.RevenueByRole = append(snapshot.RevenueByRole, *r)
	}
	sort.Slice(snapshot.RevenueByRole, func(i, j int) bool {
		return snapshot.RevenueByRole[i].Role < snapshot.RevenueByRole[j].Role
	})

	for _, cr := range byContent {
		snapshot.RevenueByContent = append(snapshot.RevenueByContent, *cr)
	}
	sort.Slice(snapshot.RevenueByContent, func(i, j int) bool {
		return snapshot.RevenueByContent[i].ContentType < snapshot.RevenueByContent[j].ContentType
	})

	for _, te := range byRecipient {
		snapshot.TopEarners = append(snapshot.TopEarners, *te)
	}
	sort.Slice(snapshot.TopEarners, func(i, j int) bool {
		if !snapshot.TopEarners[i].TotalAmount.Equal(snapshot.TopEarners[j].TotalAmount) {
			return snapshot.TopEarners[i].TotalAmount.GreaterThan(snapshot.TopEarners[j].TotalAmount)
		}
		return snapshot.TopEarners[i].RecipientID < snapshot.TopEarners[j].RecipientID
	})
	if len(snapshot.TopEarners) > topEarnersLimit {
		snapshot.TopEarners = snapshot.TopEarners[:topEarnersLimit]
	}

	return snapshot
}

// rangeBounds converts a preset range into [start, end) ending now.
func rangeBounds(timeRange models.TimeRange, now time.Time) (time.Time, time.Time, bool) {
	switch timeRange {
	case models.TimeRangeWeek:
		return now.AddDate(0, 0, -7), now, true
	case models.TimeRangeMonth:
		return now.AddDate(0, -1, 0), now, true
	case models.TimeRangeQuarter:
		return now.AddDate(0, -3, 0), now, true
	case models.TimeRangeYear:
		return now.AddDate(-1, 0, 0), now, true
	}
	return time.Time{}, time.Time{}, false
}
