// services/scheduler.go
package services

import (
	"log"
	"time"

	"revenue-share-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartSnapshotScheduler warms the preset analytics ranges every minute
// so dashboard reads stay inside the cache window.
func (s *AnalyticsService) StartSnapshotScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			for _, r := range []models.TimeRange{models.TimeRangeWeek, models.TimeRangeMonth} {
				if err := s.WarmRange(r); err != nil {
					log.Printf("[Scheduler] Failed to warm %s analytics: %v", r, err)
				}
			}
		}),
	)
}

// StartPayoutReconciler marks entries stuck in processing beyond
// staleAfter as failed so the external payout subsystem retries them.
func (s *LedgerService) StartPayoutReconciler(staleAfter time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-staleAfter)
			var stuck []models.LedgerEntry
			err := s.DB.
				Where("payout_status = ? AND created_at <= ?", models.PayoutStatusProcessing, cutoff).
				Find(&stuck).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, entry := range stuck {
				if _, err := s.TransitionPayoutStatus(entry.ID, models.PayoutStatusFailed); err != nil {
					log.Printf("[Scheduler] Failed to fail stuck payout %s: %v", entry.ID, err)
				} else {
					log.Printf("✅ Marked stuck payout as failed: %s (recipient %s)", entry.ID, entry.RecipientID)
				}
			}
		}),
	)
}
