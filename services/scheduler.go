// services/scheduler.go
package services

import (
	"log"
	"time"

	"nft-campaign-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: releasing
// expired reservations and auditing the cached counters against the
// inventory. Returns the scheduler so the caller can shut it down.
func StartMaintenanceScheduler(reservations *ReservationService, store *InventoryStore, campaigns CampaignRepo) gocron.Scheduler {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every hour: release expired reservations on active campaigns that
	// opted into cleanup.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			active, err := campaigns.ListByStatus(models.CampaignStatusActive)
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, c := range active {
				if !c.ReservationCleanupEnabled {
					continue
				}
				released, err := reservations.SweepExpired(c.ID)
				if err != nil {
					log.Printf("[Scheduler] Failed to sweep campaign %s: %v", c.ID, err)
					continue
				}
				if released > 0 {
					log.Printf("✅ Released %d expired reservation(s) in campaign: %s", released, c.Name)
				}
			}
		}),
	)

	// Daily: recompute counters for every campaign and log drift. The
	// recompute itself is the correction.
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			all, err := campaigns.List()
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, c := range all {
				before := models.CounterSet{Total: c.TotalTokens, Available: c.AvailableTokens, Reserved: c.ReservedTokens, Sold: c.SoldTokens}
				after, err := store.RecomputeCounters(c.ID)
				if err != nil {
					log.Printf("[Scheduler] Failed counter audit for campaign %s: %v", c.ID, err)
					continue
				}
				if before != after {
					log.Printf("⚠️ Counter drift corrected for campaign %s: %+v → %+v", c.Name, before, after)
				}
			}
		}),
	)

	return sched
}
