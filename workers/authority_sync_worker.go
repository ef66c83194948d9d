package workers

import (
	"context"
	"log"
	"time"

	"nft-campaign-system/models"
	"nft-campaign-system/services"
)

// PollAuthority periodically reconciles active campaigns against the
// minting authority. Only campaigns with outstanding reservations are
// pulled: a campaign nobody is holding tokens in cannot have drifted since
// the last manual sync.
func PollAuthority(ctx context.Context, reconcile *services.ReconcileService, campaigns services.CampaignRepo, items services.InventoryRepo, pollInterval time.Duration) {
	log.Println("Starting authority sync polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Authority sync polling stopped.")
			return
		case <-ticker.C:
			active, err := campaigns.ListByStatus(models.CampaignStatusActive)
			if err != nil {
				log.Printf("❌ Error listing active campaigns: %v", err)
				continue
			}

			for _, c := range active {
				counts, err := items.CountByStatus(c.ID)
				if err != nil {
					log.Printf("❌ Error counting inventory for campaign %s: %v", c.ID, err)
					continue
				}
				if counts.Reserved == 0 {
					continue
				}

				summary, err := reconcile.PullAndSyncAll(ctx, c.ID, "auto_sync", "")
				if err != nil {
					log.Printf("❌ Auto-sync failed for campaign %s: %v", c.Name, err)
					continue
				}
				if summary.Applied > 0 || summary.Skipped > 0 {
					log.Printf("📥 Auto-sync for %s: %d applied, %d flagged", c.Name, summary.Applied, summary.Skipped)
				}
			}
		}
	}
}
