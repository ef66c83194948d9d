package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"nft-campaign-system/clock"
	"nft-campaign-system/metrics"
	"nft-campaign-system/models"

	"github.com/google/uuid"
)

// SyncLogRepo records reconciliation runs.
type SyncLogRepo interface {
	Create(l *models.SyncLog) error
	Recent(campaignID string, limit int) ([]models.SyncLog, error)
}

// ReconcileService compares the local ledger against external-authority
// snapshots and applies corrections. Compute and apply are separate steps so
// an operator can inspect discrepancies before committing irreversible sold
// transitions.
type ReconcileService struct {
	store        *InventoryStore
	reservations ReservationRepo
	campaigns    CampaignRepo
	syncLogs     SyncLogRepo
	authority    ExternalAuthorityClient
	clk          clock.Clock
}

func NewReconcileService(store *InventoryStore, reservations ReservationRepo, campaigns CampaignRepo, syncLogs SyncLogRepo, authority ExternalAuthorityClient, clk clock.Clock) *ReconcileService {
	return &ReconcileService{
		store:        store,
		reservations: reservations,
		campaigns:    campaigns,
		syncLogs:     syncLogs,
		authority:    authority,
		clk:          clk,
	}
}

// statusRank orders the lifecycle so classification can tell which side is
// behind. available < reserved < sold.
func statusRank(s models.TokenStatus) int {
	switch s {
	case models.TokenStatusReserved:
		return 1
	case models.TokenStatusSold:
		return 2
	}
	return 0
}

// ComputeDiscrepancies is the pure half of reconciliation: it reads the
// campaign's inventory, looks each token up in the snapshot, and classifies
// every disagreement. Tokens absent from the snapshot are skipped — the
// snapshot may be partial. No writes happen here.
func (s *ReconcileService) ComputeDiscrepancies(campaignID string, snapshot models.AuthoritySnapshot) ([]models.Discrepancy, error) {
	inventory, err := s.store.Get(campaignID)
	if err != nil {
		return nil, err
	}

	var found []models.Discrepancy
	for _, item := range inventory {
		ext, ok := snapshot[item.ExternalTokenID]
		if !ok {
			continue
		}
		if d := classify(item, ext); d != nil {
			found = append(found, *d)
		}
	}
	return found, nil
}

// classify returns nil when local and external agree.
func classify(item models.InventoryItem, ext models.TokenState) *models.Discrepancy {
	d := &models.Discrepancy{
		ExternalTokenID:  item.ExternalTokenID,
		DisplayNumber:    item.DisplayNumber,
		Name:             item.Name,
		LocalStatus:      item.Status,
		ExternalStatus:   ext.Status,
		LocalClaimant:    item.ClaimedBy,
		ExternalClaimant: ext.Claimant,
	}

	if item.Status == ext.Status {
		if item.Status == models.TokenStatusSold &&
			item.ClaimedBy != "" && ext.Claimant != "" && item.ClaimedBy != ext.Claimant {
			d.Classification = models.DiscrepancyClaimantMismatch
			return d
		}
		return nil
	}

	if item.Status == models.TokenStatusSold && statusRank(ext.Status) < statusRank(models.TokenStatusSold) {
		// Local believes the sale happened but the authority disagrees.
		// Investigate, never auto-correct.
		d.Classification = models.DiscrepancyLocalAhead
		return d
	}

	d.Classification = models.DiscrepancyLocalBehind
	return d
}

// SyncOneInput is one corrective update taken from an authority snapshot.
type SyncOneInput struct {
	ExternalTokenID  string             `json:"external_token_id"`
	CampaignID       string             `json:"campaign_id"`
	ExternalStatus   models.TokenStatus `json:"external_status"`
	ExternalClaimant string             `json:"external_claimant,omitempty"`
}

// SyncResult reports what one corrective update did. Alarm is set when the
// immediate re-read after a reported success did not show the new status —
// a sign the store is not giving us the atomicity we assume. Surfaced, not
// retried.
type SyncResult struct {
	ExternalTokenID string             `json:"external_token_id"`
	OldStatus       models.TokenStatus `json:"old_status"`
	NewStatus       models.TokenStatus `json:"new_status"`
	Alarm           bool               `json:"alarm,omitempty"`
}

// SyncOne applies one external-authority state to the local ledger, scoped
// to the campaign, then recomputes the counters and verifies the write by
// re-reading the record.
func (s *ReconcileService) SyncOne(in SyncOneInput) (*SyncResult, error) {
	res, err := s.applyOne(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.RecomputeCounters(in.CampaignID); err != nil {
		return res, err
	}
	return res, nil
}

// applyOne is SyncOne without the counter recompute, so SyncAll can batch it.
func (s *ReconcileService) applyOne(in SyncOneInput) (*SyncResult, error) {
	claimant := in.ExternalClaimant
	if in.ExternalStatus == models.TokenStatusSold {
		// Prefer the claimant identity from our own reservation over the
		// authority's, which may be a payment hash rather than an identity
		// we track. Fall back to what the item already carries.
		if resv := s.activeReservationFor(in.CampaignID, in.ExternalTokenID); resv != nil {
			claimant = resv.ClaimantID
		} else if claimant == "" {
			if item, err := s.store.GetOne(in.ExternalTokenID, in.CampaignID); err == nil && item.ClaimedBy != "" {
				claimant = item.ClaimedBy
			}
		}
		if claimant == "" {
			log.Printf("[SYNC] cannot determine claimant for sold token %s in campaign %s", in.ExternalTokenID, in.CampaignID)
		}
	}

	change, err := s.store.SetStatus(SetStatusParams{
		ExternalTokenID: in.ExternalTokenID,
		CampaignID:      in.CampaignID,
		NewStatus:       in.ExternalStatus,
		Claimant:        claimant,
	})
	if err != nil {
		return nil, err
	}

	// The local reservation is finished either way: a sale converts it into
	// a completion record, a release just drops it.
	switch in.ExternalStatus {
	case models.TokenStatusSold:
		if resv := s.activeReservationFor(in.CampaignID, in.ExternalTokenID); resv != nil {
			if won, _ := s.reservations.Delete(resv.ID); won {
				_ = s.reservations.RecordCompletion(&models.ReservationRecord{
					ID:              uuid.NewString(),
					CampaignID:      resv.CampaignID,
					ExternalTokenID: resv.ExternalTokenID,
					ClaimantID:      resv.ClaimantID,
					PaymentRef:      resv.PaymentRef,
					CompletedAt:     s.clk.Now(),
				})
			}
		}
	case models.TokenStatusAvailable:
		_, _ = s.reservations.DeleteByToken(in.CampaignID, in.ExternalTokenID)
	}

	result := &SyncResult{
		ExternalTokenID: in.ExternalTokenID,
		OldStatus:       change.OldStatus,
		NewStatus:       change.NewStatus,
	}

	// Read-after-write check: a mismatch here means the store broke the
	// single-writer assumption. Alarm and move on; never mask it.
	reread, err := s.store.GetOne(in.ExternalTokenID, in.CampaignID)
	if err == nil && reread.Status != change.NewStatus {
		result.Alarm = true
		metrics.SyncAlarms.Inc()
		log.Printf("[SYNC] ⚠️ consistency alarm: token %s reported %s but reads back %s",
			in.ExternalTokenID, change.NewStatus, reread.Status)
	}

	metrics.SyncApplied.Inc()
	return result, nil
}

func (s *ReconcileService) activeReservationFor(campaignID, externalTokenID string) *models.Reservation {
	resvs, err := s.reservations.ListByCampaign(campaignID)
	if err != nil {
		return nil
	}
	for i := range resvs {
		if resvs[i].ExternalTokenID == externalTokenID {
			return &resvs[i]
		}
	}
	return nil
}

// SyncSummary is the legible outcome of a batch reconciliation.
type SyncSummary struct {
	Discrepancies int                  `json:"discrepancies"`
	Applied       int                  `json:"applied"`
	Skipped       int                  `json:"skipped"`
	Alarms        int                  `json:"alarms"`
	Flagged       []models.Discrepancy `json:"flagged,omitempty"` // local-ahead, left for investigation
	Errors        []string             `json:"errors,omitempty"`
}

// SyncAll computes the campaign's discrepancies against the snapshot and
// applies each correction sequentially, recomputing counters once at the
// end. local-ahead discrepancies are flagged and skipped — the external
// authority reporting an earlier state than a local sale is never silently
// corrected. Partial application is recoverable: the next run picks up
// whatever remains.
func (s *ReconcileService) SyncAll(ctx context.Context, campaignID string, snapshot models.AuthoritySnapshot, syncType, operatorID string) (*SyncSummary, error) {
	started := s.clk.Now()

	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}

	discrepancies, err := s.ComputeDiscrepancies(campaignID, snapshot)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{Discrepancies: len(discrepancies)}
	for _, d := range discrepancies {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, "aborted: "+ctx.Err().Error())
			break
		}
		if d.Classification == models.DiscrepancyLocalAhead {
			summary.Skipped++
			summary.Flagged = append(summary.Flagged, d)
			log.Printf("[SYNC] ⚠️ local-ahead on token %s (local %s, external %s) — flagged, not corrected",
				d.ExternalTokenID, d.LocalStatus, d.ExternalStatus)
			continue
		}

		res, err := s.applyOne(SyncOneInput{
			ExternalTokenID:  d.ExternalTokenID,
			CampaignID:       campaignID,
			ExternalStatus:   d.ExternalStatus,
			ExternalClaimant: d.ExternalClaimant,
		})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", d.ExternalTokenID, err))
			continue
		}
		summary.Applied++
		if res.Alarm {
			summary.Alarms++
		}
	}

	if _, err := s.store.RecomputeCounters(campaignID); err != nil {
		summary.Errors = append(summary.Errors, "counter recompute: "+err.Error())
	}

	status := "success"
	if len(summary.Errors) > 0 || summary.Alarms > 0 {
		status = "partial"
	}
	completed := s.clk.Now()
	metrics.RecordSyncDuration(status, completed.Sub(started).Seconds())

	if err := s.syncLogs.Create(&models.SyncLog{
		ID:                 uuid.NewString(),
		CampaignID:         campaignID,
		ExternalProjectRef: campaign.ExternalProjectRef,
		SyncType:           syncType,
		Status:             status,
		RecordsSynced:      summary.Applied,
		Alarms:             summary.Alarms,
		Errors:             strings.Join(summary.Errors, "\n"),
		OperatorID:         operatorID,
		StartedAt:          started,
		CompletedAt:        completed,
	}); err != nil {
		log.Printf("[SYNC] failed to record sync log for campaign %s: %v", campaignID, err)
	}

	log.Printf("[SYNC] campaign %s: %d discrepancies, %d applied, %d skipped, %d alarms",
		campaignID, summary.Discrepancies, summary.Applied, summary.Skipped, summary.Alarms)
	return summary, nil
}

// PullAndSyncAll fetches a full snapshot from the authority and runs
// SyncAll over it. A failed fetch performs no local writes at all:
// reconciling against a half-read snapshot is how ledgers get corrupted.
func (s *ReconcileService) PullAndSyncAll(ctx context.Context, campaignID, syncType, operatorID string) (*SyncSummary, error) {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.authority.FetchSnapshot(ctx, campaign.ExternalProjectRef)
	if err != nil {
		s.recordFailedFetch(campaign, syncType, operatorID, err)
		if errors.Is(err, models.ErrExternalUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrExternalUnavailable, err)
	}

	return s.SyncAll(ctx, campaignID, snapshot, syncType, operatorID)
}

func (s *ReconcileService) recordFailedFetch(campaign *models.Campaign, syncType, operatorID string, cause error) {
	now := s.clk.Now()
	if err := s.syncLogs.Create(&models.SyncLog{
		ID:                 uuid.NewString(),
		CampaignID:         campaign.ID,
		ExternalProjectRef: campaign.ExternalProjectRef,
		SyncType:           syncType,
		Status:             "failed",
		Errors:             cause.Error(),
		OperatorID:         operatorID,
		StartedAt:          now,
		CompletedAt:        now,
	}); err != nil {
		log.Printf("[SYNC] failed to record failed fetch for campaign %s: %v", campaign.ID, err)
	}
	metrics.RecordSyncDuration("failed", 0)
}

// RecentSyncLogs lists the latest reconciliation runs for a campaign.
func (s *ReconcileService) RecentSyncLogs(campaignID string, limit int) ([]models.SyncLog, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}
	return s.syncLogs.Recent(campaignID, limit)
}
