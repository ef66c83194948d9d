package services

import (
	"log"
	"time"

	"nft-campaign-system/models"

	"github.com/google/uuid"
)

// EligibilityRepo is the locally mirrored claimant-set store.
type EligibilityRepo interface {
	Contains(snapshotRef, claimantID string) (bool, error)
	Import(entries []models.EligibilityEntry) (int, error)
	CountBySnapshot(snapshotRef string) (int64, error)
}

// claimHistory is the slice of reservation data the policy gate needs.
type claimHistory interface {
	GetActiveByClaimant(campaignID, claimantID string) (*models.Reservation, error)
	HasCompleted(campaignID, claimantID string) (bool, error)
}

// PolicyService is the gate consulted before any reservation is created:
// who may claim (eligibility snapshot) and how many times (multi-mint flag).
type PolicyService struct {
	campaigns    CampaignRepo
	eligibility  EligibilityRepo
	reservations claimHistory
	items        InventoryRepo
}

func NewPolicyService(campaigns CampaignRepo, eligibility EligibilityRepo, reservations claimHistory, items InventoryRepo) *PolicyService {
	return &PolicyService{
		campaigns:    campaigns,
		eligibility:  eligibility,
		reservations: reservations,
		items:        items,
	}
}

// Authorize returns nil when the claimant may claim from the campaign, or a
// NotEligibleError carrying the deny reason.
func (s *PolicyService) Authorize(campaignID, claimantID string) error {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return err
	}

	// No snapshot assigned means claiming is globally disabled for the campaign.
	if campaign.EligibilitySnapshotRef == nil {
		return models.NotEligible(models.DenyNoSnapshotAssigned)
	}

	ok, err := s.eligibility.Contains(*campaign.EligibilitySnapshotRef, claimantID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NotEligible(models.DenyNotInSnapshot)
	}

	if campaign.AllowMultipleMints {
		return nil
	}

	// Single-claim policy: one hold or completed claim per claimant, ever.
	active, err := s.reservations.GetActiveByClaimant(campaignID, claimantID)
	if err != nil {
		return err
	}
	if active != nil {
		return models.NotEligible(models.DenyAlreadyClaimed)
	}

	completed, err := s.reservations.HasCompleted(campaignID, claimantID)
	if err != nil {
		return err
	}
	if completed {
		return models.NotEligible(models.DenyAlreadyClaimed)
	}

	// Sold items synced from the authority may have no reservation record.
	owns, err := s.items.HasSoldBy(campaignID, claimantID)
	if err != nil {
		return err
	}
	if owns {
		return models.NotEligible(models.DenyAlreadyClaimed)
	}

	return nil
}

// SetSnapshot assigns or clears the campaign's eligibility snapshot.
// Policy changes never touch existing reservations.
func (s *PolicyService) SetSnapshot(campaignID string, snapshotRef *string) error {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return err
	}
	if err := s.campaigns.UpdateFields(campaignID, map[string]interface{}{
		"eligibility_snapshot_ref": snapshotRef,
	}); err != nil {
		return err
	}
	if snapshotRef == nil {
		log.Printf("[POLICY] cleared eligibility snapshot for campaign %s — claiming disabled", campaignID)
	} else {
		log.Printf("[POLICY] campaign %s now uses eligibility snapshot %q", campaignID, *snapshotRef)
	}
	return nil
}

// SetMultiMintPolicy flips whether one identity may claim more than once.
func (s *PolicyService) SetMultiMintPolicy(campaignID string, allow bool) error {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return err
	}
	return s.campaigns.UpdateFields(campaignID, map[string]interface{}{
		"allow_multiple_mints": allow,
	})
}

// SetCleanupPolicy flips whether the scheduled expiry sweep visits the
// campaign. Manual sweeps are unaffected.
func (s *PolicyService) SetCleanupPolicy(campaignID string, enabled bool) error {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return err
	}
	return s.campaigns.UpdateFields(campaignID, map[string]interface{}{
		"reservation_cleanup_enabled": enabled,
	})
}

// SnapshotEntryInput is one claimant in an imported eligibility snapshot.
type SnapshotEntryInput struct {
	ClaimantID string `json:"claimant_id"`
	Label      string `json:"label,omitempty"`
}

// ImportEligibilitySnapshot mirrors a claimant set locally under the given
// ref. Upsert semantics; re-importing the same snapshot is safe.
func (s *PolicyService) ImportEligibilitySnapshot(snapshotRef string, entries []SnapshotEntryInput) (int, error) {
	now := time.Now().UTC()
	rows := make([]models.EligibilityEntry, 0, len(entries))
	for _, e := range entries {
		if e.ClaimantID == "" {
			continue
		}
		rows = append(rows, models.EligibilityEntry{
			ID:          uuid.NewString(),
			SnapshotRef: snapshotRef,
			ClaimantID:  e.ClaimantID,
			Label:       e.Label,
			ImportedAt:  now,
		})
	}
	n, err := s.eligibility.Import(rows)
	if err != nil {
		return 0, err
	}
	log.Printf("[POLICY] imported %d entries into eligibility snapshot %q", n, snapshotRef)
	return n, nil
}
