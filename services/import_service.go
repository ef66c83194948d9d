package services

import (
	"context"
	"fmt"
	"log"

	"nft-campaign-system/models"

	"github.com/google/uuid"
)

// ImageMirror copies a remotely hosted image into our own storage and
// returns the public URL of the copy. Optional: when nil, imports keep the
// source URL.
type ImageMirror interface {
	MirrorImage(ctx context.Context, sourceURL, key string) (string, error)
}

// ImportService feeds new tokens into a campaign's inventory and backfills
// data the initial import did not carry.
type ImportService struct {
	store        *InventoryStore
	items        InventoryRepo
	campaigns    CampaignRepo
	reservations ReservationRepo
	authority    ExternalAuthorityClient
	mirror       ImageMirror
}

func NewImportService(store *InventoryStore, items InventoryRepo, campaigns CampaignRepo, reservations ReservationRepo, authority ExternalAuthorityClient, mirror ImageMirror) *ImportService {
	return &ImportService{
		store:        store,
		items:        items,
		campaigns:    campaigns,
		reservations: reservations,
		authority:    authority,
		mirror:       mirror,
	}
}

// TokenImportInput is one token to add to a campaign.
type TokenImportInput struct {
	ExternalTokenID string `json:"external_token_id"`
	DisplayNumber   int    `json:"display_number"`
	Name            string `json:"name"`
	ImageURL        string `json:"image_url,omitempty"`
}

// ImportSummary reports an import run. Re-importing the same batch is safe:
// tokens already present are counted as skipped, not duplicated.
type ImportSummary struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// ImportNewTokens adds tokens to a campaign as available inventory. Tokens
// whose external ID is already present in the campaign are skipped.
func (s *ImportService) ImportNewTokens(campaignID string, tokens []TokenImportInput) (*ImportSummary, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(campaignID)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, item := range existing {
		present[item.ExternalTokenID] = true
	}

	summary := &ImportSummary{}
	var toCreate []models.InventoryItem
	for _, t := range tokens {
		if t.ExternalTokenID == "" || present[t.ExternalTokenID] {
			summary.Skipped++
			continue
		}
		present[t.ExternalTokenID] = true
		toCreate = append(toCreate, models.InventoryItem{
			ID:              uuid.NewString(),
			CampaignID:      campaignID,
			ExternalTokenID: t.ExternalTokenID,
			DisplayNumber:   t.DisplayNumber,
			Name:            t.Name,
			Status:          models.TokenStatusAvailable,
			ImageURL:        t.ImageURL,
		})
		summary.Added++
	}

	if len(toCreate) > 0 {
		if err := s.items.CreateBatch(toCreate); err != nil {
			return nil, fmt.Errorf("importing tokens: %w", err)
		}
	}

	counters, err := s.store.RecomputeCounters(campaignID)
	if err != nil {
		return nil, err
	}
	summary.Total = int(counters.Total)

	log.Printf("[IMPORT] campaign %s: %d added, %d skipped, %d total", campaignID, summary.Added, summary.Skipped, summary.Total)
	return summary, nil
}

// ImportFromAuthority pulls the authority's unassigned tokens for the
// campaign's project and imports them.
func (s *ImportService) ImportFromAuthority(ctx context.Context, campaignID string) (*ImportSummary, error) {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.authority.FetchUnassignedTokens(ctx, campaign.ExternalProjectRef)
	if err != nil {
		return nil, err
	}
	inputs := make([]TokenImportInput, 0, len(tokens))
	for _, t := range tokens {
		inputs = append(inputs, TokenImportInput{
			ExternalTokenID: t.ExternalTokenID,
			DisplayNumber:   t.DisplayNumber,
			Name:            t.Name,
			ImageURL:        t.ImageURL,
		})
	}
	return s.ImportNewTokens(campaignID, inputs)
}

// BackfillSummary reports an ownership or image backfill run.
type BackfillSummary struct {
	Backfilled int `json:"backfilled"`
	Skipped    int `json:"skipped"`
	NotFound   int `json:"not_found"`
}

// BackfillOwnership fills in the claimant for sold items that lost it —
// typically items marked sold by an early sync before claimant propagation
// existed. The claimant comes from the completed-reservation history.
func (s *ImportService) BackfillOwnership(campaignID string) (*BackfillSummary, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}

	orphans, err := s.items.SoldMissingClaimant(campaignID)
	if err != nil {
		return nil, err
	}

	summary := &BackfillSummary{}
	for _, item := range orphans {
		record, err := s.reservations.FindRecordByToken(campaignID, item.ExternalTokenID)
		if err != nil {
			return summary, err
		}
		if record == nil {
			summary.NotFound++
			continue
		}
		if err := s.items.UpdateFields(item.ID, map[string]interface{}{
			"claimed_by":  record.ClaimantID,
			"payment_ref": record.PaymentRef,
		}); err != nil {
			return summary, err
		}
		summary.Backfilled++
	}

	log.Printf("[IMPORT] ownership backfill for campaign %s: %d backfilled, %d without history", campaignID, summary.Backfilled, summary.NotFound)
	return summary, nil
}

// ImageSource maps an external token ID to its source image URL.
type ImageSource map[string]string

// BackfillImages applies the given token→image mapping to the campaign.
// Entries naming a token the campaign does not hold count as notFound;
// items that already carry an image are skipped. When a mirror is
// configured the image is copied into our storage first; if the copy fails
// the source URL is used as-is rather than losing the image.
func (s *ImportService) BackfillImages(ctx context.Context, campaignID string, images ImageSource) (*BackfillSummary, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}

	inventory, err := s.store.Get(campaignID)
	if err != nil {
		return nil, err
	}
	byToken := make(map[string]*models.InventoryItem, len(inventory))
	for i := range inventory {
		byToken[inventory[i].ExternalTokenID] = &inventory[i]
	}

	summary := &BackfillSummary{}
	for tokenID, source := range images {
		item, ok := byToken[tokenID]
		if !ok {
			summary.NotFound++
			continue
		}
		if item.ImageURL != "" || source == "" {
			summary.Skipped++
			continue
		}

		url := source
		if s.mirror != nil {
			key := fmt.Sprintf("campaigns/%s/%s", campaignID, tokenID)
			mirrored, err := s.mirror.MirrorImage(ctx, source, key)
			if err != nil {
				log.Printf("[IMPORT] mirror failed for token %s, keeping source URL: %v", tokenID, err)
			} else {
				url = mirrored
			}
		}

		if err := s.items.UpdateFields(item.ID, map[string]interface{}{"image_url": url}); err != nil {
			return summary, err
		}
		summary.Backfilled++
	}

	log.Printf("[IMPORT] image backfill for campaign %s: %d updated, %d skipped, %d missing", campaignID, summary.Backfilled, summary.Skipped, summary.NotFound)
	return summary, nil
}
