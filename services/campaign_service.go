package services

import (
	"fmt"
	"log"
	"time"

	"nft-campaign-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// CampaignService owns the campaign lifecycle: draft → active ⇄ paused →
// completed. Inventory mutations are delegated to the store so the counter
// invariant stays in one place.
type CampaignService struct {
	campaigns    CampaignRepo
	items        InventoryRepo
	reservations ReservationRepo
	store        *InventoryStore
}

func NewCampaignService(campaigns CampaignRepo, items InventoryRepo, reservations ReservationRepo, store *InventoryStore) *CampaignService {
	return &CampaignService{
		campaigns:    campaigns,
		items:        items,
		reservations: reservations,
		store:        store,
	}
}

// CreateCampaignInput carries everything needed to open a new campaign in
// draft status.
type CreateCampaignInput struct {
	Name                      string     `json:"name"`
	Description               string     `json:"description,omitempty"`
	ExternalProjectRef        string     `json:"external_project_ref"`
	PolicyID                  string     `json:"policy_id,omitempty"`
	AllowMultipleMints        bool       `json:"allow_multiple_mints"`
	ReservationCleanupEnabled *bool      `json:"reservation_cleanup_enabled,omitempty"`
	StartDate                 *time.Time `json:"start_date,omitempty"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
}

func (s *CampaignService) Create(in CreateCampaignInput) (*models.Campaign, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidStatus)
	}
	existing, err := s.campaigns.GetByName(in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrDuplicateCampaign
	}

	cleanup := true
	if in.ReservationCleanupEnabled != nil {
		cleanup = *in.ReservationCleanupEnabled
	}

	campaign := &models.Campaign{
		ID:                        uuid.NewString(),
		Name:                      in.Name,
		Slug:                      slug.Make(in.Name),
		Description:               in.Description,
		Status:                    models.CampaignStatusDraft,
		ExternalProjectRef:        in.ExternalProjectRef,
		PolicyID:                  in.PolicyID,
		AllowMultipleMints:        in.AllowMultipleMints,
		ReservationCleanupEnabled: cleanup,
		StartDate:                 in.StartDate,
		EndDate:                   in.EndDate,
	}
	if err := s.campaigns.Create(campaign); err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	log.Printf("[CAMPAIGN] created %q (%s) in draft", campaign.Name, campaign.ID)
	return campaign, nil
}

// UpdateCampaignInput carries partial edits. Nil fields are left untouched.
type UpdateCampaignInput struct {
	Name               *string    `json:"name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	ExternalProjectRef *string    `json:"external_project_ref,omitempty"`
	PolicyID           *string    `json:"policy_id,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}

func (s *CampaignService) Update(campaignID string, in UpdateCampaignInput) (*models.Campaign, error) {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil && *in.Name != campaign.Name {
		other, err := s.campaigns.GetByName(*in.Name)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, models.ErrDuplicateCampaign
		}
		updates["name"] = *in.Name
		updates["slug"] = slug.Make(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.ExternalProjectRef != nil {
		updates["external_project_ref"] = *in.ExternalProjectRef
	}
	if in.PolicyID != nil {
		updates["policy_id"] = *in.PolicyID
	}
	if in.StartDate != nil {
		updates["start_date"] = *in.StartDate
	}
	if in.EndDate != nil {
		updates["end_date"] = *in.EndDate
	}

	if len(updates) > 0 {
		if err := s.campaigns.UpdateFields(campaignID, updates); err != nil {
			return nil, err
		}
	}
	return s.campaigns.Get(campaignID)
}

// Activate opens a draft or paused campaign for reservations. An empty
// campaign cannot go live.
func (s *CampaignService) Activate(campaignID string) (*models.Campaign, error) {
	return s.move(campaignID, models.CampaignStatusActive, func(c *models.Campaign) error {
		if c.Status != models.CampaignStatusDraft && c.Status != models.CampaignStatusPaused {
			return fmt.Errorf("%w: cannot activate a %s campaign", models.ErrInvalidCampaignMove, c.Status)
		}
		if c.TotalTokens == 0 {
			return fmt.Errorf("%w: campaign has no inventory", models.ErrInvalidCampaignMove)
		}
		return nil
	})
}

func (s *CampaignService) Pause(campaignID string) (*models.Campaign, error) {
	return s.move(campaignID, models.CampaignStatusPaused, func(c *models.Campaign) error {
		if c.Status != models.CampaignStatusActive {
			return fmt.Errorf("%w: cannot pause a %s campaign", models.ErrInvalidCampaignMove, c.Status)
		}
		return nil
	})
}

func (s *CampaignService) Complete(campaignID string) (*models.Campaign, error) {
	return s.move(campaignID, models.CampaignStatusCompleted, func(c *models.Campaign) error {
		if c.Status != models.CampaignStatusActive && c.Status != models.CampaignStatusPaused {
			return fmt.Errorf("%w: cannot complete a %s campaign", models.ErrInvalidCampaignMove, c.Status)
		}
		return nil
	})
}

func (s *CampaignService) move(campaignID string, to models.CampaignStatus, check func(*models.Campaign) error) (*models.Campaign, error) {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	if err := check(campaign); err != nil {
		return nil, err
	}
	if err := s.campaigns.UpdateFields(campaignID, map[string]interface{}{"status": to}); err != nil {
		return nil, err
	}
	log.Printf("[CAMPAIGN] %q moved %s → %s", campaign.Name, campaign.Status, to)
	campaign.Status = to
	return campaign, nil
}

func (s *CampaignService) Get(campaignID string) (*models.Campaign, error) {
	return s.campaigns.Get(campaignID)
}

func (s *CampaignService) GetBySlug(slugValue string) (*models.Campaign, error) {
	return s.campaigns.GetBySlug(slugValue)
}

func (s *CampaignService) List() ([]models.Campaign, error) {
	return s.campaigns.List()
}

// CampaignWithStats pairs a campaign with counters computed live from the
// inventory rather than the cached columns.
type CampaignWithStats struct {
	Campaign   models.Campaign   `json:"campaign"`
	LiveCounts models.CounterSet `json:"live_counts"`
	Consistent bool              `json:"consistent"`
}

func (s *CampaignService) GetWithStats(campaignID string) (*CampaignWithStats, error) {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	live, err := s.items.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignWithStats{
		Campaign:   *campaign,
		LiveCounts: live,
		Consistent: campaign.Consistent(live),
	}, nil
}

// ClearInventory wipes a campaign's tokens and reservations so an import can
// start over. Only draft and paused campaigns may be cleared; active ones
// have live holds.
func (s *CampaignService) ClearInventory(campaignID string) error {
	campaign, err := s.campaigns.Get(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusPaused {
		return fmt.Errorf("%w: cannot clear inventory of a %s campaign", models.ErrInvalidCampaignMove, campaign.Status)
	}

	holds, err := s.reservations.DeleteByCampaign(campaignID)
	if err != nil {
		return err
	}
	tokens, err := s.items.DeleteByCampaign(campaignID)
	if err != nil {
		return err
	}
	if err := s.campaigns.SetCounters(campaignID, models.CounterSet{}); err != nil {
		return err
	}

	log.Printf("[CAMPAIGN] cleared inventory of %q (%s): %d token(s), %d hold(s) removed", campaign.Name, campaignID, tokens, holds)
	return nil
}
