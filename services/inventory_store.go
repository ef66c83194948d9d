package services

import (
	"log"

	"nft-campaign-system/clock"
	"nft-campaign-system/models"
)

// InventoryRepo is the data access the inventory store and its sibling
// services need. The GORM implementation lives in repository; tests use an
// in-memory fake.
type InventoryRepo interface {
	ListByCampaign(campaignID string) ([]models.InventoryItem, error)
	GetOne(externalTokenID, campaignID string) (*models.InventoryItem, error)
	ExistsElsewhere(externalTokenID, campaignID string) (bool, error)
	CountByStatus(campaignID string) (models.CounterSet, error)
	FirstAvailable(campaignID string) (*models.InventoryItem, error)
	CreateBatch(items []models.InventoryItem) error
	UpdateStatusIf(itemID string, from, to models.TokenStatus, updates map[string]interface{}) (int64, error)
	UpdateFields(itemID string, updates map[string]interface{}) error
	SoldMissingClaimant(campaignID string) ([]models.InventoryItem, error)
	HasSoldBy(campaignID, claimantID string) (bool, error)
	DeleteByCampaign(campaignID string) (int64, error)
}

// CampaignRepo is the campaign access shared by the services.
type CampaignRepo interface {
	Get(id string) (*models.Campaign, error)
	GetBySlug(slug string) (*models.Campaign, error)
	GetByName(name string) (*models.Campaign, error)
	List() ([]models.Campaign, error)
	ListByStatus(status models.CampaignStatus) ([]models.Campaign, error)
	Create(c *models.Campaign) error
	UpdateFields(id string, updates map[string]interface{}) error
	SetCounters(id string, cs models.CounterSet) error
}

// InventoryStore owns InventoryItem rows and the cached campaign counters.
// It is the only path that mutates a token's status.
type InventoryStore struct {
	items     InventoryRepo
	campaigns CampaignRepo
	clk       clock.Clock
}

func NewInventoryStore(items InventoryRepo, campaigns CampaignRepo, clk clock.Clock) *InventoryStore {
	return &InventoryStore{items: items, campaigns: campaigns, clk: clk}
}

func (s *InventoryStore) Get(campaignID string) ([]models.InventoryItem, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}
	return s.items.ListByCampaign(campaignID)
}

func (s *InventoryStore) GetOne(externalTokenID, campaignID string) (*models.InventoryItem, error) {
	return s.items.GetOne(externalTokenID, campaignID)
}

// RecomputeCounters recounts the campaign's inventory by status and
// overwrites the cached counters. The canonical repair for counter drift;
// idempotent, safe to run concurrently with per-token mutations.
func (s *InventoryStore) RecomputeCounters(campaignID string) (models.CounterSet, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return models.CounterSet{}, err
	}
	cs, err := s.items.CountByStatus(campaignID)
	if err != nil {
		return models.CounterSet{}, err
	}
	if err := s.campaigns.SetCounters(campaignID, cs); err != nil {
		return models.CounterSet{}, err
	}
	return cs, nil
}

// SetStatusParams describes one status mutation.
type SetStatusParams struct {
	ExternalTokenID string
	CampaignID      string
	NewStatus       models.TokenStatus

	// Claim metadata, applied when NewStatus is sold.
	Claimant      string
	ClaimantLabel string

	// PaymentRef is set when moving to reserved.
	PaymentRef string

	// AllowReversal permits leaving the sold state. Manual-override tooling
	// only; automatic sync never sets it.
	AllowReversal bool
}

// StatusChange reports the before/after of a SetStatus call so callers can
// verify convergence.
type StatusChange struct {
	ExternalTokenID string             `json:"external_token_id"`
	OldStatus       models.TokenStatus `json:"old_status"`
	NewStatus       models.TokenStatus `json:"new_status"`
}

// SetStatus is the single primitive that mutates an item's status. It
// rejects tokens belonging to another campaign with ErrScopeMismatch and
// transitions out of sold with ErrReversalNotAllowed unless the caller
// explicitly allows reversal. The underlying write is conditional on the
// status the item held when read, so a racing writer makes this call fail
// with ErrConflict instead of corrupting the record.
func (s *InventoryStore) SetStatus(p SetStatusParams) (*StatusChange, error) {
	if !models.ValidTokenStatus(p.NewStatus) {
		return nil, models.ErrInvalidStatus
	}

	item, err := s.items.GetOne(p.ExternalTokenID, p.CampaignID)
	if err != nil {
		if err == models.ErrTokenNotFound {
			elsewhere, lookErr := s.items.ExistsElsewhere(p.ExternalTokenID, p.CampaignID)
			if lookErr != nil {
				return nil, lookErr
			}
			if elsewhere {
				log.Printf("[STORE] scope mismatch: token %s is not in campaign %s", p.ExternalTokenID, p.CampaignID)
				return nil, models.ErrScopeMismatch
			}
		}
		return nil, err
	}

	if item.Status == models.TokenStatusSold && p.NewStatus != models.TokenStatusSold && !p.AllowReversal {
		return nil, models.ErrReversalNotAllowed
	}

	updates := s.fieldUpdates(item, p)
	if item.Status == p.NewStatus && len(updates) == 0 {
		// Nothing to change; converged already.
		return &StatusChange{ExternalTokenID: p.ExternalTokenID, OldStatus: item.Status, NewStatus: item.Status}, nil
	}

	rows, err := s.items.UpdateStatusIf(item.ID, item.Status, p.NewStatus, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, models.ErrConflict
	}

	return &StatusChange{
		ExternalTokenID: p.ExternalTokenID,
		OldStatus:       item.Status,
		NewStatus:       p.NewStatus,
	}, nil
}

// fieldUpdates builds the metadata changes that ride along with a status
// transition: sold gains claim metadata, available clears claim and payment
// fields, reserved gains its payment ref.
func (s *InventoryStore) fieldUpdates(item *models.InventoryItem, p SetStatusParams) map[string]interface{} {
	updates := map[string]interface{}{}

	switch p.NewStatus {
	case models.TokenStatusSold:
		if p.Claimant != "" && p.Claimant != item.ClaimedBy {
			updates["claimed_by"] = p.Claimant
		}
		if p.ClaimantLabel != "" && p.ClaimantLabel != item.ClaimantLabel {
			updates["claimant_label"] = p.ClaimantLabel
		}
		if item.SoldAt == nil {
			updates["sold_at"] = s.clk.Now().UTC()
		}
	case models.TokenStatusAvailable:
		if item.ClaimedBy != "" {
			updates["claimed_by"] = ""
		}
		if item.ClaimantLabel != "" {
			updates["claimant_label"] = ""
		}
		if item.SoldAt != nil {
			updates["sold_at"] = nil
		}
		if item.PaymentRef != "" {
			updates["payment_ref"] = ""
		}
	case models.TokenStatusReserved:
		if p.PaymentRef != "" {
			updates["payment_ref"] = p.PaymentRef
		}
	}

	return updates
}
