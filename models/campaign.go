package models

import (
	"time"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign represents one mintable token drop tracked against an external
// minting project. The counters are a cached projection of the inventory
// table; availableTokens + reservedTokens + soldTokens == totalTokens.
type Campaign struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string         `json:"name" gorm:"not null;uniqueIndex"`
	Slug        string         `json:"slug" gorm:"not null;uniqueIndex"`
	Description string         `json:"description" gorm:"type:text"`
	Status      CampaignStatus `json:"status" gorm:"type:varchar(16);default:'draft';index"`

	// ExternalProjectRef is the minting authority's project id for this drop.
	ExternalProjectRef string `json:"external_project_ref" gorm:"not null;index"`

	// PolicyID is the on-chain policy for this project, if the operator
	// entered one. Informational only.
	PolicyID string `json:"policy_id,omitempty"`

	// EligibilitySnapshotRef names the claimant set allowed to claim from
	// this campaign. Nil means claiming is disabled entirely.
	EligibilitySnapshotRef *string `json:"eligibility_snapshot_ref,omitempty" gorm:"index"`

	// AllowMultipleMints: when false, one claim per claimant per campaign, ever.
	AllowMultipleMints bool `json:"allow_multiple_mints" gorm:"default:false"`

	// ReservationCleanupEnabled: when false, the scheduled expiry sweep skips
	// this campaign; the manual sweep endpoint still reaches it.
	ReservationCleanupEnabled bool `json:"reservation_cleanup_enabled" gorm:"default:true"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Cached counters — repaired by RecomputeCounters
	TotalTokens     int64 `json:"total_tokens" gorm:"default:0"`
	AvailableTokens int64 `json:"available_tokens" gorm:"default:0"`
	ReservedTokens  int64 `json:"reserved_tokens" gorm:"default:0"`
	SoldTokens      int64 `json:"sold_tokens" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// CounterSet is the by-status distribution of a campaign's inventory.
type CounterSet struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
}

// Consistent reports whether the cached campaign counters match cs.
func (c *Campaign) Consistent(cs CounterSet) bool {
	return c.TotalTokens == cs.Total &&
		c.AvailableTokens == cs.Available &&
		c.ReservedTokens == cs.Reserved &&
		c.SoldTokens == cs.Sold
}
