package models

import "time"

// Reservation is a time-bounded hold linking one token to one claimant.
// Rows are deleted on release or finalization; completed claims live on as
// ReservationRecord for ownership backfill.
type Reservation struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	CampaignID      string    `json:"campaign_id" gorm:"not null;index:idx_resv_campaign_claimant"`
	InventoryItemID string    `json:"inventory_item_id" gorm:"not null;uniqueIndex"`
	ExternalTokenID string    `json:"external_token_id" gorm:"not null;index"`
	ClaimantID      string    `json:"claimant_id" gorm:"not null;index:idx_resv_campaign_claimant"`
	PaymentRef      string    `json:"payment_ref" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt       time.Time `json:"expires_at" gorm:"not null;index"`
}

// Expired reports whether the reservation's TTL has elapsed at now.
// Expiry is advisory until a sweep runs.
func (r *Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// ReservationRecord is the historical trace of a finalized claim. It is the
// source the ownership backfill searches when a sold item is missing its
// claimant.
type ReservationRecord struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	CampaignID      string    `json:"campaign_id" gorm:"not null;index"`
	ExternalTokenID string    `json:"external_token_id" gorm:"not null;index"`
	ClaimantID      string    `json:"claimant_id" gorm:"not null;index"`
	ClaimantLabel   string    `json:"claimant_label,omitempty"`
	PaymentRef      string    `json:"payment_ref,omitempty"`
	CompletedAt     time.Time `json:"completed_at" gorm:"not null"`
}
