package models

import "time"

// TokenStatus is the local belief about a token's lifecycle state.
type TokenStatus string

const (
	TokenStatusAvailable TokenStatus = "available"
	TokenStatusReserved  TokenStatus = "reserved"
	TokenStatusSold      TokenStatus = "sold"
)

// ValidTokenStatus reports whether s is one of the three known states.
func ValidTokenStatus(s TokenStatus) bool {
	switch s {
	case TokenStatusAvailable, TokenStatusReserved, TokenStatusSold:
		return true
	}
	return false
}

// InventoryItem is one mintable token in the local ledger. The external
// authority's token id is the join key for reconciliation; (externalTokenId,
// campaignId) is unique, and every status mutation is scoped to both.
type InventoryItem struct {
	ID              string      `json:"id" gorm:"primaryKey;type:uuid"`
	CampaignID      string      `json:"campaign_id" gorm:"not null;index;uniqueIndex:idx_token_campaign"`
	ExternalTokenID string      `json:"external_token_id" gorm:"not null;index;uniqueIndex:idx_token_campaign"`
	DisplayNumber   int         `json:"display_number" gorm:"not null"`
	Name            string      `json:"name" gorm:"not null"`
	Status          TokenStatus `json:"status" gorm:"type:varchar(16);default:'available';index"`

	// ImageURL is populated by the image backfill job; never required by
	// any other operation.
	ImageURL string `json:"image_url,omitempty" gorm:"type:text"`

	// Claim metadata, set when status = sold.
	ClaimedBy     string     `json:"claimed_by,omitempty" gorm:"index"`
	ClaimantLabel string     `json:"claimant_label,omitempty"`
	SoldAt        *time.Time `json:"sold_at,omitempty"`

	// PaymentRef is the checkout handle generated when a reservation is
	// created; cleared when the token returns to available.
	PaymentRef string `json:"payment_ref,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
