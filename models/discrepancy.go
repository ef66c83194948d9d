package models

// DiscrepancyClass classifies how local and external state disagree.
type DiscrepancyClass string

const (
	// DiscrepancyLocalBehind: the authority reports a later state (commonly
	// sold) than the local ledger. The normal case; safe to auto-correct.
	DiscrepancyLocalBehind DiscrepancyClass = "local-behind"

	// DiscrepancyLocalAhead: local says sold but the authority reports an
	// earlier state. Never auto-corrected; flagged for investigation.
	DiscrepancyLocalAhead DiscrepancyClass = "local-ahead"

	// DiscrepancyClaimantMismatch: both sides agree the token is sold but
	// name different claimants.
	DiscrepancyClaimantMismatch DiscrepancyClass = "claimant-mismatch"
)

// Discrepancy is a detected disagreement between an InventoryItem and the
// external authority's snapshot. Computed, never stored.
type Discrepancy struct {
	ExternalTokenID  string           `json:"external_token_id"`
	DisplayNumber    int              `json:"display_number"`
	Name             string           `json:"name"`
	LocalStatus      TokenStatus      `json:"local_status"`
	ExternalStatus   TokenStatus      `json:"external_status"`
	LocalClaimant    string           `json:"local_claimant,omitempty"`
	ExternalClaimant string           `json:"external_claimant,omitempty"`
	Classification   DiscrepancyClass `json:"classification"`
}

// TokenState is one entry of an external-authority snapshot.
type TokenState struct {
	Status   TokenStatus `json:"status"`
	Claimant string      `json:"claimant,omitempty"`
}

// AuthoritySnapshot maps externalTokenId to the authority's reported state.
// Snapshots may be partial; tokens absent from the map are not compared.
type AuthoritySnapshot map[string]TokenState
