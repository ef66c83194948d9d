package models

import "time"

// SyncLog records one reconciliation run against the external authority,
// so operators can see what the last syncs did and whether they were clean.
type SyncLog struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:uuid"`
	CampaignID         string    `json:"campaign_id" gorm:"not null;index"`
	ExternalProjectRef string    `json:"external_project_ref" gorm:"not null;index"`
	SyncType           string    `json:"sync_type" gorm:"type:varchar(32);not null"` // manual_sync | auto_sync | import
	Status             string    `json:"status" gorm:"type:varchar(16);not null"`    // success | partial | failed
	RecordsSynced      int       `json:"records_synced"`
	Alarms             int       `json:"alarms"`
	Errors             string    `json:"errors,omitempty" gorm:"type:text"` // newline-separated
	OperatorID         string    `json:"operator_id,omitempty"`
	StartedAt          time.Time `json:"started_at" gorm:"not null"`
	CompletedAt        time.Time `json:"completed_at" gorm:"not null;index"`
}

// EligibilityEntry is one claimant in a locally mirrored eligibility
// snapshot. Snapshots are imported whole under a snapshot ref and read-only
// afterwards; the policy gate does an indexed membership lookup.
type EligibilityEntry struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	SnapshotRef string    `json:"snapshot_ref" gorm:"not null;uniqueIndex:idx_snapshot_claimant"`
	ClaimantID  string    `json:"claimant_id" gorm:"not null;uniqueIndex:idx_snapshot_claimant"`
	Label       string    `json:"label,omitempty"`
	ImportedAt  time.Time `json:"imported_at" gorm:"autoCreateTime"`
}
