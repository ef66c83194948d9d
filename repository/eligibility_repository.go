package repository

import (
	"nft-campaign-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Eligibility is the GORM-backed mirror of externally defined claimant sets.
type Eligibility struct {
	DB *gorm.DB
}

func NewEligibility(db *gorm.DB) *Eligibility {
	return &Eligibility{DB: db}
}

// Contains does an indexed membership check on (snapshot_ref, claimant_id).
func (r *Eligibility) Contains(snapshotRef, claimantID string) (bool, error) {
	var n int64
	err := r.DB.Model(&models.EligibilityEntry{}).
		Where("snapshot_ref = ? AND claimant_id = ?", snapshotRef, claimantID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Import upserts a claimant list under its snapshot ref in one statement.
// Re-importing the same snapshot is safe.
func (r *Eligibility) Import(entries []models.EligibilityEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_ref"}, {Name: "claimant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label"}),
	}).Create(&entries).Error
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (r *Eligibility) CountBySnapshot(snapshotRef string) (int64, error) {
	var n int64
	err := r.DB.Model(&models.EligibilityEntry{}).
		Where("snapshot_ref = ?", snapshotRef).
		Count(&n).Error
	return n, err
}
