package repository

import (
	"errors"
	"time"

	"nft-campaign-system/models"

	"gorm.io/gorm"
)

// Reservations is the GORM-backed reservation store. Active holds are rows
// in reservations; finalized claims are archived into reservation_records
// for the ownership backfill.
type Reservations struct {
	DB *gorm.DB
}

func NewReservations(db *gorm.DB) *Reservations {
	return &Reservations{DB: db}
}

func (r *Reservations) Create(resv *models.Reservation) error {
	return r.DB.Create(resv).Error
}

func (r *Reservations) Get(id string) (*models.Reservation, error) {
	var resv models.Reservation
	if err := r.DB.First(&resv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrReservationNotFound
		}
		return nil, err
	}
	return &resv, nil
}

// Delete removes the reservation row, reporting whether this caller was the
// one that removed it. A row already gone is not an error: concurrent sweeps
// simply find nothing to do.
func (r *Reservations) Delete(id string) (bool, error) {
	res := r.DB.Where("id = ?", id).Delete(&models.Reservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByToken removes the active reservation for a token, if any.
func (r *Reservations) DeleteByToken(campaignID, externalTokenID string) (bool, error) {
	res := r.DB.Where("campaign_id = ? AND external_token_id = ?", campaignID, externalTokenID).
		Delete(&models.Reservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetActiveByClaimant returns nil, nil when the claimant holds nothing.
func (r *Reservations) GetActiveByClaimant(campaignID, claimantID string) (*models.Reservation, error) {
	var resv models.Reservation
	err := r.DB.First(&resv, "campaign_id = ? AND claimant_id = ?", campaignID, claimantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resv, nil
}

func (r *Reservations) ExpiredBefore(campaignID string, cutoff time.Time) ([]models.Reservation, error) {
	var resvs []models.Reservation
	err := r.DB.Where("campaign_id = ? AND expires_at < ?", campaignID, cutoff).
		Find(&resvs).Error
	if err != nil {
		return nil, err
	}
	return resvs, nil
}

func (r *Reservations) ListByCampaign(campaignID string) ([]models.Reservation, error) {
	var resvs []models.Reservation
	err := r.DB.Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&resvs).Error
	if err != nil {
		return nil, err
	}
	return resvs, nil
}

func (r *Reservations) DeleteByCampaign(campaignID string) (int64, error) {
	res := r.DB.Where("campaign_id = ?", campaignID).Delete(&models.Reservation{})
	return res.RowsAffected, res.Error
}

// RecordCompletion archives a finalized claim.
func (r *Reservations) RecordCompletion(rec *models.ReservationRecord) error {
	return r.DB.Create(rec).Error
}

// HasCompleted reports whether the claimant has ever finalized a claim in
// the campaign.
func (r *Reservations) HasCompleted(campaignID, claimantID string) (bool, error) {
	var n int64
	err := r.DB.Model(&models.ReservationRecord{}).
		Where("campaign_id = ? AND claimant_id = ?", campaignID, claimantID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindRecordByToken returns the most recent completed claim for a token,
// or nil, nil when none exists.
func (r *Reservations) FindRecordByToken(campaignID, externalTokenID string) (*models.ReservationRecord, error) {
	var rec models.ReservationRecord
	err := r.DB.Where("campaign_id = ? AND external_token_id = ?", campaignID, externalTokenID).
		Order("completed_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
