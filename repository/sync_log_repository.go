package repository

import (
	"nft-campaign-system/models"

	"gorm.io/gorm"
)

// SyncLogs is the GORM-backed sync history store.
type SyncLogs struct {
	DB *gorm.DB
}

func NewSyncLogs(db *gorm.DB) *SyncLogs {
	return &SyncLogs{DB: db}
}

func (r *SyncLogs) Create(l *models.SyncLog) error {
	return r.DB.Create(l).Error
}

func (r *SyncLogs) Recent(campaignID string, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []models.SyncLog
	err := r.DB.Where("campaign_id = ?", campaignID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
