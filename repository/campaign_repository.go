package repository

import (
	"errors"

	"nft-campaign-system/models"

	"gorm.io/gorm"
)

// Campaigns is the GORM-backed campaign store.
type Campaigns struct {
	DB *gorm.DB
}

func NewCampaigns(db *gorm.DB) *Campaigns {
	return &Campaigns{DB: db}
}

func (r *Campaigns) Get(id string) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.DB.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Campaigns) GetBySlug(slug string) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.DB.First(&c, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByName returns nil, nil when no campaign has that name.
func (r *Campaigns) GetByName(name string) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.DB.First(&c, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Campaigns) List() ([]models.Campaign, error) {
	var cs []models.Campaign
	if err := r.DB.Order("created_at DESC").Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Campaigns) ListByStatus(status models.CampaignStatus) ([]models.Campaign, error) {
	var cs []models.Campaign
	if err := r.DB.Where("status = ?", status).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Campaigns) Create(c *models.Campaign) error {
	return r.DB.Create(c).Error
}

func (r *Campaigns) UpdateFields(id string, updates map[string]interface{}) error {
	res := r.DB.Model(&models.Campaign{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrCampaignNotFound
	}
	return nil
}

// SetCounters overwrites the cached counters in a single UPDATE.
func (r *Campaigns) SetCounters(id string, cs models.CounterSet) error {
	return r.UpdateFields(id, map[string]interface{}{
		"total_tokens":     cs.Total,
		"available_tokens": cs.Available,
		"reserved_tokens":  cs.Reserved,
		"sold_tokens":      cs.Sold,
	})
}
