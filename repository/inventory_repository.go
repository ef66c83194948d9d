package repository

import (
	"errors"

	"nft-campaign-system/models"

	"gorm.io/gorm"
)

// Inventory is the GORM-backed inventory item store. Status mutations go
// through UpdateStatusIf, a conditional single-row UPDATE, so that two
// writers racing on the same token produce one winner and one no-op.
type Inventory struct {
	DB *gorm.DB
}

func NewInventory(db *gorm.DB) *Inventory {
	return &Inventory{DB: db}
}

func (r *Inventory) ListByCampaign(campaignID string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.Where("campaign_id = ?", campaignID).
		Order("display_number ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Inventory) GetOne(externalTokenID, campaignID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.DB.First(&item, "external_token_id = ? AND campaign_id = ?", externalTokenID, campaignID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTokenNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ExistsElsewhere reports whether the token id is tracked under a different
// campaign. Used to distinguish ScopeMismatch from plain NotFound.
func (r *Inventory) ExistsElsewhere(externalTokenID, campaignID string) (bool, error) {
	var n int64
	err := r.DB.Model(&models.InventoryItem{}).
		Where("external_token_id = ? AND campaign_id <> ?", externalTokenID, campaignID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Inventory) CountByStatus(campaignID string) (models.CounterSet, error) {
	var rows []struct {
		Status models.TokenStatus
		N      int64
	}
	err := r.DB.Model(&models.InventoryItem{}).
		Select("status, COUNT(*) AS n").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.CounterSet{}, err
	}

	var cs models.CounterSet
	for _, row := range rows {
		cs.Total += row.N
		switch row.Status {
		case models.TokenStatusAvailable:
			cs.Available = row.N
		case models.TokenStatusReserved:
			cs.Reserved = row.N
		case models.TokenStatusSold:
			cs.Sold = row.N
		}
	}
	return cs, nil
}

// FirstAvailable returns the available item with the lowest display number,
// or ErrNotAvailable when the campaign has none left.
func (r *Inventory) FirstAvailable(campaignID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.DB.Where("campaign_id = ? AND status = ?", campaignID, models.TokenStatusAvailable).
		Order("display_number ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotAvailable
		}
		return nil, err
	}
	return &item, nil
}

func (r *Inventory) CreateBatch(items []models.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.Create(&items).Error
}

// UpdateStatusIf flips one item's status only if it still holds the expected
// current status, applying the extra field updates in the same statement.
// Returns the number of rows changed (0 means a concurrent writer won).
func (r *Inventory) UpdateStatusIf(itemID string, from, to models.TokenStatus, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	res := r.DB.Model(&models.InventoryItem{}).
		Where("id = ? AND status = ?", itemID, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *Inventory) UpdateFields(itemID string, updates map[string]interface{}) error {
	res := r.DB.Model(&models.InventoryItem{}).Where("id = ?", itemID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrTokenNotFound
	}
	return nil
}

// SoldMissingClaimant lists sold items that have no recorded claimant,
// the input set for the ownership backfill.
func (r *Inventory) SoldMissingClaimant(campaignID string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.Where("campaign_id = ? AND status = ? AND (claimed_by IS NULL OR claimed_by = '')",
		campaignID, models.TokenStatusSold).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// HasSoldBy reports whether the claimant already owns a sold token in the campaign.
func (r *Inventory) HasSoldBy(campaignID, claimantID string) (bool, error) {
	var n int64
	err := r.DB.Model(&models.InventoryItem{}).
		Where("campaign_id = ? AND status = ? AND claimed_by = ?",
			campaignID, models.TokenStatusSold, claimantID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Inventory) DeleteByCampaign(campaignID string) (int64, error) {
	res := r.DB.Where("campaign_id = ?", campaignID).Delete(&models.InventoryItem{})
	return res.RowsAffected, res.Error
}
