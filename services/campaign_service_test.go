package services

import (
	"testing"

	"nft-campaign-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignEnv(t *testing.T) (*CampaignService, *storeEnv, *fakeReservationRepo) {
	t.Helper()
	base := newStoreEnv(t, "seed", 0)
	reservations := newFakeReservationRepo()
	svc := NewCampaignService(base.campaigns, base.items, reservations, base.store)
	return svc, base, reservations
}

func TestCreateCampaign(t *testing.T) {
	svc, _, _ := newCampaignEnv(t)

	campaign, err := svc.Create(CreateCampaignInput{
		Name:               "Genesis Drop",
		ExternalProjectRef: "proj-genesis",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Equal(t, "genesis-drop", campaign.Slug)
	assert.True(t, campaign.ReservationCleanupEnabled)
	assert.NotEmpty(t, campaign.ID)

	_, err = svc.Create(CreateCampaignInput{Name: "Genesis Drop", ExternalProjectRef: "proj-2"})
	assert.ErrorIs(t, err, models.ErrDuplicateCampaign)
}

func TestActivateRequiresInventory(t *testing.T) {
	svc, env, _ := newCampaignEnv(t)

	campaign, err := svc.Create(CreateCampaignInput{Name: "Empty Drop", ExternalProjectRef: "proj-e"})
	require.NoError(t, err)

	_, err = svc.Activate(campaign.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCampaignMove)

	// Give it inventory, then activation works.
	env.items.add(models.InventoryItem{ID: "i1", CampaignID: campaign.ID, ExternalTokenID: "T1", DisplayNumber: 1, Name: "Token #1", Status: models.TokenStatusAvailable})
	_, err = env.store.RecomputeCounters(campaign.ID)
	require.NoError(t, err)

	activated, err := svc.Activate(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, activated.Status)
}

func TestCampaignLifecycleMoves(t *testing.T) {
	svc, env, _ := newCampaignEnv(t)
	campaign, err := svc.Create(CreateCampaignInput{Name: "Drop", ExternalProjectRef: "p"})
	require.NoError(t, err)
	env.items.add(models.InventoryItem{ID: "i1", CampaignID: campaign.ID, ExternalTokenID: "T1", DisplayNumber: 1, Name: "Token #1", Status: models.TokenStatusAvailable})
	_, err = env.store.RecomputeCounters(campaign.ID)
	require.NoError(t, err)

	// draft cannot pause or complete
	_, err = svc.Pause(campaign.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCampaignMove)
	_, err = svc.Complete(campaign.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCampaignMove)

	_, err = svc.Activate(campaign.ID)
	require.NoError(t, err)

	paused, err := svc.Pause(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, paused.Status)

	// paused can reactivate
	_, err = svc.Activate(campaign.ID)
	require.NoError(t, err)

	completed, err := svc.Complete(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, completed.Status)

	// completed is terminal
	_, err = svc.Activate(campaign.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCampaignMove)
}

func TestUpdateCampaignRenamesSlug(t *testing.T) {
	svc, _, _ := newCampaignEnv(t)
	campaign, err := svc.Create(CreateCampaignInput{Name: "Old Name", ExternalProjectRef: "p"})
	require.NoError(t, err)

	name := "Brand New Name"
	updated, err := svc.Update(campaign.ID, UpdateCampaignInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "brand-new-name", updated.Slug)

	// Renaming onto another campaign's name is rejected.
	other, err := svc.Create(CreateCampaignInput{Name: "Taken", ExternalProjectRef: "p2"})
	require.NoError(t, err)
	taken := "Brand New Name"
	_, err = svc.Update(other.ID, UpdateCampaignInput{Name: &taken})
	assert.ErrorIs(t, err, models.ErrDuplicateCampaign)
}

func TestGetWithStatsReportsConsistency(t *testing.T) {
	svc, env, _ := newCampaignEnv(t)
	campaign, err := svc.Create(CreateCampaignInput{Name: "Drop", ExternalProjectRef: "p"})
	require.NoError(t, err)
	env.items.add(models.InventoryItem{ID: "i1", CampaignID: campaign.ID, ExternalTokenID: "T1", DisplayNumber: 1, Name: "Token #1", Status: models.TokenStatusAvailable})

	// Cached counters are stale (never recomputed) so the stats call flags it.
	stats, err := svc.GetWithStats(campaign.ID)
	require.NoError(t, err)
	assert.False(t, stats.Consistent)
	assert.EqualValues(t, 1, stats.LiveCounts.Total)

	_, err = env.store.RecomputeCounters(campaign.ID)
	require.NoError(t, err)
	stats, err = svc.GetWithStats(campaign.ID)
	require.NoError(t, err)
	assert.True(t, stats.Consistent)
}

func TestClearInventory(t *testing.T) {
	svc, env, reservations := newCampaignEnv(t)
	campaign, err := svc.Create(CreateCampaignInput{Name: "Drop", ExternalProjectRef: "p"})
	require.NoError(t, err)
	env.items.add(models.InventoryItem{ID: "i1", CampaignID: campaign.ID, ExternalTokenID: "T1", DisplayNumber: 1, Name: "Token #1", Status: models.TokenStatusAvailable})
	_, err = env.store.RecomputeCounters(campaign.ID)
	require.NoError(t, err)
	require.NoError(t, reservations.Create(&models.Reservation{ID: "r1", CampaignID: campaign.ID, ExternalTokenID: "T1", ClaimantID: "w"}))

	require.NoError(t, svc.ClearInventory(campaign.ID))

	cs, err := env.items.CountByStatus(campaign.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, cs.Total)
	left, err := reservations.ListByCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	// Cached counters went back to zero with the rows.
	cleared, err := env.campaigns.Get(campaign.ID)
	require.NoError(t, err)
	assert.True(t, cleared.Consistent(models.CounterSet{}))

	// Active campaigns refuse the wipe.
	env.items.add(models.InventoryItem{ID: "i2", CampaignID: campaign.ID, ExternalTokenID: "T2", DisplayNumber: 2, Name: "Token #2", Status: models.TokenStatusAvailable})
	_, err = env.store.RecomputeCounters(campaign.ID)
	require.NoError(t, err)
	_, err = svc.Activate(campaign.ID)
	require.NoError(t, err)
	err = svc.ClearInventory(campaign.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCampaignMove)
}
