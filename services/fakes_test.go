package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nft-campaign-system/models"
)

// In-memory repository fakes. They mirror the semantics of the GORM
// implementations, including the conditional status update that backs the
// single-writer guarantee.

type fakeInventoryRepo struct {
	mu    sync.Mutex
	items map[string]*models.InventoryItem // by internal ID
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: map[string]*models.InventoryItem{}}
}

func (f *fakeInventoryRepo) add(item models.InventoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := item
	f.items[item.ID] = &cp
}

func (f *fakeInventoryRepo) ListByCampaign(campaignID string) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryItem
	for _, it := range f.items {
		if it.CampaignID == campaignID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayNumber < out[j].DisplayNumber })
	return out, nil
}

func (f *fakeInventoryRepo) GetOne(externalTokenID, campaignID string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ExternalTokenID == externalTokenID && it.CampaignID == campaignID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, models.ErrTokenNotFound
}

func (f *fakeInventoryRepo) ExistsElsewhere(externalTokenID, campaignID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ExternalTokenID == externalTokenID && it.CampaignID != campaignID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInventoryRepo) CountByStatus(campaignID string) (models.CounterSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cs models.CounterSet
	for _, it := range f.items {
		if it.CampaignID != campaignID {
			continue
		}
		cs.Total++
		switch it.Status {
		case models.TokenStatusAvailable:
			cs.Available++
		case models.TokenStatusReserved:
			cs.Reserved++
		case models.TokenStatusSold:
			cs.Sold++
		}
	}
	return cs, nil
}

func (f *fakeInventoryRepo) FirstAvailable(campaignID string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.InventoryItem
	for _, it := range f.items {
		if it.CampaignID != campaignID || it.Status != models.TokenStatusAvailable {
			continue
		}
		if best == nil || it.DisplayNumber < best.DisplayNumber {
			best = it
		}
	}
	if best == nil {
		return nil, models.ErrNotAvailable
	}
	cp := *best
	return &cp, nil
}

func (f *fakeInventoryRepo) CreateBatch(items []models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		cp := it
		f.items[it.ID] = &cp
	}
	return nil
}

func (f *fakeInventoryRepo) UpdateStatusIf(itemID string, from, to models.TokenStatus, updates map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok || it.Status != from {
		return 0, nil
	}
	it.Status = to
	applyItemUpdates(it, updates)
	return 1, nil
}

func (f *fakeInventoryRepo) UpdateFields(itemID string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return models.ErrTokenNotFound
	}
	applyItemUpdates(it, updates)
	return nil
}

func applyItemUpdates(it *models.InventoryItem, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "claimed_by":
			it.ClaimedBy = v.(string)
		case "claimant_label":
			it.ClaimantLabel = v.(string)
		case "payment_ref":
			it.PaymentRef = v.(string)
		case "image_url":
			it.ImageURL = v.(string)
		case "sold_at":
			if v == nil {
				it.SoldAt = nil
			} else {
				t := v.(time.Time)
				it.SoldAt = &t
			}
		}
	}
}

func (f *fakeInventoryRepo) SoldMissingClaimant(campaignID string) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryItem
	for _, it := range f.items {
		if it.CampaignID == campaignID && it.Status == models.TokenStatusSold && it.ClaimedBy == "" {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayNumber < out[j].DisplayNumber })
	return out, nil
}

func (f *fakeInventoryRepo) HasSoldBy(campaignID, claimantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.CampaignID == campaignID && it.Status == models.TokenStatusSold && it.ClaimedBy == claimantID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInventoryRepo) DeleteByCampaign(campaignID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, it := range f.items {
		if it.CampaignID == campaignID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

// lossyInventoryRepo acknowledges conditional updates without applying them,
// simulating a backing store that silently loses a write.
type lossyInventoryRepo struct {
	*fakeInventoryRepo
	dropWrites  bool
	updateCalls int
}

func (f *lossyInventoryRepo) UpdateStatusIf(itemID string, from, to models.TokenStatus, updates map[string]interface{}) (int64, error) {
	f.updateCalls++
	if !f.dropWrites {
		return f.fakeInventoryRepo.UpdateStatusIf(itemID, from, to, updates)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok || it.Status != from {
		return 0, nil
	}
	return 1, nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[string]*models.Campaign{}}
}

func (f *fakeCampaignRepo) add(c models.Campaign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := c
	f.campaigns[c.ID] = &cp
}

func (f *fakeCampaignRepo) Get(id string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, models.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignRepo) GetBySlug(slug string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrCampaignNotFound
}

func (f *fakeCampaignRepo) GetByName(name string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaignRepo) List() ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Campaign
	for _, c := range f.campaigns {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCampaignRepo) ListByStatus(status models.CampaignStatus) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Campaign
	for _, c := range f.campaigns {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) Create(c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.campaigns[c.ID] = &cp
	return nil
}

func (f *fakeCampaignRepo) UpdateFields(id string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return models.ErrCampaignNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			c.Name = v.(string)
		case "slug":
			c.Slug = v.(string)
		case "description":
			c.Description = v.(string)
		case "status":
			c.Status = v.(models.CampaignStatus)
		case "external_project_ref":
			c.ExternalProjectRef = v.(string)
		case "policy_id":
			c.PolicyID = v.(string)
		case "eligibility_snapshot_ref":
			c.EligibilitySnapshotRef = v.(*string)
		case "allow_multiple_mints":
			c.AllowMultipleMints = v.(bool)
		case "reservation_cleanup_enabled":
			c.ReservationCleanupEnabled = v.(bool)
		case "start_date":
			t := v.(time.Time)
			c.StartDate = &t
		case "end_date":
			t := v.(time.Time)
			c.EndDate = &t
		}
	}
	return nil
}

func (f *fakeCampaignRepo) SetCounters(id string, cs models.CounterSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return models.ErrCampaignNotFound
	}
	c.TotalTokens = cs.Total
	c.AvailableTokens = cs.Available
	c.ReservedTokens = cs.Reserved
	c.SoldTokens = cs.Sold
	return nil
}

type fakeReservationRepo struct {
	mu      sync.Mutex
	active  map[string]*models.Reservation
	records []models.ReservationRecord
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{active: map[string]*models.Reservation{}}
}

func (f *fakeReservationRepo) Create(resv *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *resv
	f.active[resv.ID] = &cp
	return nil
}

func (f *fakeReservationRepo) Get(id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.active[id]
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservationRepo) Delete(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[id]; !ok {
		return false, nil
	}
	delete(f.active, id)
	return true, nil
}

func (f *fakeReservationRepo) DeleteByToken(campaignID, externalTokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.active {
		if r.CampaignID == campaignID && r.ExternalTokenID == externalTokenID {
			delete(f.active, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservationRepo) GetActiveByClaimant(campaignID, claimantID string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.active {
		if r.CampaignID == campaignID && r.ClaimantID == claimantID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeReservationRepo) ExpiredBefore(campaignID string, cutoff time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.active {
		if r.CampaignID == campaignID && r.ExpiresAt.Before(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) ListByCampaign(campaignID string) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.active {
		if r.CampaignID == campaignID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) DeleteByCampaign(campaignID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.active {
		if r.CampaignID == campaignID {
			delete(f.active, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeReservationRepo) RecordCompletion(rec *models.ReservationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeReservationRepo) HasCompleted(campaignID, claimantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.CampaignID == campaignID && rec.ClaimantID == claimantID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservationRepo) FindRecordByToken(campaignID, externalTokenID string) (*models.ReservationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.ReservationRecord
	for i := range f.records {
		rec := &f.records[i]
		if rec.CampaignID == campaignID && rec.ExternalTokenID == externalTokenID {
			if found == nil || rec.CompletedAt.After(found.CompletedAt) {
				found = rec
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

type fakeEligibilityRepo struct {
	mu      sync.Mutex
	entries map[string]models.EligibilityEntry // snapshotRef + "/" + claimantID
}

func newFakeEligibilityRepo() *fakeEligibilityRepo {
	return &fakeEligibilityRepo{entries: map[string]models.EligibilityEntry{}}
}

func (f *fakeEligibilityRepo) Contains(snapshotRef, claimantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[snapshotRef+"/"+claimantID]
	return ok, nil
}

func (f *fakeEligibilityRepo) Import(entries []models.EligibilityEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.SnapshotRef+"/"+e.ClaimantID] = e
	}
	return len(entries), nil
}

func (f *fakeEligibilityRepo) CountBySnapshot(snapshotRef string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.SnapshotRef == snapshotRef {
			n++
		}
	}
	return n, nil
}

type fakeSyncLogRepo struct {
	mu   sync.Mutex
	logs []models.SyncLog
}

func (f *fakeSyncLogRepo) Create(l *models.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeSyncLogRepo) Recent(campaignID string, limit int) ([]models.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	var out []models.SyncLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].CampaignID == campaignID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

// stubAuthority serves canned responses, or fails when broken.
type stubAuthority struct {
	snapshot   models.AuthoritySnapshot
	unassigned []UnassignedToken
	broken     bool
}

func (s *stubAuthority) FetchSnapshot(ctx context.Context, projectRef string) (models.AuthoritySnapshot, error) {
	if s.broken {
		return nil, fmt.Errorf("%w: connection refused", models.ErrExternalUnavailable)
	}
	return s.snapshot, nil
}

func (s *stubAuthority) FetchUnassignedTokens(ctx context.Context, projectRef string) ([]UnassignedToken, error) {
	if s.broken {
		return nil, fmt.Errorf("%w: connection refused", models.ErrExternalUnavailable)
	}
	return s.unassigned, nil
}

// allowAllPolicy lets tests of the reservation flow bypass eligibility.
type allowAllPolicy struct{}

func (allowAllPolicy) Authorize(campaignID, claimantID string) error { return nil }

// denyPolicy always refuses with the given reason.
type denyPolicy struct{ reason models.DenyReason }

func (p denyPolicy) Authorize(campaignID, claimantID string) error {
	return models.NotEligible(p.reason)
}
