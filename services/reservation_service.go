package services

import (
	"errors"
	"log"
	"time"

	"nft-campaign-system/clock"
	"nft-campaign-system/metrics"
	"nft-campaign-system/models"

	"github.com/google/uuid"
)

// ReservationRepo is the reservation data access the manager needs.
type ReservationRepo interface {
	Create(resv *models.Reservation) error
	Get(id string) (*models.Reservation, error)
	Delete(id string) (bool, error)
	DeleteByToken(campaignID, externalTokenID string) (bool, error)
	GetActiveByClaimant(campaignID, claimantID string) (*models.Reservation, error)
	ExpiredBefore(campaignID string, cutoff time.Time) ([]models.Reservation, error)
	ListByCampaign(campaignID string) ([]models.Reservation, error)
	DeleteByCampaign(campaignID string) (int64, error)
	RecordCompletion(rec *models.ReservationRecord) error
	HasCompleted(campaignID, claimantID string) (bool, error)
	FindRecordByToken(campaignID, externalTokenID string) (*models.ReservationRecord, error)
}

// PolicyGate authorizes claimants before a reservation is created.
type PolicyGate interface {
	Authorize(campaignID, claimantID string) error
}

const (
	// DefaultReservationTTL is how long a claimant holds a token before the
	// sweep may release it.
	DefaultReservationTTL = 10 * time.Minute

	// sweepGrace keeps the sweeper off reservations that expired moments
	// ago, so a claimant finishing checkout at the deadline is not raced.
	sweepGrace = 30 * time.Second
)

// ReservationService creates, finalizes and expires time-bounded holds.
type ReservationService struct {
	store        *InventoryStore
	reservations ReservationRepo
	campaigns    CampaignRepo
	policy       PolicyGate
	clk          clock.Clock
	ttl          time.Duration
}

func NewReservationService(store *InventoryStore, reservations ReservationRepo, campaigns CampaignRepo, policy PolicyGate, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		store:        store,
		reservations: reservations,
		campaigns:    campaigns,
		policy:       policy,
		clk:          clk,
		ttl:          DefaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithReservationTTL overrides the default hold duration.
func WithReservationTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// CreateReservationInput names the claim request. TokenID is optional; when
// empty the lowest-numbered available token is picked. TTL of zero uses the
// service default.
type CreateReservationInput struct {
	CampaignID string        `json:"campaign_id"`
	ClaimantID string        `json:"claimant_id"`
	TokenID    string        `json:"token_id,omitempty"`
	TTL        time.Duration `json:"-"`
}

// ReservationResult carries the created (or already-held) reservation.
type ReservationResult struct {
	Reservation *models.Reservation `json:"reservation"`
	IsExisting  bool                `json:"is_existing"`
}

// CreateReservation places a hold on one available token for the claimant.
// Asking again while already holding one returns the existing hold instead
// of failing, so claimants retrying a flaky checkout don't double-reserve.
func (s *ReservationService) CreateReservation(in CreateReservationInput) (*ReservationResult, error) {
	now := s.clk.Now()

	campaign, err := s.campaigns.Get(in.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusActive {
		return nil, models.ErrCampaignInactive
	}
	if campaign.StartDate != nil && now.Before(*campaign.StartDate) {
		return nil, models.ErrCampaignNotStarted
	}
	if campaign.EndDate != nil && now.After(*campaign.EndDate) {
		return nil, models.ErrCampaignEnded
	}

	existing, err := s.reservations.GetActiveByClaimant(in.CampaignID, in.ClaimantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Expired(now) {
			metrics.RecordReservationOutcome("existing")
			return &ReservationResult{Reservation: existing, IsExisting: true}, nil
		}
		// Stale hold the sweep hasn't reached yet; release it now so the
		// claimant can reserve again.
		if won, err := s.reservations.Delete(existing.ID); err != nil {
			return nil, err
		} else if won {
			if err := s.release(existing); err != nil {
				return nil, err
			}
		}
	}

	if err := s.policy.Authorize(in.CampaignID, in.ClaimantID); err != nil {
		if _, denied := models.IsNotEligible(err); denied {
			metrics.RecordReservationOutcome("not_eligible")
		}
		return nil, err
	}

	// Pick the token: a specific one when asked, else lowest display number.
	var item *models.InventoryItem
	if in.TokenID != "" {
		item, err = s.store.GetOne(in.TokenID, in.CampaignID)
		if err != nil {
			return nil, err
		}
		if item.Status != models.TokenStatusAvailable {
			metrics.RecordReservationOutcome("not_available")
			return nil, models.ErrNotAvailable
		}
	} else {
		item, err = s.store.items.FirstAvailable(in.CampaignID)
		if err != nil {
			if errors.Is(err, models.ErrNotAvailable) {
				metrics.RecordReservationOutcome("not_available")
			}
			return nil, err
		}
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	paymentRef := uuid.NewString()

	_, err = s.store.SetStatus(SetStatusParams{
		ExternalTokenID: item.ExternalTokenID,
		CampaignID:      in.CampaignID,
		NewStatus:       models.TokenStatusReserved,
		PaymentRef:      paymentRef,
	})
	if err != nil {
		// Lost the race for this token; to the caller that's the same as
		// it not being available.
		if errors.Is(err, models.ErrConflict) {
			metrics.RecordReservationOutcome("not_available")
			return nil, models.ErrNotAvailable
		}
		return nil, err
	}

	resv := &models.Reservation{
		ID:              uuid.NewString(),
		CampaignID:      in.CampaignID,
		InventoryItemID: item.ID,
		ExternalTokenID: item.ExternalTokenID,
		ClaimantID:      in.ClaimantID,
		PaymentRef:      paymentRef,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
	if err := s.reservations.Create(resv); err != nil {
		return nil, err
	}

	if _, err := s.store.RecomputeCounters(in.CampaignID); err != nil {
		log.Printf("[RESERVE] counter recompute failed for campaign %s: %v", in.CampaignID, err)
	}

	metrics.RecordReservationOutcome("created")
	log.Printf("[RESERVE] %s holds token #%d (%s) in campaign %s until %s",
		in.ClaimantID, item.DisplayNumber, item.ExternalTokenID, in.CampaignID, resv.ExpiresAt.Format(time.RFC3339))

	return &ReservationResult{Reservation: resv}, nil
}

// FinalizeSale completes a claim: the token goes sold with the claimant
// recorded, the reservation row is removed and archived as a record.
func (s *ReservationService) FinalizeSale(reservationID, claimant, claimantLabel string) (*StatusChange, error) {
	resv, err := s.reservations.Get(reservationID)
	if err != nil {
		return nil, err
	}

	if claimant == "" {
		claimant = resv.ClaimantID
	}

	change, err := s.store.SetStatus(SetStatusParams{
		ExternalTokenID: resv.ExternalTokenID,
		CampaignID:      resv.CampaignID,
		NewStatus:       models.TokenStatusSold,
		Claimant:        claimant,
		ClaimantLabel:   claimantLabel,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reservations.RecordCompletion(&models.ReservationRecord{
		ID:              uuid.NewString(),
		CampaignID:      resv.CampaignID,
		ExternalTokenID: resv.ExternalTokenID,
		ClaimantID:      claimant,
		ClaimantLabel:   claimantLabel,
		PaymentRef:      resv.PaymentRef,
		CompletedAt:     s.clk.Now(),
	}); err != nil {
		return nil, err
	}

	if _, err := s.reservations.Delete(resv.ID); err != nil {
		return nil, err
	}

	if _, err := s.store.RecomputeCounters(resv.CampaignID); err != nil {
		log.Printf("[RESERVE] counter recompute failed for campaign %s: %v", resv.CampaignID, err)
	}

	log.Printf("[RESERVE] finalized sale of %s to %s in campaign %s", resv.ExternalTokenID, claimant, resv.CampaignID)
	return change, nil
}

// Cancel releases a hold the claimant no longer wants. The token returns to
// available; a token that went sold in the meantime stays sold.
func (s *ReservationService) Cancel(reservationID string) error {
	resv, err := s.reservations.Get(reservationID)
	if err != nil {
		return err
	}

	deleted, err := s.reservations.Delete(resv.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrReservationNotFound
	}

	if err := s.release(resv); err != nil {
		return err
	}

	if _, err := s.store.RecomputeCounters(resv.CampaignID); err != nil {
		log.Printf("[RESERVE] counter recompute failed for campaign %s: %v", resv.CampaignID, err)
	}
	return nil
}

// SweepExpired releases every reservation in the campaign whose TTL elapsed
// more than the grace period ago, then recomputes the counters. Safe to run
// concurrently with itself and with the scheduled trigger: the reservation
// row delete decides the winner per token, and the loser's release is a
// no-op.
func (s *ReservationService) SweepExpired(campaignID string) (int, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return 0, err
	}

	cutoff := s.clk.Now().Add(-sweepGrace)
	expired, err := s.reservations.ExpiredBefore(campaignID, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, resv := range expired {
		won, err := s.reservations.Delete(resv.ID)
		if err != nil {
			log.Printf("[SWEEP] failed to delete reservation %s: %v", resv.ID, err)
			continue
		}
		if !won {
			// Another sweeper got here first.
			continue
		}
		if err := s.release(&resv); err != nil {
			log.Printf("[SWEEP] failed to release token %s: %v", resv.ExternalTokenID, err)
			continue
		}
		released++
		metrics.SweepReleased.Inc()
	}

	if _, err := s.store.RecomputeCounters(campaignID); err != nil {
		return released, err
	}

	if released > 0 {
		log.Printf("[SWEEP] released %d expired reservation(s) in campaign %s", released, campaignID)
	}
	return released, nil
}

// ListByCampaign returns the campaign's active reservations (admin view).
func (s *ReservationService) ListByCampaign(campaignID string) ([]models.Reservation, error) {
	if _, err := s.campaigns.Get(campaignID); err != nil {
		return nil, err
	}
	return s.reservations.ListByCampaign(campaignID)
}

// release puts the reserved token back to available. Sold tokens are left
// alone: the store rejects the reversal and that is the correct outcome.
func (s *ReservationService) release(resv *models.Reservation) error {
	_, err := s.store.SetStatus(SetStatusParams{
		ExternalTokenID: resv.ExternalTokenID,
		CampaignID:      resv.CampaignID,
		NewStatus:       models.TokenStatusAvailable,
	})
	if err != nil {
		if errors.Is(err, models.ErrReversalNotAllowed) || errors.Is(err, models.ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}
