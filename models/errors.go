package models

import (
	"errors"
	"fmt"
)

var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrTokenNotFound       = errors.New("token not found in inventory")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrScopeMismatch: a token id was supplied with the wrong campaign.
	// Always rejected, never auto-corrected; this is the guard against
	// cross-campaign writes on duplicated or orphaned records.
	ErrScopeMismatch = errors.New("token does not belong to the given campaign")

	// ErrReversalNotAllowed: sold is terminal for every automatic path.
	// Only manual-override tooling passes AllowReversal.
	ErrReversalNotAllowed = errors.New("cannot move a sold token backward without explicit reversal")

	ErrNotAvailable = errors.New("token is not available")

	// ErrConflict: a conditional status update found the token already
	// changed by a concurrent writer. The loser of the race gets this.
	ErrConflict = errors.New("token status changed concurrently")

	ErrExternalUnavailable = errors.New("external authority unavailable")

	ErrCampaignInactive    = errors.New("campaign is not active")
	ErrCampaignNotStarted  = errors.New("campaign has not started yet")
	ErrCampaignEnded       = errors.New("campaign has ended")
	ErrAlreadyPopulated    = errors.New("campaign already has inventory")
	ErrCampaignHasTokens   = errors.New("campaign still holds inventory")
	ErrDuplicateCampaign   = errors.New("campaign name already exists")
	ErrInvalidStatus       = errors.New("invalid token status")
	ErrInvalidCampaignMove = errors.New("invalid campaign status transition")
)

// DenyReason explains a policy gate rejection.
type DenyReason string

const (
	DenyNoSnapshotAssigned DenyReason = "NoSnapshotAssigned"
	DenyNotInSnapshot      DenyReason = "NotInSnapshot"
	DenyAlreadyClaimed     DenyReason = "AlreadyClaimed"
)

// NotEligibleError is a policy gate denial carrying its reason.
type NotEligibleError struct {
	Reason DenyReason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("claimant not eligible: %s", e.Reason)
}

// NotEligible builds a denial for the given reason.
func NotEligible(reason DenyReason) error {
	return &NotEligibleError{Reason: reason}
}

// IsNotEligible extracts the deny reason if err is a policy denial.
func IsNotEligible(err error) (DenyReason, bool) {
	var ne *NotEligibleError
	if errors.As(err, &ne) {
		return ne.Reason, true
	}
	return "", false
}
