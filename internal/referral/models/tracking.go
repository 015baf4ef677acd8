package models

import (
	"time"

	id "referrals/pkg/domain"
)

type TrackingStatus string

const (
	TrackingStatusPending   TrackingStatus = "pending"
	TrackingStatusCompleted TrackingStatus = "completed"
	TrackingStatusCancelled TrackingStatus = "cancelled"
)

func (s TrackingStatus) IsValid() bool {
	switch s {
	case TrackingStatusPending, TrackingStatusCompleted, TrackingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s TrackingStatus) IsTerminal() bool {
	return s == TrackingStatusCompleted || s == TrackingStatusCancelled
}

// CanTransitionTo allows only pending -> completed and pending -> cancelled.
func (s TrackingStatus) CanTransitionTo(next TrackingStatus) bool {
	return s == TrackingStatusPending && next.IsTerminal()
}

// ReferralTracking is one redemption of a code by a referred user.
//
// Invariants:
//   - (ReferralCodeID, ReferredUserID) is unique
//   - PointsAwarded is zero unless Status is completed
//   - PointsPerReferral is the code's reward captured at redemption time;
//     finalize awards exactly this snapshot
//   - completed and cancelled are terminal
type ReferralTracking struct {
	ID                id.TrackingID  `json:"id"`
	ReferralCodeID    id.CodeID      `json:"referral_code_id"`
	ReferrerID        id.UserID      `json:"referrer_id"`
	ReferredUserID    id.UserID      `json:"referred_user_id"`
	Status            TrackingStatus `json:"status"`
	PointsPerReferral int            `json:"points_per_referral"`
	PointsAwarded     int            `json:"points_awarded"`
	CancelReason      string         `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	CancelledAt       *time.Time     `json:"cancelled_at,omitempty"`
}

// NewPendingTracking opens a tracking row for a successful redemption.
func NewPendingTracking(trackingID id.TrackingID, code *ReferralCode, referredUserID id.UserID, now time.Time) *ReferralTracking {
	return &ReferralTracking{
		ID:                trackingID,
		ReferralCodeID:    code.ID,
		ReferrerID:        code.OwnerID,
		ReferredUserID:    referredUserID,
		Status:            TrackingStatusPending,
		PointsPerReferral: code.PointsPerReferral,
		CreatedAt:         now,
	}
}

func (t *ReferralTracking) IsPending() bool {
	return t.Status == TrackingStatusPending
}

// ApplyCompletion transitions a pending row to completed.
// Callers guard the transition with the store's status-conditional update.
func (t *ReferralTracking) ApplyCompletion(now time.Time) {
	t.Status = TrackingStatusCompleted
	t.PointsAwarded = t.PointsPerReferral
	t.CompletedAt = &now
}

// ApplyCancellation transitions a pending row to cancelled with no award.
func (t *ReferralTracking) ApplyCancellation(reason string, now time.Time) {
	t.Status = TrackingStatusCancelled
	t.PointsAwarded = 0
	t.CancelReason = reason
	t.CancelledAt = &now
}
