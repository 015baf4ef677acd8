package models

import (
	"time"

	id "referrals/pkg/domain"
)

// TrackingFilter scopes ledger reads. Zero values mean "no restriction".
type TrackingFilter struct {
	ReferrerID *id.UserID
	Since      *time.Time
}

// OwnerTotals is the raw per-referrer aggregate read from one ledger snapshot.
type OwnerTotals struct {
	OwnerID      id.UserID
	Total        int
	Completed    int
	Pending      int
	Cancelled    int
	PointsEarned int
}

// OwnerSummary is the caller-facing analytics shape.
type OwnerSummary struct {
	OwnerID             id.UserID  `json:"owner_id"`
	TotalReferrals      int        `json:"total_referrals"`
	SuccessfulReferrals int        `json:"successful_referrals"`
	PendingReferrals    int        `json:"pending_referrals"`
	CancelledReferrals  int        `json:"cancelled_referrals"`
	TotalPointsEarned   int        `json:"total_points_earned"`
	ConversionRate      float64    `json:"conversion_rate"`
	Since               *time.Time `json:"since,omitempty"`
}

// ConversionRate returns successful/total as a percentage in [0, 100].
// Zero total yields zero, never NaN.
func ConversionRate(successful, total int) float64 {
	if total <= 0 || successful <= 0 {
		return 0
	}
	if successful >= total {
		return 100
	}
	return float64(successful) / float64(total) * 100
}

// SummaryFromTotals derives the public summary from a raw aggregate.
func SummaryFromTotals(t OwnerTotals, since *time.Time) OwnerSummary {
	return OwnerSummary{
		OwnerID:             t.OwnerID,
		TotalReferrals:      t.Total,
		SuccessfulReferrals: t.Completed,
		PendingReferrals:    t.Pending,
		CancelledReferrals:  t.Cancelled,
		TotalPointsEarned:   t.PointsEarned,
		ConversionRate:      ConversionRate(t.Completed, t.Total),
		Since:               since,
	}
}

// PointsAccount is a derived balance; it is never stored or mutated directly.
type PointsAccount struct {
	UserID      id.UserID `json:"user_id"`
	TotalPoints int       `json:"total_points"`
}
