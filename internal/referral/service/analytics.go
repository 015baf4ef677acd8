package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
)

// OwnerSummary aggregates ownerID's referrals from a single snapshot,
// optionally restricted to rows created at or after since.
func (s *Service) OwnerSummary(ctx context.Context, ownerID id.UserID, since *time.Time) (*models.OwnerSummary, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner_id is required")
	}
	filter := models.TrackingFilter{ReferrerID: &ownerID, Since: since}

	var totals []models.OwnerTotals
	err := s.readSnapshot(ctx, func(st Store) error {
		var err error
		totals, err = st.AggregateByReferrer(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary := models.SummaryFromTotals(models.OwnerTotals{OwnerID: ownerID}, since)
	for _, t := range totals {
		if t.OwnerID == ownerID {
			summary = models.SummaryFromTotals(t, since)
			break
		}
	}
	return &summary, nil
}

// TopPerformers ranks referrers by successful referrals, then points earned,
// then owner id. Results may be served from the leaderboard cache; a cached
// list always comes from one snapshot.
func (s *Service) TopPerformers(ctx context.Context, limit int, since *time.Time) ([]models.OwnerSummary, error) {
	limit, err := normalizeTopLimit(limit)
	if err != nil {
		return nil, err
	}
	key := leaderboardKey(limit, since)

	if s.cache != nil {
		cached, ok, err := s.cache.GetTopPerformers(ctx, key)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.WarnContext(ctx, "leaderboard cache read failed", "error", err)
			}
		case ok:
			s.observeCache(true)
			return cached, nil
		default:
			s.observeCache(false)
		}
	}

	var totals []models.OwnerTotals
	err = s.readSnapshot(ctx, func(st Store) error {
		var err error
		totals, err = st.AggregateByReferrer(ctx, models.TrackingFilter{Since: since})
		return err
	})
	if err != nil {
		return nil, err
	}

	ranked := RankPerformers(totals, since, limit)
	if s.cache != nil {
		if err := s.cache.SetTopPerformers(ctx, key, ranked); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "leaderboard cache write failed", "error", err)
		}
	}
	return ranked, nil
}

// PointsBalance derives userID's balance from completed referrals.
func (s *Service) PointsBalance(ctx context.Context, userID id.UserID) (*models.PointsAccount, error) {
	summary, err := s.OwnerSummary(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return &models.PointsAccount{UserID: userID, TotalPoints: summary.TotalPointsEarned}, nil
}

// RankPerformers orders totals deterministically and truncates to limit.
func RankPerformers(totals []models.OwnerTotals, since *time.Time, limit int) []models.OwnerSummary {
	summaries := make([]models.OwnerSummary, 0, len(totals))
	for _, t := range totals {
		summaries = append(summaries, models.SummaryFromTotals(t, since))
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.SuccessfulReferrals != b.SuccessfulReferrals {
			return a.SuccessfulReferrals > b.SuccessfulReferrals
		}
		if a.TotalPointsEarned != b.TotalPointsEarned {
			return a.TotalPointsEarned > b.TotalPointsEarned
		}
		return a.OwnerID.String() < b.OwnerID.String()
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

func normalizeTopLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return defaultTopLimit, nil
	case limit < 0:
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be positive")
	case limit > maxTopLimit:
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("limit must be at most %d", maxTopLimit))
	}
	return limit, nil
}

func leaderboardKey(limit int, since *time.Time) string {
	if since == nil {
		return fmt.Sprintf("top:%d:all", limit)
	}
	return fmt.Sprintf("top:%d:%d", limit, since.UTC().UnixNano())
}
