package cache

import (
	"context"
	"log/slog"

	"referrals/internal/referral/models"
	"referrals/pkg/platform/circuit"
)

// Leaderboard is the cache contract the referral service consumes.
type Leaderboard interface {
	GetTopPerformers(ctx context.Context, key string) ([]models.OwnerSummary, bool, error)
	SetTopPerformers(ctx context.Context, key string, summaries []models.OwnerSummary) error
}

// GuardedLeaderboard stops calling an unhealthy cache. While the breaker is
// open, reads report a miss and writes are dropped, so analytics fall back to
// the ledger without paying a Redis timeout per request.
type GuardedLeaderboard struct {
	inner   Leaderboard
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedLeaderboard(inner Leaderboard, breaker *circuit.Breaker, logger *slog.Logger) *GuardedLeaderboard {
	return &GuardedLeaderboard{inner: inner, breaker: breaker, logger: logger}
}

func (g *GuardedLeaderboard) GetTopPerformers(ctx context.Context, key string) ([]models.OwnerSummary, bool, error) {
	if !g.breaker.Allow() {
		return nil, false, nil
	}
	summaries, ok, err := g.inner.GetTopPerformers(ctx, key)
	if err != nil {
		g.recordFailure(ctx, err)
		return nil, false, err
	}
	g.recordSuccess(ctx)
	return summaries, ok, nil
}

func (g *GuardedLeaderboard) SetTopPerformers(ctx context.Context, key string, summaries []models.OwnerSummary) error {
	if !g.breaker.Allow() {
		return nil
	}
	if err := g.inner.SetTopPerformers(ctx, key, summaries); err != nil {
		g.recordFailure(ctx, err)
		return err
	}
	g.recordSuccess(ctx)
	return nil
}

func (g *GuardedLeaderboard) recordFailure(ctx context.Context, err error) {
	if _, change := g.breaker.RecordFailure(); change.Opened && g.logger != nil {
		g.logger.WarnContext(ctx, "leaderboard cache circuit opened",
			"breaker", g.breaker.Name(),
			"error", err,
		)
	}
}

func (g *GuardedLeaderboard) recordSuccess(ctx context.Context) {
	if _, change := g.breaker.RecordSuccess(); change.Closed && g.logger != nil {
		g.logger.InfoContext(ctx, "leaderboard cache circuit closed", "breaker", g.breaker.Name())
	}
}
