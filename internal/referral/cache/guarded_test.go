package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"referrals/internal/referral/models"
	"referrals/pkg/platform/circuit"
)

type flakyLeaderboard struct {
	err   error
	gets  int
	sets  int
	value []models.OwnerSummary
}

func (f *flakyLeaderboard) GetTopPerformers(context.Context, string) ([]models.OwnerSummary, bool, error) {
	f.gets++
	if f.err != nil {
		return nil, false, f.err
	}
	return f.value, f.value != nil, nil
}

func (f *flakyLeaderboard) SetTopPerformers(_ context.Context, _ string, v []models.OwnerSummary) error {
	f.sets++
	if f.err != nil {
		return f.err
	}
	f.value = v
	return nil
}

type GuardedLeaderboardSuite struct {
	suite.Suite
	inner   *flakyLeaderboard
	guarded *GuardedLeaderboard
	ctx     context.Context
}

func TestGuardedLeaderboardSuite(t *testing.T) {
	suite.Run(t, new(GuardedLeaderboardSuite))
}

func (s *GuardedLeaderboardSuite) SetupTest() {
	s.ctx = context.Background()
	s.inner = &flakyLeaderboard{}
	breaker := circuit.New("leaderboard", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	s.guarded = NewGuardedLeaderboard(s.inner, breaker, nil)
}

func (s *GuardedLeaderboardSuite) TestPassesThroughWhenHealthy() {
	want := []models.OwnerSummary{{TotalReferrals: 3}}
	s.Require().NoError(s.guarded.SetTopPerformers(s.ctx, "k", want))

	got, ok, err := s.guarded.GetTopPerformers(s.ctx, "k")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(want, got)
}

func (s *GuardedLeaderboardSuite) TestOpenBreakerSkipsCache() {
	s.inner.err = errors.New("connection refused")

	_, _, err := s.guarded.GetTopPerformers(s.ctx, "k")
	s.Error(err)
	_, _, err = s.guarded.GetTopPerformers(s.ctx, "k")
	s.Error(err)
	s.Equal(2, s.inner.gets)

	got, ok, err := s.guarded.GetTopPerformers(s.ctx, "k")
	s.NoError(err, "open breaker reports a miss, not an error")
	s.False(ok)
	s.Nil(got)
	s.NoError(s.guarded.SetTopPerformers(s.ctx, "k", nil))
	s.Equal(2, s.inner.gets, "inner cache not called while open")
	s.Equal(0, s.inner.sets)
}
