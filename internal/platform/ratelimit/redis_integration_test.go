//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"referrals/internal/platform/ratelimit"
	"referrals/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestAllowUpToLimit() {
	for i := range 3 {
		result, err := s.store.Allow(s.ctx, "redeem:ip:203.0.113.7", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed, "request %d", i)
		s.Equal(3-(i+1), result.Remaining)
	}

	result, err := s.store.Allow(s.ctx, "redeem:ip:203.0.113.7", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.GreaterOrEqual(result.RetryAfter, 1)
	s.LessOrEqual(result.RetryAfter, 60)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	result, err := s.store.Allow(s.ctx, "short", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(s.ctx, "short", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Eventually(func() bool {
		r, err := s.store.Allow(s.ctx, "short", 1, 200*time.Millisecond)
		return err == nil && r.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisStoreSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "reset", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	result, err := s.store.Allow(s.ctx, "reset", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
