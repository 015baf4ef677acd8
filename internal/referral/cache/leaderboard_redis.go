package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"referrals/internal/referral/models"
)

var (
	leaderboardLookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "referrals_leaderboard_cache_lookup_duration_ms",
		Help:    "Latency of leaderboard cache lookups in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const (
	// Redis key prefix for cached top-performer lists
	leaderboardKeyPrefix = "referrals:leaderboard:"

	defaultLeaderboardTTL = 30 * time.Second
)

// RedisLeaderboard caches computed top-performer lists with a short TTL.
// Every cached list was computed from one snapshot, so readers never see a
// mix of two points in time; they may see a slightly old one.
type RedisLeaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisLeaderboardOption configures a RedisLeaderboard instance.
type RedisLeaderboardOption func(*RedisLeaderboard)

// WithTTL sets how long a computed list is served.
func WithTTL(ttl time.Duration) RedisLeaderboardOption {
	return func(l *RedisLeaderboard) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// NewRedisLeaderboard constructs a Redis-backed leaderboard cache.
func NewRedisLeaderboard(client *redis.Client, opts ...RedisLeaderboardOption) *RedisLeaderboard {
	l := &RedisLeaderboard{
		client: client,
		ttl:    defaultLeaderboardTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// GetTopPerformers returns the cached list for key. A missing or expired
// entry reports ok=false without error.
func (l *RedisLeaderboard) GetTopPerformers(ctx context.Context, key string) ([]models.OwnerSummary, bool, error) {
	start := time.Now()
	defer func() {
		leaderboardLookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := l.client.Get(ctx, leaderboardKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get leaderboard: %w", err)
	}
	var summaries []models.OwnerSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode leaderboard: %w", err)
	}
	return summaries, true, nil
}

// SetTopPerformers stores summaries under key with the configured TTL.
func (l *RedisLeaderboard) SetTopPerformers(ctx context.Context, key string, summaries []models.OwnerSummary) error {
	raw, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := l.client.Set(ctx, leaderboardKeyPrefix+key, raw, l.ttl).Err(); err != nil {
		return fmt.Errorf("set leaderboard: %w", err)
	}
	return nil
}
