package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "referrals/pkg/domain"
)

func TestActor(t *testing.T) {
	userID := id.UserID(uuid.New())

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"anonymous", context.Background(), "anonymous"},
		{"service", WithTrustedService(context.Background()), "service"},
		{"user", WithUserID(context.Background(), userID), "user:" + userID.String()},
		{"user wins over service", WithUserID(WithTrustedService(context.Background()), userID), "user:" + userID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Actor(tt.ctx))
		})
	}
}

func TestNow(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))

	got := Now(context.Background())
	assert.Equal(t, time.UTC, got.Location())
	assert.WithinDuration(t, time.Now(), got, time.Second)
}

func TestZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.True(t, UserID(ctx).IsNil())
	assert.False(t, IsTrustedService(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, "req-1", RequestID(WithRequestID(ctx, "req-1")))
}
