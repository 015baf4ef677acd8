package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
)

func intPtr(v int) *int { return &v }

func TestNewReferralCode(t *testing.T) {
	now := time.Now()
	owner := id.UserID(uuid.New())

	t.Run("normalizes the code to upper case", func(t *testing.T) {
		code, err := NewReferralCode(id.NewCodeID(), owner, "  spring-25 ", 100, nil, nil, now)
		require.NoError(t, err)
		assert.Equal(t, "SPRING-25", code.Value)
		assert.True(t, code.IsActive)
		assert.Zero(t, code.CurrentUses)
		assert.Nil(t, code.RemainingUses())
	})

	t.Run("rejects invariant violations", func(t *testing.T) {
		past := now.Add(-time.Hour)
		cases := map[string]func() error{
			"nil owner": func() error {
				_, err := NewReferralCode(id.NewCodeID(), id.UserID{}, "ABC", 10, nil, nil, now)
				return err
			},
			"zero points": func() error {
				_, err := NewReferralCode(id.NewCodeID(), owner, "ABC", 0, nil, nil, now)
				return err
			},
			"zero max uses": func() error {
				_, err := NewReferralCode(id.NewCodeID(), owner, "ABC", 10, intPtr(0), nil, now)
				return err
			},
			"expiry in the past": func() error {
				_, err := NewReferralCode(id.NewCodeID(), owner, "ABC", 10, nil, &past, now)
				return err
			},
		}
		for name, fn := range cases {
			t.Run(name, func(t *testing.T) {
				assert.True(t, dErrors.HasCode(fn(), dErrors.CodeInvariantViolation))
			})
		}
	})
}

func TestCodePatch(t *testing.T) {
	now := time.Now()
	code := &ReferralCode{IsActive: true, PointsPerReferral: 50, MaxUses: intPtr(5), CurrentUses: 3}

	t.Run("max uses cannot drop below current uses", func(t *testing.T) {
		err := code.CanApply(CodePatch{MaxUses: intPtr(2)})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("max uses equal to current uses is allowed", func(t *testing.T) {
		assert.NoError(t, code.CanApply(CodePatch{MaxUses: intPtr(3)}))
	})

	t.Run("conflicting clear flags are rejected", func(t *testing.T) {
		err := code.CanApply(CodePatch{MaxUses: intPtr(9), ClearMaxUses: true})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("applies and clears fields", func(t *testing.T) {
		c := *code
		inactive := false
		patch := CodePatch{PointsPerReferral: intPtr(75), ClearMaxUses: true, IsActive: &inactive}
		require.NoError(t, c.CanApply(patch))
		c.ApplyPatch(patch, now)
		assert.Equal(t, 75, c.PointsPerReferral)
		assert.Nil(t, c.MaxUses)
		assert.False(t, c.IsActive)
		assert.Equal(t, now, c.UpdatedAt)
	})

	t.Run("archived codes are frozen", func(t *testing.T) {
		c := *code
		c.ApplyArchival(now)
		assert.False(t, c.IsActive)
		err := c.CanApply(CodePatch{PointsPerReferral: intPtr(1)})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestTrackingTransitions(t *testing.T) {
	now := time.Now()
	code := &ReferralCode{ID: id.NewCodeID(), OwnerID: id.UserID(uuid.New()), PointsPerReferral: 100}
	tr := NewPendingTracking(id.NewTrackingID(), code, id.UserID(uuid.New()), now)

	assert.Equal(t, TrackingStatusPending, tr.Status)
	assert.Zero(t, tr.PointsAwarded)
	assert.Equal(t, code.OwnerID, tr.ReferrerID)

	// Editing the code after redemption does not change the snapshot.
	code.PointsPerReferral = 5
	tr.ApplyCompletion(now)
	assert.Equal(t, 100, tr.PointsAwarded)
	assert.True(t, tr.Status.IsTerminal())

	assert.True(t, TrackingStatusPending.CanTransitionTo(TrackingStatusCompleted))
	assert.True(t, TrackingStatusPending.CanTransitionTo(TrackingStatusCancelled))
	assert.False(t, TrackingStatusCompleted.CanTransitionTo(TrackingStatusCancelled))
	assert.False(t, TrackingStatusCancelled.CanTransitionTo(TrackingStatusCompleted))
	assert.False(t, TrackingStatusPending.CanTransitionTo(TrackingStatusPending))
}

func TestConversionRate(t *testing.T) {
	tests := []struct {
		successful, total int
		want              float64
	}{
		{0, 0, 0},
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{1, 3, 100.0 / 3},
	}
	for _, tt := range tests {
		got := ConversionRate(tt.successful, tt.total)
		assert.False(t, math.IsNaN(got))
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}
