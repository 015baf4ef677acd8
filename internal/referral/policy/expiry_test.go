package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"referrals/internal/referral/models"
	dErrors "referrals/pkg/domain-errors"
)

func intPtr(v int) *int { return &v }

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name     string
		code     models.ReferralCode
		wantCode dErrors.Code
	}{
		{"active unlimited without expiry", models.ReferralCode{IsActive: true}, ""},
		{"under the usage limit", models.ReferralCode{IsActive: true, MaxUses: intPtr(2), CurrentUses: 1}, ""},
		{"expiry in the future", models.ReferralCode{IsActive: true, ExpiresAt: &future}, ""},
		{"inactive", models.ReferralCode{IsActive: false}, dErrors.CodeCodeInactive},
		{"archived", models.ReferralCode{IsActive: true, ArchivedAt: &past}, dErrors.CodeCodeInactive},
		{"expired", models.ReferralCode{IsActive: true, ExpiresAt: &past}, dErrors.CodeCodeExpired},
		{"expires exactly now", models.ReferralCode{IsActive: true, ExpiresAt: &now}, dErrors.CodeCodeExpired},
		{"usage limit reached", models.ReferralCode{IsActive: true, MaxUses: intPtr(1), CurrentUses: 1}, dErrors.CodeUsageLimitReached},
		{"inactive wins over expired", models.ReferralCode{IsActive: false, ExpiresAt: &past}, dErrors.CodeCodeInactive},
		{"expired wins over exhausted", models.ReferralCode{IsActive: true, ExpiresAt: &past, MaxUses: intPtr(1), CurrentUses: 1}, dErrors.CodeCodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(&tt.code, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				assert.True(t, IsRedeemable(&tt.code, now))
				return
			}
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.False(t, IsRedeemable(&tt.code, now))
		})
	}

	t.Run("nil code is not found", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(Check(nil, now), dErrors.CodeCodeNotFound))
	})
}
