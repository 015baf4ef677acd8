// Package policy decides whether a referral code can be redeemed right now.
//
// Everything here is a pure function of the code and the supplied clock
// value. The ledger calls it once before opening a transaction and again on
// the locked row inside the transaction, so a stale first read can never
// admit a redemption.
package policy

import (
	"time"

	"referrals/internal/referral/models"
	dErrors "referrals/pkg/domain-errors"
)

// IsRedeemable reports whether code accepts a redemption at now.
func IsRedeemable(code *models.ReferralCode, now time.Time) bool {
	return Check(code, now) == nil
}

// Check returns nil when the code is redeemable, otherwise a domain error
// whose code names the first failing rule: inactive, then expired, then
// usage limit.
func Check(code *models.ReferralCode, now time.Time) error {
	if code == nil {
		return dErrors.New(dErrors.CodeCodeNotFound, "referral code not found")
	}
	if !code.IsActive || code.IsArchived() {
		return dErrors.New(dErrors.CodeCodeInactive, "referral code is inactive")
	}
	if code.ExpiresAt != nil && !now.Before(*code.ExpiresAt) {
		return dErrors.New(dErrors.CodeCodeExpired, "referral code has expired")
	}
	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return dErrors.New(dErrors.CodeUsageLimitReached, "referral code has reached its usage limit")
	}
	return nil
}
