package models

import (
	"strings"
	"time"

	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
)

// ReferralCode is the aggregate root for a distributable referral code.
//
// Invariants:
//   - Value is unique across all codes, compared case-insensitively (stored upper-case)
//   - PointsPerReferral is positive at creation and never negative afterwards
//   - MaxUses, when set, is positive and never below CurrentUses
//   - CurrentUses only moves through redemption (+1) and cancellation (-1)
//   - OwnerID is immutable after construction
//   - An archived code is inactive and never redeemable again
type ReferralCode struct {
	ID                id.CodeID  `json:"id"`
	OwnerID           id.UserID  `json:"owner_id"`
	Value             string     `json:"code"`
	PointsPerReferral int        `json:"points_per_referral"`
	MaxUses           *int       `json:"max_uses"`
	CurrentUses       int        `json:"current_uses"`
	IsActive          bool       `json:"is_active"`
	ExpiresAt         *time.Time `json:"expires_at"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NormalizeCode canonicalizes a code string for storage and lookup.
func NormalizeCode(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func NewReferralCode(
	codeID id.CodeID,
	ownerID id.UserID,
	value string,
	pointsPerReferral int,
	maxUses *int,
	expiresAt *time.Time,
	now time.Time,
) (*ReferralCode, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner_id is required")
	}
	value = NormalizeCode(value)
	if value == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code cannot be empty")
	}
	if pointsPerReferral <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "points_per_referral must be positive")
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "max_uses must be positive when set")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expires_at must be in the future")
	}
	return &ReferralCode{
		ID:                codeID,
		OwnerID:           ownerID,
		Value:             value,
		PointsPerReferral: pointsPerReferral,
		MaxUses:           maxUses,
		IsActive:          true,
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (c *ReferralCode) IsArchived() bool {
	return c.ArchivedAt != nil
}

func (c *ReferralCode) IsOwnedBy(userID id.UserID) bool {
	return c.OwnerID == userID
}

// RemainingUses returns nil for unlimited codes.
func (c *ReferralCode) RemainingUses() *int {
	if c.MaxUses == nil {
		return nil
	}
	remaining := max(*c.MaxUses-c.CurrentUses, 0)
	return &remaining
}

// CodePatch is a partial update of owner-mutable policy fields.
// Nil pointers leave the field untouched; the Clear flags reset nullable fields.
type CodePatch struct {
	PointsPerReferral *int
	MaxUses           *int
	ClearMaxUses      bool
	IsActive          *bool
	ExpiresAt         *time.Time
	ClearExpiresAt    bool
}

func (p CodePatch) IsEmpty() bool {
	return p.PointsPerReferral == nil && p.MaxUses == nil && !p.ClearMaxUses &&
		p.IsActive == nil && p.ExpiresAt == nil && !p.ClearExpiresAt
}

// CanApply validates a patch against the current state without mutating it.
// Tracking rows keep their own points snapshot, so no edit here can change
// what a finalized referral awarded.
func (c *ReferralCode) CanApply(p CodePatch) error {
	if c.IsArchived() {
		return dErrors.New(dErrors.CodeInvariantViolation, "archived codes cannot be edited")
	}
	if p.MaxUses != nil && p.ClearMaxUses {
		return dErrors.New(dErrors.CodeInvariantViolation, "max_uses and clear_max_uses are mutually exclusive")
	}
	if p.ExpiresAt != nil && p.ClearExpiresAt {
		return dErrors.New(dErrors.CodeInvariantViolation, "expires_at and clear_expires_at are mutually exclusive")
	}
	if p.PointsPerReferral != nil && *p.PointsPerReferral <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "points_per_referral must be positive")
	}
	if p.MaxUses != nil {
		if *p.MaxUses <= 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "max_uses must be positive when set")
		}
		if *p.MaxUses < c.CurrentUses {
			return dErrors.New(dErrors.CodeInvariantViolation, "max_uses cannot be lower than current_uses")
		}
	}
	return nil
}

// ApplyPatch mutates policy fields. Must only be called after CanApply returns nil.
func (c *ReferralCode) ApplyPatch(p CodePatch, now time.Time) {
	if p.PointsPerReferral != nil {
		c.PointsPerReferral = *p.PointsPerReferral
	}
	if p.MaxUses != nil {
		v := *p.MaxUses
		c.MaxUses = &v
	}
	if p.ClearMaxUses {
		c.MaxUses = nil
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.ExpiresAt != nil {
		v := *p.ExpiresAt
		c.ExpiresAt = &v
	}
	if p.ClearExpiresAt {
		c.ExpiresAt = nil
	}
	c.UpdatedAt = now
}

// ApplyArchival retires the code while keeping it for analytics.
func (c *ReferralCode) ApplyArchival(now time.Time) {
	c.IsActive = false
	c.ArchivedAt = &now
	c.UpdatedAt = now
}
