package models

import (
	"regexp"
	"strings"
	"time"

	dErrors "referrals/pkg/domain-errors"
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,32}$`)

const maxCancelReasonLength = 256

type CreateCodeRequest struct {
	PointsPerReferral int        `json:"points_per_referral"`
	MaxUses           *int       `json:"max_uses,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CustomCode        string     `json:"custom_code,omitempty"`
}

func (r *CreateCodeRequest) Normalize() {
	r.CustomCode = strings.TrimSpace(r.CustomCode)
}

func (r *CreateCodeRequest) Validate() error {
	if r.PointsPerReferral <= 0 {
		return dErrors.New(dErrors.CodeValidation, "points_per_referral must be a positive integer")
	}
	if r.MaxUses != nil && *r.MaxUses <= 0 {
		return dErrors.New(dErrors.CodeValidation, "max_uses must be a positive integer")
	}
	if r.CustomCode != "" && !customCodePattern.MatchString(r.CustomCode) {
		return dErrors.New(dErrors.CodeValidation, "custom_code must be 4-32 characters of letters, digits, '_' or '-'")
	}
	return nil
}

type UpdateCodeRequest struct {
	PointsPerReferral *int       `json:"points_per_referral,omitempty"`
	MaxUses           *int       `json:"max_uses,omitempty"`
	ClearMaxUses      bool       `json:"clear_max_uses,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ClearExpiresAt    bool       `json:"clear_expires_at,omitempty"`
}

func (r *UpdateCodeRequest) Validate() error {
	if r.ToPatch().IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if r.PointsPerReferral != nil && *r.PointsPerReferral <= 0 {
		return dErrors.New(dErrors.CodeValidation, "points_per_referral must be a positive integer")
	}
	if r.MaxUses != nil && *r.MaxUses <= 0 {
		return dErrors.New(dErrors.CodeValidation, "max_uses must be a positive integer")
	}
	return nil
}

func (r *UpdateCodeRequest) ToPatch() CodePatch {
	return CodePatch{
		PointsPerReferral: r.PointsPerReferral,
		MaxUses:           r.MaxUses,
		ClearMaxUses:      r.ClearMaxUses,
		IsActive:          r.IsActive,
		ExpiresAt:         r.ExpiresAt,
		ClearExpiresAt:    r.ClearExpiresAt,
	}
}

type RedeemRequest struct {
	Code           string `json:"code"`
	ReferredUserID string `json:"referred_user_id"`
}

func (r *RedeemRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.ReferredUserID = strings.TrimSpace(r.ReferredUserID)
}

func (r *RedeemRequest) Validate() error {
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if r.ReferredUserID == "" {
		return dErrors.New(dErrors.CodeValidation, "referred_user_id is required")
	}
	return nil
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *CancelRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxCancelReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason must be 256 characters or less")
	}
	return nil
}
