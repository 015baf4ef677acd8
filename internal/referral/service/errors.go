package service

import (
	"context"
	"errors"

	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/sentinel"
)

// wrapStoreErr passes domain errors and storage conflicts through untouched
// so the tx boundary can retry conflicts.
func wrapStoreErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func wrapCodeErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "referral code not found")
	}
	return wrapStoreErr(err, "failed to load referral code")
}

func wrapTrackingErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "referral not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeNotPending, "referral is not pending")
	}
	return wrapStoreErr(err, "failed to load referral")
}

// asValidation converts invariant violations raised by model constructors
// into validation errors for API responses.
func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		de, _ := dErrors.As(err)
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
