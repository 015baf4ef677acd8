// Package domainerrors carries typed, caller-visible failures across layers.
//
// Services return *Error values so transports can map a stable Code to a
// status and a machine-readable reason without string matching. Stores never
// return these directly; they return sentinel errors which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure reason.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Referral engine reasons.
	CodeCodeNotFound            Code = "code_not_found"
	CodeCodeInactive            Code = "code_inactive"
	CodeCodeExpired             Code = "code_expired"
	CodeUsageLimitReached       Code = "usage_limit_reached"
	CodeAlreadyReferred         Code = "already_referred"
	CodeSelfReferral            Code = "self_referral"
	CodeNotPending              Code = "not_pending"
	CodeHasReferralHistory      Code = "has_referral_history"
	CodeHasPendingReferrals     Code = "has_pending_referrals"
	CodeCodeGenerationExhausted Code = "code_generation_exhausted"
	CodeCodeTaken               Code = "code_taken"
	CodeRetryExhausted          Code = "retry_exhausted"
)

// Error is a domain failure with a code, a human message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost domain error in the chain, if any.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the outermost domain code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
