// Package sentinel lists the storage facts the referral stores report.
// Stores wrap these; the service maps them onto domain error codes with the
// context it has (which code, which user).
package sentinel

import "errors"

var (
	// ErrNotFound: no row for the id or code value.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed: a unique key is taken, either a code value or a
	// (code, referred user) pair.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the row exists but its status forbids the change.
	ErrInvalidState = errors.New("invalid state")
	// ErrExhausted: the conditional usage increment found no capacity left.
	ErrExhausted = errors.New("exhausted")
	// ErrConflict: concurrent writers collided and the transaction may be retried.
	ErrConflict = errors.New("conflict")
)
