// Package domain holds typed identifiers shared across the referral engine.
//
// Every identifier is a UUID underneath, but each gets its own named type so
// the compiler rejects passing a code ID where a tracking ID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "referrals/pkg/domain-errors"
)

type (
	// UserID identifies a platform user: a code owner or a referred signup.
	UserID uuid.UUID
	// CodeID identifies a ReferralCode row.
	CodeID uuid.UUID
	// TrackingID identifies a ReferralTracking row.
	TrackingID uuid.UUID
	// EventID identifies an outbox event.
	EventID uuid.UUID
)

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id CodeID) String() string     { return uuid.UUID(id).String() }
func (id TrackingID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CodeID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TrackingID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id CodeID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id TrackingID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error     { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *CodeID) UnmarshalText(b []byte) error     { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *TrackingID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *EventID) UnmarshalText(b []byte) error    { return unmarshalInto((*uuid.UUID)(id), b) }

func NewCodeID() CodeID         { return CodeID(uuid.New()) }
func NewTrackingID() TrackingID { return TrackingID(uuid.New()) }
func NewEventID() EventID       { return EventID(uuid.New()) }

// ParseUserID validates a user identifier at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseCodeID validates a referral code identifier at a trust boundary.
func ParseCodeID(s string) (CodeID, error) {
	u, err := parseUUID(s, "code_id")
	return CodeID(u), err
}

// ParseTrackingID validates a tracking identifier at a trust boundary.
func ParseTrackingID(s string) (TrackingID, error) {
	u, err := parseUUID(s, "tracking_id")
	return TrackingID(u), err
}

// maxIDLength bounds input before it reaches the UUID parser.
const maxIDLength = 64

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

func unmarshalInto(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}
