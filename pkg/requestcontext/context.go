// Package requestcontext carries the caller identity, request id and request
// clock through a context so services and stores never import net/http.
// Middleware writes these values; tests inject them directly.
package requestcontext

import (
	"context"
	"time"

	id "referrals/pkg/domain"
)

type key int

const (
	keyUserID key = iota
	keyTrustedService
	keyRequestID
	keyRequestTime
)

// UserID is the authenticated end user, or the nil id for service calls.
func UserID(ctx context.Context) id.UserID {
	userID, _ := ctx.Value(keyUserID).(id.UserID)
	return userID
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// IsTrustedService reports whether the caller presented the service token.
func IsTrustedService(ctx context.Context) bool {
	ok, _ := ctx.Value(keyTrustedService).(bool)
	return ok
}

func WithTrustedService(ctx context.Context) context.Context {
	return context.WithValue(ctx, keyTrustedService, true)
}

// Actor names the caller for audit lines: "user:<id>", "service" or "anonymous".
func Actor(ctx context.Context) string {
	if userID := UserID(ctx); !userID.IsNil() {
		return "user:" + userID.String()
	}
	if IsTrustedService(ctx) {
		return "service"
	}
	return "anonymous"
}

func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(keyRequestID).(string)
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now is the instant the request was accepted, so every timestamp written by
// one operation agrees. Outside a request it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}
