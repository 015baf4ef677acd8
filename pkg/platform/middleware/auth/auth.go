// Package auth authenticates end users by bearer token. The referral engine
// never issues tokens; it only trusts the identity provider's signature.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/httputil"
	"referrals/pkg/requestcontext"
)

// JWTValidator verifies a raw token and returns the claims the middleware needs.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the validator's view of a token: subject and token id.
type JWTClaims struct {
	UserID string
	JTI    string
}

const bearerChallenge = `Bearer realm="referrals"`

// RequireAuth puts the token subject on the context as the caller's user id.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, logger, "missing bearer token", nil)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject(w, r, logger, "token rejected", err)
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				reject(w, r, logger, "token subject is not a user id", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(ctx, userID)))
		})
	}
}

// bearerToken accepts the scheme in any case, as RFC 7235 requires.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func reject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string, err error) {
	ctx := r.Context()
	attrs := []any{"reason", reason, "path", r.URL.Path, "request_id", requestcontext.RequestID(ctx)}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.WarnContext(ctx, "unauthenticated request", attrs...)

	w.Header().Set("WWW-Authenticate", bearerChallenge)
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "a valid bearer token is required"))
}
