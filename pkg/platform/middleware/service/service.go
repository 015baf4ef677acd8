// Package service authenticates trusted internal collaborators (the billing
// and onboarding systems) that finalize or cancel referrals.
package service

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/httputil"
	request "referrals/pkg/platform/middleware/request"
	"referrals/pkg/requestcontext"
)

// HeaderServiceToken carries the shared secret.
const HeaderServiceToken = "X-Service-Token"

func RequireServiceToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderServiceToken)
			// An empty configured token disables the route rather than opening it.
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "service token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "service token required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithTrustedService(r.Context())))
		})
	}
}
