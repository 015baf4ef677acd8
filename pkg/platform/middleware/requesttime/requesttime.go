// Package requesttime pins one UTC instant per request, so a redemption's
// expiry check and the tracking row it writes agree on "now".
package requesttime

import (
	"net/http"
	"time"

	"referrals/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
