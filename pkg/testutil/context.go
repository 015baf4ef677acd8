package testutil

import (
	"net/http"

	id "referrals/pkg/domain"
	"referrals/pkg/requestcontext"
)

// AsUser attaches an authenticated user, as the bearer-token middleware
// would. Values that are not UUIDs leave the request anonymous.
func AsUser(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// AsTrustedService marks the request as coming from a collaborator holding
// the service token.
func AsTrustedService(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithTrustedService(req.Context()))
}
