// Package jwttoken verifies the identity provider's HS256 access tokens for
// the user-facing referral routes.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	authmw "referrals/pkg/platform/middleware/auth"
)

const defaultLeeway = 30 * time.Second

// Verifier checks signature, issuer, audience and expiry. Issue exists for
// local development and tests; production tokens come from the identity provider.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
	leeway     time.Duration
	now        func() time.Time
}

type Option func(*Verifier)

// WithLeeway tolerates clock skew between the identity provider and this service.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.leeway = d
		}
	}
}

func NewVerifier(signingKey, issuer, audience string, opts ...Option) *Verifier {
	v := &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		leeway:     defaultLeeway,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Issue signs a token whose subject is userID.
func (v *Verifier) Issue(userID id.UserID, ttl time.Duration) (string, error) {
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    v.issuer,
		Audience:  jwt.ClaimStrings{v.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken satisfies auth.JWTValidator.
func (v *Verifier) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, v.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil || !parsed.Valid:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.Subject == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return &authmw.JWTClaims{UserID: claims.Subject, JTI: claims.ID}, nil
}

func (v *Verifier) key(*jwt.Token) (any, error) {
	return v.signingKey, nil
}
