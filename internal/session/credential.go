package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew is subtracted from the expiry claim so that a token about to
// expire mid-request is already considered expired locally.
const expirySkew = 30 * time.Second

// Credential is the bearer token used to authorize backend requests.
// ExpiresAt is derived from the token's exp claim; a zero ExpiresAt means the
// claim could not be decoded and the token must be treated as expired.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// NewCredential builds a Credential from a raw bearer token, decoding the
// embedded expiry claim. An undecodable token still produces a usable
// Credential — the server remains the authority on whether it is accepted.
func NewCredential(token string) *Credential {
	c := &Credential{Token: token}
	if exp, err := decodeExpiry(token); err == nil {
		c.ExpiresAt = exp
	}
	return c
}

// Expired reports whether the credential should be considered expired at now.
// Unknown expiry counts as expired.
func (c *Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-expirySkew))
}

// TimeUntilExpiry returns the remaining validity window, which may be
// negative. Zero expiry yields zero.
func (c *Credential) TimeUntilExpiry(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// decodeExpiry extracts the exp claim without verifying the signature.
// Verification is the backend's job; locally the claim is only a hint for
// logging and expiry countdowns.
func decodeExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return exp.Time, nil
}
