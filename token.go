package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenInfo is the subset of access token claims the client inspects
// locally. The token is never signature-verified here: it is an opaque
// credential minted and validated by the backend. We only read timing and
// identity claims to decide when a proactive refresh is worthwhile.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// InspectToken decodes the claims of raw without verifying its signature.
func InspectToken(raw string) (*TokenInfo, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode access token")
	}

	info := &TokenInfo{}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}

	return info, nil
}

// SubjectUUID parses the subject claim as a user ID.
func (t *TokenInfo) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(t.Subject)
}

// ExpiresWithin reports whether the token expires before now+leeway. Tokens
// without an exp claim never report as expiring.
func (t *TokenInfo) ExpiresWithin(now time.Time, leeway time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(t.ExpiresAt)
}
