// Package authtoken reads claims from access tokens without verifying them.
// The server is the authority; the client only uses the claims for display.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrOpaqueToken = errors.New("token is not a JWT")

// Info is what the client can learn from a token.
type Info struct {
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carried an expiry that is already past.
func (i Info) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

func Inspect(token string) (Info, error) {
	if token == "" {
		return Info{}, ErrOpaqueToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}

	var info Info
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Info{}, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		at := exp.Time
		info.ExpiresAt = &at
	}
	return info, nil
}
