package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// tokenParser never verifies signatures: this tier holds no signing key,
// it only needs the expiry claim to decide whether a token is still usable.
// The backend remains the authority on token validity.
var tokenParser = jwt.NewParser()

// Expiry extracts the exp claim from a JWT without verifying its signature.
func Expiry(token string) (time.Time, error) {
	parsed, _, err := tokenParser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether a token can no longer be presented.
//
// An empty or unparsable token counts as expired. A parsable token without
// an exp claim counts as live, per standard JWT semantics.
func Expired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	exp, err := Expiry(token)
	if errors.Is(err, ErrNoExpiry) {
		return false
	}
	if err != nil {
		return true
	}
	return !now.Before(exp)
}
