package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew treats tokens about to expire as already expired so they are not sent mid-flight.
const expirySkew = 5 * time.Second

var parser = jwt.NewParser()

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
//
// ok is false when the token is not a JWT or carries no exp claim.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	numeric, err := claims.GetExpirationTime()
	if err != nil || numeric == nil {
		return time.Time{}, false
	}
	return numeric.Time, true
}

// IsExpired reports whether token carries an exp claim that has passed at now.
//
// Opaque tokens are never considered expired; only the server can judge them.
func IsExpired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !now.Add(expirySkew).Before(exp)
}
