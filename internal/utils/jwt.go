package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseBearerToken extracts the token from an "Authorization: Bearer <token>"
// style value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

// CredentialExpiry reads the exp claim of a JWT credential without verifying
// its signature; the client never holds the signing key.
//
// Credentials may be bare tokens or "Bearer <token>" values. ok is false when
// the credential is not a JWT or carries no exp claim; such credentials are
// opaque and cannot be checked locally.
func CredentialExpiry(credential string) (expiresAt time.Time, ok bool, err error) {
	token := strings.TrimSpace(credential)
	if strings.Contains(token, " ") {
		if token, err = ParseBearerToken(token); err != nil {
			return time.Time{}, false, err
		}
	}

	if strings.Count(token, ".") != 2 {
		return time.Time{}, false, nil
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error parsing credential: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, false, nil
	}

	return exp.Time, true, nil
}
