package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken reads the user id carried by an access token without
// verifying its signature; the client never holds the signing key. It looks
// at the "UserID" and "userId" claims, then falls back to "sub".
func UserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}

	for _, key := range []string{"UserID", "userId"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("access token carries no user id")
	}
	return sub, nil
}
