package nakama

import (
	"fmt"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
)

// TokenClaims are the identity claims Nakama puts in a session token.
type TokenClaims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// ParseSessionToken reads the claims of a session token. The signature is not
// verified.
func ParseSessionToken(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse session token: %w", err)
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return TokenClaims{}, fmt.Errorf("token claims missing uid")
	}
	out := TokenClaims{UserID: uid}
	out.Username, _ = claims["usn"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}

// Expired reports whether the token is past its expiry at now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
