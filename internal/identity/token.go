package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Login tokens expire after 7 days; the client restarts the oauth flow.
const defaultTokenTTL = 7 * 24 * time.Hour

// Tokens mints and verifies bearer credentials. The subject is always
// the external (encoded) user id, so a decoded token still has to pass
// through the Codec before it names a user.
type Tokens struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewTokens(secret string) *Tokens {
	return &Tokens{
		secret:   []byte(secret),
		tokenTTL: defaultTokenTTL,
	}
}

// Issue mints a signed credential for the given external id.
func (t *Tokens) Issue(externalID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   externalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies a credential and returns its subject.
func (t *Tokens) Parse(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
