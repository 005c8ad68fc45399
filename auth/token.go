package auth

import (
	"crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GateClaims is the payload of the gate session cookie. The gate proves
// only that the bearer presented the shared key; no per-user identity.
type GateClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates gate session tokens. The signing secret
// is generated per process: a restart invalidates all cookies, which is
// acceptable for a gate whose only purpose is the shared key check.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(ttl time.Duration) (*TokenIssuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &TokenIssuer{secret: secret, ttl: ttl}, nil
}

// Generate creates a signed token valid for the configured duration.
func (t *TokenIssuer) Generate() (string, error) {
	now := time.Now()
	claims := &GateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "streamroom",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses the token and checks its signature and expiration.
func (t *TokenIssuer) Validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &GateClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
