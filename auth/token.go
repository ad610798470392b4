// Package auth owns session tokens and the role computation every
// mutating operation relies on.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"huddle/domain"
	"huddle/errors"
)

// SessionClaims is the payload stored inside a session JWT.
type SessionClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Tokens issues and validates signed session tokens (HS256).
type Tokens struct {
	secret   []byte
	duration time.Duration
}

func NewTokens(secret string, duration time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), duration: duration}
}

// Issue creates a signed session token for the user. The jti is a fresh
// UUID so two logins by the same user yield distinct tokens.
func (t *Tokens) Issue(user domain.UserID) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: int(user),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "huddle",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and checks the signature and expiry of a session token.
// Any defect maps to Unauthorized; the core never distinguishes a forged
// token from an expired one.
func (t *Tokens) Validate(tokenString string) (domain.UserID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return 0, errors.Unauthorizedf("invalid session token: %v", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return 0, errors.Unauthorizedf("invalid session token")
	}
	return domain.UserID(claims.UserID), nil
}
