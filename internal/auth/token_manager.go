// Package auth verifies the bearer tokens issued by the external identity
// service and turns them into a domain.Identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"farmtable/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 tokens carrying sub and role.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for id. The API only validates; Issue serves the seed
// tool and tests.
func (m *TokenManager) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" || !id.Role.Valid() {
		return "", fmt.Errorf("issue token: %w", domain.ErrInvalidInput)
	}
	now := m.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(m.secret)
}

// Validate parses token and returns the identity it carries.
func (m *TokenManager) Validate(token string) (domain.Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	id := domain.Identity{UserID: c.Subject, Role: domain.Role(c.Role)}
	if id.UserID == "" || !id.Role.Valid() {
		return domain.Identity{}, ErrInvalidToken
	}
	return id, nil
}
