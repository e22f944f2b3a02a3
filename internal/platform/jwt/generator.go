// Package jwtmw は運用者トークンの発行と検証を行います。
// 同期の起動など状態を変更するエンドポイントはトークンを要求します。
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// EnvKeyJWTSecret is the environment variable holding the HMAC secret.
	EnvKeyJWTSecret = "JWT_SECRET"
	// ScopeSync allows starting pipeline runs.
	ScopeSync = "sync"
	// issuer is set on every token and checked by the middleware.
	issuer = "crypto-backend"
)

// ErrEmptySecret is returned when a token is requested without a secret.
var ErrEmptySecret = errors.New("jwt secret is empty")

// Claims are the claims of an operator token.
type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Generator は運用者トークンを署名付きで発行します。
type Generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a Generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) *Generator {
	return &Generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a signed HS256 token for operator with the given scopes.
func (g *Generator) GenerateToken(operator string, scopes ...string) (string, error) {
	if len(g.secret) == 0 {
		return "", ErrEmptySecret
	}
	now := g.now()
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
