package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims describes the grant an access token value is generated for.
type Claims struct {
	ClientID  string
	Subject   string
	Scope     []string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// Generator produces access token values.
type Generator interface {
	Generate(ctx context.Context, claims Claims) (string, error)
}

// UUIDGenerator issues random opaque token values.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate(context.Context, Claims) (string, error) {
	return uuid.NewString(), nil
}

// JWTClaims is the payload of self-contained access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

// JWTGenerator issues HS256-signed JWT access tokens.
type JWTGenerator struct {
	issuer string
	key    []byte
}

// NewJWTGenerator creates a generator signing with key. The key must be at
// least 32 bytes long.
func NewJWTGenerator(issuer string, key []byte) (*JWTGenerator, error) {
	if len(key) < 32 {
		return nil, errors.New("jwt signing key must be at least 32 bytes")
	}
	return &JWTGenerator{issuer: issuer, key: key}, nil
}

// Generate signs a token for claims. Every token carries a random jti so two
// grants in the same second never collide.
func (g *JWTGenerator) Generate(_ context.Context, claims Claims) (string, error) {
	c := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   g.issuer,
			Subject:  claims.Subject,
			IssuedAt: jwt.NewNumericDate(claims.IssuedAt),
		},
		ClientID: claims.ClientID,
		Scope:    strings.Join(claims.Scope, " "),
	}
	if c.Subject == "" {
		c.Subject = claims.ClientID
	}
	if claims.ExpiresAt != nil {
		c.ExpiresAt = jwt.NewNumericDate(*claims.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Key returns the signing key so resource-side validators can verify tokens.
func (g *JWTGenerator) Key() []byte {
	return g.key
}
