// Package bearer validates access tokens issued by this provider.
package bearer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/oauth/oautherr"
	"github.com/jamesprial/oauth2-provider/internal/store"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// TokenClaims is the grant behind a validated access token.
type TokenClaims struct {
	Subject   string
	ClientID  string
	Issuer    string
	Scopes    []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JTI       string
}

func (c *TokenClaims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

// HasAnyScope is false for an empty scopes list.
func (c *TokenClaims) HasAnyScope(scopes ...string) bool {
	return slices.ContainsFunc(scopes, c.HasScope)
}

// HasAllScopes is true for an empty scopes list, even on nil claims.
func (c *TokenClaims) HasAllScopes(scopes ...string) bool {
	if len(scopes) == 0 {
		return true
	}
	return c != nil && token.ContainsAll(c.Scopes, scopes)
}

// Only the algorithm the provider signs with is accepted.
var allowedAlgorithms = map[string]bool{
	jwt.SigningMethodHS256.Alg(): true,
}

// Validator validates access tokens against the token store. When a signing
// key is configured, self-contained tokens are verified before the lookup.
type Validator struct {
	tokens    store.TokenStore
	key       []byte
	issuer    string
	clockSkew time.Duration
	clock     clockwork.Clock
}

// Option configures a Validator.
type Option func(*Validator)

// WithSigningKey enables HS256 verification of JWT access tokens.
func WithSigningKey(issuer string, key []byte) Option {
	return func(v *Validator) {
		v.issuer = issuer
		v.key = key
	}
}

// WithClockSkew sets the tolerance applied to expiry checks.
func WithClockSkew(d time.Duration) Option {
	return func(v *Validator) {
		v.clockSkew = d
	}
}

// WithClock sets the time source.
func WithClock(clock clockwork.Clock) Option {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewValidator creates a new token validator.
func NewValidator(tokens store.TokenStore, opts ...Option) *Validator {
	v := &Validator{
		tokens: tokens,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateToken validates an access token and returns the grant it represents.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, oautherr.NewInvalidTokenError("ValidateToken", errors.New("empty token"))
	}

	claims := &TokenClaims{}
	if len(v.key) > 0 {
		verified, err := v.verifyJWT(tokenString)
		if err != nil {
			return nil, err
		}
		claims = verified
	}

	record, err := v.tokens.TokenByAccess(ctx, tokenString)
	if err != nil {
		if errors.Is(err, ierrors.ErrNotFound) {
			return nil, oautherr.NewUnknownTokenError("ValidateToken")
		}
		return nil, oautherr.NewLookupError("ValidateToken", err)
	}

	if record.AccessExpiredAt(v.clock.Now().Add(-v.clockSkew)) {
		return nil, oautherr.NewTokenExpiredError("ValidateToken")
	}

	claims.ClientID = record.ClientID
	claims.Subject = record.UserID
	if claims.Subject == "" {
		claims.Subject = record.ClientID
	}
	claims.Scopes = append([]string(nil), record.Scope...)
	if record.AccessExpiresAt != nil {
		claims.ExpiresAt = *record.AccessExpiresAt
	}
	return claims, nil
}

// verifyJWT checks the signature, algorithm, issuer and expiry of a
// self-contained token.
func (v *Validator) verifyJWT(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	unverified, _, err := parser.ParseUnverified(tokenString, &token.JWTClaims{})
	if err != nil {
		return nil, oautherr.NewInvalidTokenError("ValidateToken", fmt.Errorf("failed to parse token: %w", err))
	}

	alg, ok := unverified.Header["alg"].(string)
	if !ok || alg == "" {
		return nil, oautherr.NewUnsupportedAlgorithmError("ValidateToken", "none")
	}
	if !allowedAlgorithms[alg] {
		return nil, oautherr.NewUnsupportedAlgorithmError("ValidateToken", alg)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &token.JWTClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != alg {
			return nil, oautherr.NewUnsupportedAlgorithmError("ValidateToken", t.Method.Alg())
		}
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oautherr.NewTokenExpiredError("ValidateToken")
		}
		return nil, oautherr.NewInvalidSignatureError("ValidateToken", err)
	}

	c, ok := parsed.Claims.(*token.JWTClaims)
	if !ok || !parsed.Valid {
		return nil, oautherr.NewInvalidTokenError("ValidateToken", errors.New("token is invalid"))
	}

	claims := &TokenClaims{
		Issuer: c.Issuer,
		JTI:    c.ID,
		Scopes: parseScopes(c.Scope),
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}
	return claims, nil
}

// parseScopes parses a space-separated scope string into a slice.
func parseScopes(scopeStr string) []string {
	if scopeStr == "" {
		return nil
	}
	return strings.Fields(scopeStr)
}
