// Package token holds the access and refresh token value objects issued by
// the provider, together with scope helpers and token value generators.
package token

import (
	"errors"
	"strings"
	"time"

	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// ErrInvalidScope is returned when a scope set contains an empty entry.
var ErrInvalidScope = errors.New("scope entries must be non-empty strings")

// RefreshToken is an opaque refresh token value.
type RefreshToken struct {
	// Value is the wire value of the token.
	Value string

	// Expiration is kept for store bookkeeping only; it is never serialized.
	Expiration *time.Time
}

// NewRefreshToken creates a refresh token that never expires.
func NewRefreshToken(value string) *RefreshToken {
	return &RefreshToken{Value: value}
}

// ExpiredAt reports whether the refresh token had expired at now.
func (r *RefreshToken) ExpiredAt(now time.Time) bool {
	return r.Expiration != nil && r.Expiration.Before(now)
}

// AccessToken is an issued access token. Value is fixed at construction; the
// remaining fields are metadata filled in by the issuer or a decoder.
type AccessToken struct {
	// Value is the opaque token string.
	Value string

	// TokenType defaults to "bearer".
	TokenType string

	// Expiration is nil for tokens that never expire.
	Expiration *time.Time

	// RefreshToken is nil when none was issued.
	RefreshToken *RefreshToken

	// Scope lists the granted scopes in insertion order.
	Scope []string
}

// New creates a bearer access token with the given value.
func New(value string) *AccessToken {
	return &AccessToken{
		Value:     value,
		TokenType: pkgoauth.TokenTypeBearer,
	}
}

// IsExpired reports whether the token's expiration is strictly in the past.
func (t *AccessToken) IsExpired() bool {
	return t.ExpiredAt(time.Now())
}

// ExpiredAt is IsExpired against an explicit clock reading.
func (t *AccessToken) ExpiredAt(now time.Time) bool {
	return t.Expiration != nil && t.Expiration.Before(now)
}

// ExpiresIn returns the whole seconds remaining at now. The boolean is false
// when the token has no expiration.
func (t *AccessToken) ExpiresIn(now time.Time) (int64, bool) {
	if t.Expiration == nil {
		return 0, false
	}
	return int64(t.Expiration.Sub(now) / time.Second), true
}

// SetExpiresIn sets the expiration to now plus the given number of seconds.
func (t *AccessToken) SetExpiresIn(now time.Time, seconds int64) {
	exp := now.Add(time.Duration(seconds) * time.Second)
	t.Expiration = &exp
}

// RefreshValue returns the refresh token value, or "" when none is set.
func (t *AccessToken) RefreshValue() string {
	if t.RefreshToken == nil {
		return ""
	}
	return t.RefreshToken.Value
}

// Equal compares two tokens by value.
func (t *AccessToken) Equal(other *AccessToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Value == other.Value
}

// String returns the token value.
func (t *AccessToken) String() string {
	return t.Value
}

// ValidateScope fails with ErrInvalidScope when any entry is empty.
func ValidateScope(scope []string) error {
	for _, s := range scope {
		if s == "" {
			return ErrInvalidScope
		}
	}
	return nil
}

// FormatScope joins scope entries with single spaces in insertion order.
func FormatScope(scope []string) (string, error) {
	if err := ValidateScope(scope); err != nil {
		return "", err
	}
	return strings.Join(scope, " "), nil
}

// ParseScope splits a scope parameter on single spaces. Empty entries are
// dropped and duplicates collapse to their first occurrence.
func ParseScope(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, " ") {
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// ContainsAll reports whether every entry of want appears in have.
func ContainsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, s := range want {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the entries of want that are absent from have.
func Missing(have, want []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range want {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
