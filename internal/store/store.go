// Package store persists authorization codes and issued tokens.
//
// Stores report missing records with errors.ErrNotFound and duplicate writes
// with errors.ErrConflict, both wrapped in a DomainError from the "store"
// domain.
package store

import (
	"context"
	"time"
)

// Domain is the DomainError domain used by every store implementation.
const Domain = "store"

// AuthorizationCode is a single-use code issued at the end of the
// interactive leg of the authorization code grant.
type AuthorizationCode struct {
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       []string
	ExpiresAt   time.Time
}

// ExpiredAt reports whether the code had expired at now.
func (c *AuthorizationCode) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Token is the server-side record of an issued access token and its
// optional refresh token.
type Token struct {
	AccessToken      string
	RefreshToken     string
	ClientID         string
	UserID           string
	Scope            []string
	AccessExpiresAt  *time.Time
	RefreshExpiresAt *time.Time
}

// AccessExpiredAt reports whether the access token had expired at now.
func (t *Token) AccessExpiredAt(now time.Time) bool {
	return t.AccessExpiresAt != nil && now.After(*t.AccessExpiresAt)
}

// RefreshExpiredAt reports whether the refresh token had expired at now.
func (t *Token) RefreshExpiredAt(now time.Time) bool {
	return t.RefreshExpiresAt != nil && now.After(*t.RefreshExpiresAt)
}

// AuthorizationCodeStore keeps authorization codes until they are redeemed.
type AuthorizationCodeStore interface {
	// SaveCode records a new code. Reusing a code value is a conflict.
	SaveCode(ctx context.Context, code *AuthorizationCode) error

	// RedeemCode removes and returns the code. At most one caller succeeds
	// for a given code; the rest get ErrNotFound.
	RedeemCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

// TokenStore keeps issued tokens for validation and refresh.
type TokenStore interface {
	// SaveToken records an issued token.
	SaveToken(ctx context.Context, t *Token) error

	// TokenByAccess looks a token up by its access token value.
	TokenByAccess(ctx context.Context, accessToken string) (*Token, error)

	// TokenByRefresh looks a token up by its refresh token value.
	TokenByRefresh(ctx context.Context, refreshToken string) (*Token, error)

	// RemoveToken deletes the token with the given access token value.
	RemoveToken(ctx context.Context, accessToken string) error
}

// Store combines both stores with a lifecycle.
type Store interface {
	AuthorizationCodeStore
	TokenStore

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	Close() error
}
