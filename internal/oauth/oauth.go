// Package oauth exposes what resources served next to the token endpoint
// need: access token validation, scope checks and the RFC 8414 metadata
// document. Implementations live under internal/ and are built by the
// constructors in wire.go.
package oauth

import (
	"context"

	"github.com/jamesprial/oauth2-provider/internal/oauth/internal/bearer"
	"github.com/jamesprial/oauth2-provider/internal/oauth/internal/metadata"
)

// TokenClaims is the grant behind a validated access token. Subject is the
// resource owner, or the client itself for client_credentials. Issuer,
// IssuedAt and JTI are set only for self-contained tokens, and a zero
// ExpiresAt means the token does not expire.
type TokenClaims = bearer.TokenClaims

// AuthorizationServerMetadata is the RFC 8414 discovery document.
type AuthorizationServerMetadata = metadata.AuthorizationServerMetadata

// TokenValidator resolves bearer access tokens presented to a protected
// resource.
type TokenValidator interface {
	// ValidateToken rejects unknown, revoked and expired tokens with a
	// DomainError of kind ErrUnauthorized. A failing token store yields
	// kind ErrInternal instead.
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// MetadataService serves the discovery document.
type MetadataService interface {
	GetMetadata(ctx context.Context) (*AuthorizationServerMetadata, error)

	// GetMetadataURL is {baseURL}/.well-known/oauth-authorization-server.
	GetMetadataURL() string
}

// ScopeChecker turns missing scopes into insufficient_scope errors.
type ScopeChecker interface {
	// RequireScopes fails unless claims carry every scope in required.
	RequireScopes(claims *TokenClaims, required ...string) error

	// RequireAnyScope fails unless claims carry at least one of scopes.
	RequireAnyScope(claims *TokenClaims, scopes ...string) error
}

var (
	_ TokenValidator  = (*bearer.Validator)(nil)
	_ ScopeChecker    = (*bearer.ScopeChecker)(nil)
	_ MetadataService = (*metadata.Service)(nil)
)
