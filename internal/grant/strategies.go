package grant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/registry"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// AuthorizationCodeGranter exchanges an authorization code for tokens.
type AuthorizationCodeGranter struct {
	clients *ClientValidator
	codes   *AuthorizationCodeServices
	tokens  *TokenServices
}

// NewAuthorizationCodeGranter creates the authorization_code strategy.
func NewAuthorizationCodeGranter(clients *ClientValidator, codes *AuthorizationCodeServices, tokens *TokenServices) *AuthorizationCodeGranter {
	return &AuthorizationCodeGranter{clients: clients, codes: codes, tokens: tokens}
}

// Grant implements Granter.
func (g *AuthorizationCodeGranter) Grant(ctx context.Context, req *Request) (*token.AccessToken, error) {
	if req.GrantType != pkgoauth.GrantTypeAuthorizationCode {
		return nil, nil
	}
	client, err := g.clients.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	code := req.Param(pkgoauth.ParamCode)
	if code == "" {
		return nil, ierrors.InvalidRequest("An authorization code must be supplied")
	}
	approved, err := g.codes.Redeem(ctx, code)
	if err != nil {
		return nil, err
	}
	if approved.ClientID != client.ID {
		return nil, ierrors.InvalidGrant("Client ID mismatch")
	}

	// A registered redirect URI takes precedence over whatever the request
	// supplies.
	if client.RedirectURI == "" && approved.RedirectURI != "" {
		if req.Param(pkgoauth.ParamRedirectURI) != approved.RedirectURI {
			return nil, ierrors.RedirectURIMismatch("Redirect URI mismatch")
		}
	}

	scope, err := narrowScope(approved.Scope, req.Scope)
	if err != nil {
		return nil, err
	}
	return g.tokens.Issue(ctx, client, approved.UserID, scope,
		client.IsAuthorizedGrantType(pkgoauth.GrantTypeRefreshToken))
}

// PasswordGranter exchanges resource owner credentials for tokens.
type PasswordGranter struct {
	clients *ClientValidator
	users   registry.UserVerifier
	tokens  *TokenServices
}

// NewPasswordGranter creates the password strategy.
func NewPasswordGranter(clients *ClientValidator, users registry.UserVerifier, tokens *TokenServices) *PasswordGranter {
	return &PasswordGranter{clients: clients, users: users, tokens: tokens}
}

// Grant implements Granter.
func (g *PasswordGranter) Grant(ctx context.Context, req *Request) (*token.AccessToken, error) {
	if req.GrantType != pkgoauth.GrantTypePassword {
		return nil, nil
	}
	client, err := g.clients.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	username := req.Param(pkgoauth.ParamUsername)
	password := req.Param(pkgoauth.ParamPassword)
	if username == "" || password == "" {
		return nil, ierrors.InvalidRequest("A username and password must be supplied")
	}

	scope, err := g.clients.ResolveScope(client, req.Scope)
	if err != nil {
		return nil, err
	}

	user, err := g.users.VerifyUser(ctx, username, password)
	if errors.Is(err, registry.ErrBadCredentials) {
		return nil, ierrors.InvalidGrant("Bad credentials").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}

	return g.tokens.Issue(ctx, client, user.Username, scope,
		client.IsAuthorizedGrantType(pkgoauth.GrantTypeRefreshToken))
}

// ClientCredentialsGranter issues tokens to a confidential client acting on
// its own behalf.
type ClientCredentialsGranter struct {
	clients *ClientValidator
	tokens  *TokenServices
}

// NewClientCredentialsGranter creates the client_credentials strategy.
func NewClientCredentialsGranter(clients *ClientValidator, tokens *TokenServices) *ClientCredentialsGranter {
	return &ClientCredentialsGranter{clients: clients, tokens: tokens}
}

// Grant implements Granter. No refresh token is issued.
func (g *ClientCredentialsGranter) Grant(ctx context.Context, req *Request) (*token.AccessToken, error) {
	if req.GrantType != pkgoauth.GrantTypeClientCredentials {
		return nil, nil
	}
	client, err := g.clients.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !client.RequiresSecret() {
		return nil, ierrors.UnauthorizedClient("The client_credentials grant requires a client secret")
	}

	scope, err := g.clients.ResolveScope(client, req.Scope)
	if err != nil {
		return nil, err
	}
	return g.tokens.Issue(ctx, client, "", scope, false)
}

// RefreshTokenGranter rotates a token pair for a refresh token.
type RefreshTokenGranter struct {
	clients *ClientValidator
	tokens  *TokenServices
}

// NewRefreshTokenGranter creates the refresh_token strategy.
func NewRefreshTokenGranter(clients *ClientValidator, tokens *TokenServices) *RefreshTokenGranter {
	return &RefreshTokenGranter{clients: clients, tokens: tokens}
}

// Grant implements Granter. The old access and refresh tokens stop working
// once the new pair is issued; the scope may only narrow.
func (g *RefreshTokenGranter) Grant(ctx context.Context, req *Request) (*token.AccessToken, error) {
	if req.GrantType != pkgoauth.GrantTypeRefreshToken {
		return nil, nil
	}
	client, err := g.clients.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	value := req.Param(pkgoauth.ParamRefreshToken)
	if value == "" {
		return nil, ierrors.InvalidRequest("A refresh token must be supplied")
	}

	previous, err := g.tokens.Store().TokenByRefresh(ctx, value)
	if errors.Is(err, ierrors.ErrNotFound) {
		return nil, ierrors.InvalidGrant("Invalid refresh token").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if previous.ClientID != client.ID {
		return nil, ierrors.InvalidGrant("Wrong client for this refresh token")
	}
	if previous.RefreshExpiredAt(g.tokens.Clock().Now()) {
		if err := g.tokens.Revoke(ctx, previous.AccessToken); err != nil {
			g.tokens.Logger().Debug("failed to revoke expired token",
				zap.String("client_id", client.ID), zap.Error(err))
		}
		return nil, ierrors.InvalidGrant("Invalid refresh token (expired)")
	}

	scope, err := narrowScope(previous.Scope, req.Scope)
	if err != nil {
		return nil, err
	}
	if err := g.tokens.Revoke(ctx, previous.AccessToken); err != nil {
		return nil, err
	}
	return g.tokens.Issue(ctx, client, previous.UserID, scope, true)
}

// Services bundles the collaborators the standard strategies need.
type Services struct {
	Clients *ClientValidator
	Users   registry.UserVerifier
	Codes   *AuthorizationCodeServices
	Tokens  *TokenServices
}

// NewStandardRegistry registers the four built-in strategies.
func NewStandardRegistry(s Services) *Registry {
	r := NewRegistry()
	r.Register(pkgoauth.GrantTypeAuthorizationCode, NewAuthorizationCodeGranter(s.Clients, s.Codes, s.Tokens))
	r.Register(pkgoauth.GrantTypePassword, NewPasswordGranter(s.Clients, s.Users, s.Tokens))
	r.Register(pkgoauth.GrantTypeClientCredentials, NewClientCredentialsGranter(s.Clients, s.Tokens))
	r.Register(pkgoauth.GrantTypeRefreshToken, NewRefreshTokenGranter(s.Clients, s.Tokens))
	return r
}
