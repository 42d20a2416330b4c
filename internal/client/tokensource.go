package client

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// FetchFunc obtains a fresh token, typically by running a grant.
type FetchFunc func(ctx context.Context) (*token.AccessToken, error)

// TokenSource returns an oauth2.TokenSource that caches the current token.
// The first token comes from fetch. After expiry the refresh token is used
// when one was issued; a rejected refresh falls back to fetch.
func (c *Client) TokenSource(ctx context.Context, fetch FetchFunc) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, client: c, fetch: fetch})
}

// PasswordTokenSource is TokenSource for the password grant.
func (c *Client) PasswordTokenSource(ctx context.Context, username, password string, scope ...string) oauth2.TokenSource {
	return c.TokenSource(ctx, func(ctx context.Context) (*token.AccessToken, error) {
		return c.Password(ctx, username, password, scope...)
	})
}

// ClientCredentialsTokenSource is TokenSource for the client credentials
// grant.
func (c *Client) ClientCredentialsTokenSource(ctx context.Context, scope ...string) oauth2.TokenSource {
	return c.TokenSource(ctx, func(ctx context.Context) (*token.AccessToken, error) {
		return c.ClientCredentials(ctx, scope...)
	})
}

type tokenSource struct {
	ctx    context.Context
	client *Client
	fetch  FetchFunc

	mu      sync.Mutex
	refresh string
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var at *token.AccessToken
	if s.refresh != "" {
		refreshed, err := s.client.Refresh(s.ctx, s.refresh)
		switch {
		case err == nil:
			at = refreshed
		case ierrors.IsKind(err, ierrors.KindInvalidGrant):
			s.client.logger.Debug("refresh token rejected, running grant again", zap.Error(err))
			s.refresh = ""
		default:
			return nil, err
		}
	}

	if at == nil {
		fetched, err := s.fetch(s.ctx)
		if err != nil {
			return nil, err
		}
		at = fetched
	}

	s.refresh = at.RefreshValue()
	return ToOAuth2(at), nil
}

// ToOAuth2 converts an access token to its golang.org/x/oauth2 form. The
// granted scope is kept in the token's extra data under "scope".
func ToOAuth2(at *token.AccessToken) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  at.Value,
		TokenType:    at.TokenType,
		RefreshToken: at.RefreshValue(),
	}
	if at.Expiration != nil {
		t.Expiry = *at.Expiration
	}
	return t.WithExtra(map[string]any{
		pkgoauth.FieldScope: strings.Join(at.Scope, " "),
	})
}
