// Package endpoint implements the token endpoint independent of any HTTP
// framework: it resolves client credentials, builds a grant request, runs the
// granter and identifies protocol errors for rendering.
package endpoint

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/clientauth"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/grant"
	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// TokenEndpoint issues access tokens for token requests.
type TokenEndpoint struct {
	auth    *clientauth.Authenticator
	granter grant.Granter
}

// New creates a token endpoint. It panics on nil collaborators.
func New(auth *clientauth.Authenticator, granter grant.Granter) *TokenEndpoint {
	if auth == nil {
		panic("authenticator cannot be nil")
	}
	if granter == nil {
		panic("granter cannot be nil")
	}
	return &TokenEndpoint{auth: auth, granter: granter}
}

// Token handles one token request. params holds the merged query and form
// parameters. Protocol failures are returned as *errors.OAuth2Error; any
// other error is an infrastructure failure.
func (e *TokenEndpoint) Token(ctx context.Context, params map[string]string, headers http.Header) (*token.AccessToken, error) {
	grantType := params[pkgoauth.ParamGrantType]
	if grantType == "" {
		return nil, ierrors.InvalidRequest("Missing grant type")
	}

	req := &grant.Request{
		GrantType:  grantType,
		Parameters: params,
		Client:     e.auth.Authenticate(headers, params),
		Scope:      token.ParseScope(params[pkgoauth.ParamScope]),
	}

	logger := logging.FromContext(ctx).With(
		zap.String("grant_type", grantType),
		zap.String("client_id", req.Client.ClientID),
	)

	at, err := e.granter.Grant(ctx, req)
	if err != nil {
		if oe, ok := Translate(err); ok {
			logger.Info("token request rejected", zap.String("error", oe.ErrorCode()), zap.String("description", oe.Message))
		}
		return nil, err
	}
	if at == nil {
		logger.Info("token request rejected", zap.String("error", ierrors.ErrorCodeUnsupportedGrantType))
		return nil, ierrors.UnsupportedGrantType("Unsupported grant type: " + grantType)
	}

	logger.Info("token issued")
	return at, nil
}

// ResponseHeaders returns the headers every token endpoint response carries,
// successful or not.
func ResponseHeaders() http.Header {
	h := make(http.Header, 2)
	h.Set(pkgoauth.HeaderCacheControl, pkgoauth.CacheControlNoStore)
	h.Set(pkgoauth.HeaderPragma, pkgoauth.PragmaNoCache)
	return h
}

// Translate finds the protocol error in err's chain. Errors without one are
// left to the surrounding framework.
func Translate(err error) (*ierrors.OAuth2Error, bool) {
	return ierrors.AsOAuth2Error(err)
}
