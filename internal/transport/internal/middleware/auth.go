// Package middleware provides HTTP middleware for the transport layer.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

var errNotAuthenticated = errors.New("authentication required")

// bearerAuth guards resources with access tokens issued by this provider.
type bearerAuth struct {
	validator oauth.TokenValidator
	responder transportcore.ErrorResponder
	// challengeScope is advertised in every 401 challenge.
	challengeScope string
}

// NewAuthMiddleware creates RFC 6750 bearer token middleware. scopes are
// named in the scope attribute of 401 challenges.
func NewAuthMiddleware(
	validator oauth.TokenValidator,
	responder transportcore.ErrorResponder,
	scopes []string,
) transportcore.AuthMiddleware {
	switch {
	case validator == nil:
		panic("validator cannot be nil")
	case responder == nil:
		panic("responder cannot be nil")
	}
	return &bearerAuth{
		validator:      validator,
		responder:      responder,
		challengeScope: strings.Join(scopes, " "),
	}
}

// Authenticate resolves the bearer token and stores its claims in the
// request context. A token the store cannot look up because the store
// itself failed yields 500 rather than a challenge.
func (a *bearerAuth) Authenticate() transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value, err := bearerToken(r.Header.Get(pkgoauth.HeaderAuthorization))
			if err != nil {
				a.responder.Unauthorized(w, a.challengeScope, err)
				return
			}

			claims, err := a.validator.ValidateToken(r.Context(), value)
			switch {
			case errors.Is(err, ierrors.ErrInternal):
				a.responder.InternalError(w, err)
				return
			case err != nil:
				a.responder.Unauthorized(w, a.challengeScope, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(transportcore.ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireScopes answers 403 insufficient_scope unless the authenticated
// token carries every scope. It must run inside Authenticate.
func (a *bearerAuth) RequireScopes(scopes ...string) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := transportcore.ClaimsFromContext(r.Context())
			if !ok || claims == nil {
				a.responder.Unauthorized(w, a.challengeScope, errNotAuthenticated)
				return
			}
			if !claims.HasAllScopes(scopes...) {
				a.responder.Forbidden(w, scopes, transportcore.ErrInsufficientScope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken parses an Authorization header value of the form
// "Bearer <token>". The scheme match ignores case.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", transportcore.ErrMissingToken
	}
	scheme, credentials, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, pkgoauth.BearerScheme) {
		return "", transportcore.ErrInvalidToken
	}
	if credentials = strings.TrimSpace(credentials); credentials == "" {
		return "", transportcore.ErrMissingToken
	}
	return credentials, nil
}
