package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/codec"
	"github.com/jamesprial/oauth2-provider/internal/config"
	"github.com/jamesprial/oauth2-provider/internal/endpoint"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/token"
	"github.com/jamesprial/oauth2-provider/internal/transport/internal/handlers"
	transporthttp "github.com/jamesprial/oauth2-provider/internal/transport/internal/http"
	"github.com/jamesprial/oauth2-provider/internal/transport/internal/middleware"
)

// Route patterns served by NewTransportServices.
const (
	PathToken     = "/oauth/token"
	PathTokenInfo = "/oauth/token_info"
	PathMetadata  = "/.well-known/oauth-authorization-server"
	PathHealth    = "/health"
)

// NewServer creates the HTTP server for router.
func NewServer(cfg *config.ServerConfig, router Router, logger *zap.Logger) Server {
	return transporthttp.NewServer(cfg, router, logger)
}

// NewRouter creates an empty router over http.ServeMux.
func NewRouter() Router {
	return transporthttp.NewRouter()
}

// NewAuthMiddleware creates bearer token authentication middleware.
// defaultScopes are advertised in the challenge of 401 responses.
func NewAuthMiddleware(
	validator oauth.TokenValidator,
	responder ErrorResponder,
	defaultScopes []string,
) AuthMiddleware {
	return middleware.NewAuthMiddleware(validator, responder, defaultScopes)
}

// NewErrorResponder creates an error responder advertising realm in its
// challenges.
func NewErrorResponder(realm string, logger *zap.Logger) ErrorResponder {
	return transporthttp.NewErrorResponder(realm, logger)
}

// NewMetadataHandler creates the authorization server metadata handler.
// It serves metadata at /.well-known/oauth-authorization-server per RFC 8414.
func NewMetadataHandler(service oauth.MetadataService, responder ErrorResponder) http.Handler {
	return handlers.NewMetadataHandler(service, responder)
}

// NewTokenHandler creates the token endpoint handler.
func NewTokenHandler(cfg TokenHandlerConfig) http.Handler {
	return handlers.NewTokenHandler(cfg)
}

// NewTokenInfoHandler creates the token info handler. It must be wrapped by
// the authentication middleware.
func NewTokenInfoHandler(responder ErrorResponder) http.Handler {
	return handlers.NewTokenInfoHandler(responder)
}

// NewHealthHandler creates the health check handler. A nil checker always
// reports healthy.
func NewHealthHandler(checker HealthChecker) http.Handler {
	return handlers.NewHealthHandler(checker)
}

// NewLoggingMiddleware creates request logging middleware.
// If logger is nil, it uses the global zap logger.
func NewLoggingMiddleware(logger *zap.Logger) Middleware {
	return middleware.NewLoggingMiddleware(logger)
}

// NewRecoveryMiddleware creates panic recovery middleware.
// It recovers from panics and returns a 500 error to the client.
func NewRecoveryMiddleware(responder ErrorResponder, logger *zap.Logger) Middleware {
	return middleware.NewRecoveryMiddleware(responder, logger)
}

// Config carries the dependencies of NewTransportServices.
type Config struct {
	ServerConfig *config.ServerConfig

	// Realm is advertised in WWW-Authenticate challenges.
	Realm string

	// RequiredScopes must all be granted to tokens presented to the token
	// info endpoint.
	RequiredScopes []string

	// Logger receives request and error logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// TokenEndpoint runs the token request pipeline.
	TokenEndpoint *endpoint.TokenEndpoint

	// TokenCodecs encodes successful token responses.
	TokenCodecs *codec.Composite[*token.AccessToken]

	// ErrorCodecs encodes OAuth2 error responses.
	ErrorCodecs *codec.Composite[*ierrors.OAuth2Error]

	// OAuthValidator validates access tokens.
	OAuthValidator oauth.TokenValidator

	// MetadataService provides authorization server metadata.
	MetadataService oauth.MetadataService

	// HealthChecker backs /health. Optional.
	HealthChecker HealthChecker
}

func (c *Config) validate() error {
	var result *multierror.Error
	required := []struct {
		missing bool
		name    string
	}{
		{c.ServerConfig == nil, "server config"},
		{c.TokenEndpoint == nil, "token endpoint"},
		{c.TokenCodecs == nil, "token codecs"},
		{c.ErrorCodecs == nil, "error codecs"},
		{c.OAuthValidator == nil, "oauth validator"},
		{c.MetadataService == nil, "metadata service"},
	}
	for _, r := range required {
		if r.missing {
			result = multierror.Append(result, fmt.Errorf("%s cannot be nil", r.name))
		}
	}
	return result.ErrorOrNil()
}

// NewTransportServices builds the router and server for cfg. Every missing
// dependency is reported in one error.
func NewTransportServices(cfg *Config) (Server, Router, error) {
	if cfg == nil {
		return nil, nil, errors.New("transport config cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid transport config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	responder := NewErrorResponder(cfg.Realm, logger)
	auth := NewAuthMiddleware(cfg.OAuthValidator, responder, cfg.RequiredScopes)

	router := NewRouter()
	router.Use(NewRecoveryMiddleware(responder, logger), NewLoggingMiddleware(logger))

	router.Handle(PathToken, NewTokenHandler(TokenHandlerConfig{
		Endpoint:  cfg.TokenEndpoint,
		Tokens:    cfg.TokenCodecs,
		Errors:    cfg.ErrorCodecs,
		Responder: responder,
		Realm:     cfg.Realm,
	}))
	router.Handle("GET "+PathMetadata, NewMetadataHandler(cfg.MetadataService, responder))
	router.Handle("GET "+PathHealth, NewHealthHandler(cfg.HealthChecker))

	router.With(auth.Authenticate(), auth.RequireScopes(cfg.RequiredScopes...)).
		Handle("GET "+PathTokenInfo, NewTokenInfoHandler(responder))

	return NewServer(cfg.ServerConfig, router, logger), router, nil
}
