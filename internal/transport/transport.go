package transport

import (
	"github.com/jamesprial/oauth2-provider/internal/transport/internal/handlers"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// The interfaces are declared in transportcore so the internal packages can
// share them; these aliases are the names callers use.
type (
	Middleware     = transportcore.Middleware
	Server         = transportcore.Server
	Router         = transportcore.Router
	AuthMiddleware = transportcore.AuthMiddleware
	HealthChecker  = transportcore.HealthChecker
	ErrorResponder = transportcore.ErrorResponder

	// TokenHandlerConfig holds the collaborators of the token endpoint
	// handler.
	TokenHandlerConfig = handlers.TokenHandlerConfig
)
