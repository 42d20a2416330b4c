// Package transportcore holds the interfaces and context helpers shared by
// the transport package and its internal implementations, so neither side
// imports the other.
package transportcore

import (
	"context"
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Server owns the listener of the token endpoint.
type Server interface {
	// Start listens and serves until Shutdown. It blocks.
	Start() error

	// Shutdown stops accepting connections and waits for in-flight
	// requests until ctx is done.
	Shutdown(ctx context.Context) error

	// Addr is the bound address once listening, so ":0" resolves to the
	// port actually chosen.
	Addr() string
}

// Router routes requests to handlers registered with method-qualified
// http.ServeMux patterns such as "POST /oauth/token".
type Router interface {
	http.Handler

	// Handle registers handler for pattern, wrapped in the router's
	// middleware chain as it stands at registration time.
	Handle(pattern string, handler http.Handler)

	// HandleFunc is Handle for a handler function.
	HandleFunc(pattern string, handler http.HandlerFunc)

	// Use appends middleware for subsequent registrations. The first
	// middleware is the outermost.
	Use(middlewares ...Middleware)

	// With returns a group sharing this router's routes whose chain is the
	// current chain followed by middlewares. The parent is unchanged.
	With(middlewares ...Middleware) Router

	// Routes lists every registered pattern in sorted order.
	Routes() []string
}

// HealthChecker reports whether a dependency the provider needs, such as
// the token store, is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// AuthMiddleware guards resources served next to the token endpoint with
// RFC 6750 bearer tokens.
type AuthMiddleware interface {
	// Authenticate resolves the bearer token and stores its claims in the
	// request context. Missing or rejected tokens get a 401 challenge.
	Authenticate() Middleware

	// RequireScopes answers 403 insufficient_scope unless the claims from
	// Authenticate carry every scope.
	RequireScopes(scopes ...string) Middleware
}

// ErrorResponder renders failures outside the token endpoint's own error
// document: bearer challenges and framework errors.
type ErrorResponder interface {
	// Unauthorized writes 401 with a Bearer challenge. ErrMissingToken gives
	// a bare challenge, any other err adds error="invalid_token".
	Unauthorized(w http.ResponseWriter, scope string, err error)

	// Forbidden writes 403 with error="insufficient_scope" naming
	// requiredScopes.
	Forbidden(w http.ResponseWriter, requiredScopes []string, err error)

	// InternalError writes 500 server_error without leaking err.
	InternalError(w http.ResponseWriter, err error)

	// BadRequest writes 400 invalid_request.
	BadRequest(w http.ResponseWriter, err error)
}
