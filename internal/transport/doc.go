// Package transport serves the token provider over HTTP.
//
// NewTransportServices assembles the router, middleware and handlers from a
// Config; the implementations live under internal/ and are reachable only
// through the factories in wire.go.
//
// # Routes
//
//	/oauth/token                                  token endpoint, POST only (RFC 6749 §3.2)
//	GET /.well-known/oauth-authorization-server   server metadata (RFC 8414)
//	GET /health                                   200 ok, 503 when the token store fails Ping
//	GET /oauth/token_info                         claims of the presented bearer token
//
// Every route runs inside recovery and request logging. token_info is
// registered on a group from Router.With that adds Authenticate and
// RequireScopes for the configured resource scopes.
//
// # Token endpoint responses
//
// Responses carry Cache-Control: no-store and Pragma: no-cache. A token is
// encoded in the format selected by Accept, JSON when Accept is absent, and
// an Accept no codec satisfies is answered with 406. Protocol errors use
// their own status and never set a cookie:
//
//	HTTP/1.1 400 Bad Request
//	Cache-Control: no-store
//	Pragma: no-cache
//	Content-Type: application/json
//
//	{"error":"invalid_grant","error_description":"Invalid authorization code: abc"}
//
// Anything that is not an OAuth2Error is logged and answered with 500.
//
// # Bearer challenges
//
//	HTTP/1.1 401 Unauthorized
//	WWW-Authenticate: Bearer realm="oauth2-provider", error="invalid_token", error_description="Access token expired", scope="read"
//
//	HTTP/1.1 403 Forbidden
//	WWW-Authenticate: Bearer realm="oauth2-provider", error="insufficient_scope", error_description="Required scopes: read write", scope="read write"
//
// A request with no Authorization header gets a challenge without an error
// attribute. Handlers behind Authenticate read the claims with
// ClaimsFromContext.
package transport
