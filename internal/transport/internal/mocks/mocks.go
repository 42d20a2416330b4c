// Package mocks provides hand-written fakes for the transport handlers.
package mocks

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/jamesprial/oauth2-provider/internal/grant"
	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// MetadataService serves fixed authorization server metadata unless Err is set.
type MetadataService struct {
	Metadata *oauth.AuthorizationServerMetadata
	Err      error
}

func (m *MetadataService) GetMetadata(context.Context) (*oauth.AuthorizationServerMetadata, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Metadata == nil {
		return &oauth.AuthorizationServerMetadata{}, nil
	}
	return m.Metadata, nil
}

func (m *MetadataService) GetMetadataURL() string {
	if m.Metadata == nil || m.Metadata.Issuer == "" {
		return "https://auth.example.com/.well-known/oauth-authorization-server"
	}
	return strings.TrimSuffix(m.Metadata.Issuer, "/") + "/.well-known/oauth-authorization-server"
}

// Granter hands every request to GrantFunc and remembers the last one.
type Granter struct {
	GrantFunc func(ctx context.Context, req *grant.Request) (*token.AccessToken, error)

	mu   sync.Mutex
	last *grant.Request
}

func (g *Granter) Grant(ctx context.Context, req *grant.Request) (*token.AccessToken, error) {
	g.mu.Lock()
	g.last = req
	g.mu.Unlock()
	if g.GrantFunc == nil {
		return nil, nil
	}
	return g.GrantFunc(ctx, req)
}

// LastRequest returns the request most recently passed to Grant.
func (g *Granter) LastRequest() *grant.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// HealthChecker fails Ping with Err and counts calls.
type HealthChecker struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (h *HealthChecker) Ping(context.Context) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return h.Err
}

// Calls returns how many times Ping ran.
func (h *HealthChecker) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Response is one call recorded by ErrorResponder.
type Response struct {
	Method string
	Scope  string
	Scopes []string
	Err    error
}

// ErrorResponder records each call and writes a minimal response with the
// matching status code.
type ErrorResponder struct {
	Realm string

	mu    sync.Mutex
	calls []Response
}

func (e *ErrorResponder) record(r Response) {
	e.mu.Lock()
	e.calls = append(e.calls, r)
	e.mu.Unlock()
}

func (e *ErrorResponder) Unauthorized(w http.ResponseWriter, scope string, err error) {
	e.record(Response{Method: "Unauthorized", Scope: scope, Err: err})
	challenge := `Bearer realm="` + e.Realm + `"`
	if scope != "" {
		challenge += `, scope="` + scope + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.WriteHeader(http.StatusUnauthorized)
}

func (e *ErrorResponder) Forbidden(w http.ResponseWriter, requiredScopes []string, err error) {
	e.record(Response{Method: "Forbidden", Scopes: requiredScopes, Err: err})
	w.WriteHeader(http.StatusForbidden)
}

func (e *ErrorResponder) InternalError(w http.ResponseWriter, err error) {
	e.record(Response{Method: "InternalError", Err: err})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"server_error"}`))
}

func (e *ErrorResponder) BadRequest(w http.ResponseWriter, err error) {
	e.record(Response{Method: "BadRequest", Err: err})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
}

// Calls returns a copy of the recorded calls in order.
func (e *ErrorResponder) Calls() []Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Response(nil), e.calls...)
}

// Last returns the most recent call, or false if there was none.
func (e *ErrorResponder) Last() (Response, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		return Response{}, false
	}
	return e.calls[len(e.calls)-1], true
}
