// Package grant turns authenticated token requests into access tokens.
//
// A Registry dispatches on the grant type to one Granter per strategy:
// authorization_code, password, client_credentials and refresh_token. Every
// strategy checks the client through a shared ClientValidator and issues
// tokens through TokenServices. Failures are *errors.OAuth2Error values and
// are returned untranslated; rendering them is the endpoint's job.
package grant

import (
	"context"
	"sort"

	"github.com/jamesprial/oauth2-provider/internal/clientauth"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// Request is one token request after client credentials have been resolved.
type Request struct {
	GrantType  string
	Parameters map[string]string
	Client     clientauth.Credentials
	Scope      []string
}

// Param returns a request parameter, or "" when absent.
func (r *Request) Param(name string) string {
	return r.Parameters[name]
}

// Granter issues an access token for a request. It returns (nil, nil) when
// it does not handle the request's grant type.
type Granter interface {
	Grant(ctx context.Context, req *Request) (*token.AccessToken, error)
}

// Registry is a Granter that dispatches by grant type. Register every
// strategy before serving; the registry is read-only afterwards.
type Registry struct {
	granters map[string]Granter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{granters: make(map[string]Granter)}
}

// Register binds a grant type to a strategy, replacing any earlier binding.
func (r *Registry) Register(grantType string, g Granter) {
	r.granters[grantType] = g
}

// GrantTypes returns the registered grant types in sorted order.
func (r *Registry) GrantTypes() []string {
	out := make([]string, 0, len(r.granters))
	for gt := range r.granters {
		out = append(out, gt)
	}
	sort.Strings(out)
	return out
}

// Grant implements Granter.
func (r *Registry) Grant(ctx context.Context, req *Request) (*token.AccessToken, error) {
	g, ok := r.granters[req.GrantType]
	if !ok {
		return nil, nil
	}
	return g.Grant(ctx, req)
}
