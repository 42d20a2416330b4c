package grant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/registry"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// ClientValidator runs the client checks shared by every strategy.
type ClientValidator struct {
	clients    registry.ClientRegistry
	secrets    registry.SecretVerifier
	deniedKind ierrors.Kind
}

// ValidatorOption configures a ClientValidator.
type ValidatorOption func(*ClientValidator)

// WithDeniedGrantKind sets the error kind returned when a client uses a grant
// type it is not authorized for. It must be KindUnauthorizedClient (the
// default) or KindInvalidGrant.
func WithDeniedGrantKind(kind ierrors.Kind) ValidatorOption {
	return func(v *ClientValidator) {
		v.deniedKind = kind
	}
}

// NewClientValidator creates a validator over the registered clients.
func NewClientValidator(clients registry.ClientRegistry, secrets registry.SecretVerifier, opts ...ValidatorOption) *ClientValidator {
	v := &ClientValidator{
		clients:    clients,
		secrets:    secrets,
		deniedKind: ierrors.KindUnauthorizedClient,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate authenticates the requesting client and checks that it may use
// the request's grant type.
func (v *ClientValidator) Validate(ctx context.Context, req *Request) (*registry.Client, error) {
	if req.Client.ClientID == "" {
		return nil, ierrors.InvalidClient("A client id must be provided")
	}

	client, err := v.clients.LookupClient(ctx, req.Client.ClientID)
	if errors.Is(err, registry.ErrClientNotFound) {
		return nil, ierrors.InvalidClient("Bad client credentials").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client %q: %w", req.Client.ClientID, err)
	}

	if client.RequiresSecret() && !req.Client.HasSecret {
		return nil, ierrors.InvalidClient("Bad client credentials")
	}
	if !v.secrets.VerifySecret(client, req.Client.ClientSecret) {
		return nil, ierrors.InvalidClient("Bad client credentials")
	}

	if !client.IsAuthorizedGrantType(req.GrantType) {
		return nil, ierrors.NewOAuth2Error(v.deniedKind, "Unauthorized grant type: "+req.GrantType)
	}
	return client, nil
}

// ResolveScope returns the scope to grant. An empty request gets the
// client's registered scope; otherwise every requested entry must be
// registered for the client.
func (v *ClientValidator) ResolveScope(client *registry.Client, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), client.Scopes...), nil
	}
	if client.IsScoped() {
		if missing := token.Missing(client.Scopes, requested); len(missing) > 0 {
			return nil, ierrors.InvalidScope("Invalid scope: " + strings.Join(missing, " "))
		}
	}
	return append([]string(nil), requested...), nil
}

// narrowScope checks requested against a previously approved scope. An empty
// request keeps the approved scope unchanged.
func narrowScope(approved, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), approved...), nil
	}
	if missing := token.Missing(approved, requested); len(missing) > 0 {
		return nil, ierrors.InvalidScope("Invalid scope: " + strings.Join(missing, " "))
	}
	return append([]string(nil), requested...), nil
}
