package transport

import (
	"context"

	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// ClaimsFromContext returns the claims of the bearer token that
// authenticated the request.
func ClaimsFromContext(ctx context.Context) (*oauth.TokenClaims, bool) {
	return transportcore.ClaimsFromContext(ctx)
}

// ContextWithClaims stores claims the way Authenticate does, for handlers
// tested without the middleware.
func ContextWithClaims(ctx context.Context, claims *oauth.TokenClaims) context.Context {
	return transportcore.ContextWithClaims(ctx, claims)
}
