package transportcore

import (
	"context"

	"github.com/jamesprial/oauth2-provider/internal/oauth"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Authenticate. A nil ctx
// holds none.
func ClaimsFromContext(ctx context.Context) (*oauth.TokenClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(claimsKey{}).(*oauth.TokenClaims)
	return claims, ok
}

// ContextWithClaims derives a context carrying claims. A nil parent is
// treated as context.Background.
func ContextWithClaims(parent context.Context, claims *oauth.TokenClaims) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, claimsKey{}, claims)
}
