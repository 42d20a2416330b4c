package oautherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       *ierrors.DomainError
		wantKind  error
		wantCause error
		wantDesc  string
	}{
		{
			name:      "unknown",
			err:       NewUnknownTokenError("ValidateToken"),
			wantKind:  ierrors.ErrUnauthorized,
			wantCause: ErrUnknownToken,
			wantDesc:  "Invalid access token",
		},
		{
			name:      "expired",
			err:       NewTokenExpiredError("ValidateToken"),
			wantKind:  ierrors.ErrUnauthorized,
			wantCause: ErrTokenExpired,
			wantDesc:  "Access token expired",
		},
		{
			name:      "bad signature",
			err:       NewInvalidSignatureError("ValidateToken", errors.New("hmac mismatch")),
			wantKind:  ierrors.ErrUnauthorized,
			wantCause: ErrInvalidSignature,
			wantDesc:  "Access token signature is invalid",
		},
		{
			name:      "algorithm",
			err:       NewUnsupportedAlgorithmError("ValidateToken", "none"),
			wantKind:  ierrors.ErrUnauthorized,
			wantCause: ErrUnsupportedAlgorithm,
			wantDesc:  "Access token signature is invalid",
		},
		{
			name:      "scope",
			err:       NewInsufficientScopeError("RequireScopes", []string{"write"}),
			wantKind:  ierrors.ErrForbidden,
			wantCause: ErrInsufficientScope,
			wantDesc:  "Insufficient scope for this resource",
		},
		{
			name:     "lookup",
			err:      NewLookupError("ValidateToken", errors.New("connection refused")),
			wantKind: ierrors.ErrInternal,
			wantDesc: "Invalid access token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("authenticate: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.wantKind)
			if tt.wantCause != nil {
				assert.ErrorIs(t, wrapped, tt.wantCause)
			}
			assert.True(t, ierrors.IsDomain(wrapped, "oauth"))
			assert.Equal(t, tt.wantDesc, Description(wrapped))
		})
	}
}

func TestInvalidTokenContext(t *testing.T) {
	t.Parallel()

	err := NewInvalidTokenError("ValidateToken", errors.New("empty token"))
	assert.Equal(t, ierrors.ErrorCodeInvalidToken, err.Context["oauth_error"])
	assert.EqualError(t, err, "oauth.ValidateToken: unauthorized: empty token")
}
