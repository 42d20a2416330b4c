package endpoint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jamesprial/oauth2-provider/internal/clientauth"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/grant"
	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// recordingGranter captures the request it was handed.
type recordingGranter struct {
	got *grant.Request
	at  *token.AccessToken
	err error
}

func (g *recordingGranter) Grant(_ context.Context, req *grant.Request) (*token.AccessToken, error) {
	g.got = req
	return g.at, g.err
}

func newEndpoint(t *testing.T, g grant.Granter) *TokenEndpoint {
	t.Helper()
	auth, err := clientauth.New(clientauth.DefaultCharset)
	require.NoError(t, err)
	return New(auth, g)
}

func TestTokenEndpoint_Token(t *testing.T) {
	t.Parallel()

	g := &recordingGranter{at: token.New("FOO")}
	e := newEndpoint(t, g)

	headers := http.Header{}
	headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("my-trusted-client:")))

	at, err := e.Token(context.Background(), map[string]string{
		"grant_type": "password",
		"scope":      "read  write",
		"username":   "marissa",
	}, headers)
	require.NoError(t, err)
	assert.Equal(t, "FOO", at.Value)

	require.NotNil(t, g.got)
	assert.Equal(t, "password", g.got.GrantType)
	assert.Equal(t, "my-trusted-client", g.got.Client.ClientID)
	assert.True(t, g.got.Client.HasSecret)
	assert.Equal(t, []string{"read", "write"}, g.got.Scope)
	assert.Equal(t, "marissa", g.got.Param("username"))
}

func TestTokenEndpoint_Token_Errors(t *testing.T) {
	t.Parallel()

	infra := errors.New("database down")

	tests := []struct {
		name     string
		params   map[string]string
		granter  *recordingGranter
		wantKind ierrors.Kind
		wantErr  error
	}{
		{
			name:     "missing grant type",
			params:   map[string]string{"client_id": "c"},
			granter:  &recordingGranter{},
			wantKind: ierrors.KindInvalidRequest,
		},
		{
			name:     "no granter handles the grant type",
			params:   map[string]string{"grant_type": "urn:custom", "client_id": "c"},
			granter:  &recordingGranter{},
			wantKind: ierrors.KindUnsupportedGrantType,
		},
		{
			name:     "granter error passes through",
			params:   map[string]string{"grant_type": "password", "client_id": "c"},
			granter:  &recordingGranter{err: ierrors.InvalidScope("Invalid scope: trust")},
			wantKind: ierrors.KindInvalidScope,
		},
		{
			name:    "infrastructure errors are not translated",
			params:  map[string]string{"grant_type": "password", "client_id": "c"},
			granter: &recordingGranter{err: fmt.Errorf("lookup client: %w", infra)},
			wantErr: infra,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEndpoint(t, tt.granter)
			at, err := e.Token(context.Background(), tt.params, http.Header{})
			require.Error(t, err)
			assert.Nil(t, at)

			oe, ok := Translate(err)
			if tt.wantErr != nil {
				assert.False(t, ok)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, oe.Kind)
		})
	}
}

func TestTokenEndpoint_LogsRejections(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.With(context.Background(), zap.New(core))

	e := newEndpoint(t, &recordingGranter{err: ierrors.InvalidGrant("Bad credentials")})
	_, err := e.Token(ctx, map[string]string{"grant_type": "password", "client_id": "c"}, http.Header{})
	require.Error(t, err)

	entries := logs.FilterMessage("token request rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "invalid_grant", entries[0].ContextMap()["error"])
	assert.Equal(t, "c", entries[0].ContextMap()["client_id"])
}

func TestResponseHeaders(t *testing.T) {
	t.Parallel()

	h := ResponseHeaders()
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.Equal(t, "no-cache", h.Get("Pragma"))
}

func TestNew_PanicsOnNil(t *testing.T) {
	t.Parallel()

	auth, err := clientauth.New("")
	require.NoError(t, err)
	assert.Panics(t, func() { New(nil, &recordingGranter{}) })
	assert.Panics(t, func() { New(auth, nil) })
}
