package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/oauth/oautherr"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

const testRealm = "oauth2-provider"

func newTestResponder() (transportcore.ErrorResponder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewErrorResponder(testRealm, zap.New(core)), logs
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestResponder_Unauthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		scope           string
		err             error
		wantChallenge   string
		wantDescription string
	}{
		{
			name:            "expired token",
			scope:           "read",
			err:             oautherr.NewTokenExpiredError("validate"),
			wantChallenge:   `Bearer realm="oauth2-provider", error="invalid_token", error_description="Access token expired", scope="read"`,
			wantDescription: "Access token expired",
		},
		{
			name:            "missing token",
			err:             transportcore.ErrMissingToken,
			wantChallenge:   `Bearer realm="oauth2-provider"`,
			wantDescription: "Authentication required",
		},
		{
			name:            "missing token keeps scope",
			scope:           "read",
			err:             fmt.Errorf("authenticate: %w", transportcore.ErrMissingToken),
			wantChallenge:   `Bearer realm="oauth2-provider", scope="read"`,
			wantDescription: "Authentication required",
		},
		{
			name:            "unrecognised failure",
			scope:           "read write",
			err:             errors.New("garbage"),
			wantChallenge:   `Bearer realm="oauth2-provider", error="invalid_token", error_description="Invalid access token", scope="read write"`,
			wantDescription: "Invalid access token",
		},
		{
			name:            "nil error",
			err:             nil,
			wantChallenge:   `Bearer realm="oauth2-provider", error="invalid_token", error_description="Invalid access token"`,
			wantDescription: "Invalid access token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, logs := newTestResponder()
			w := httptest.NewRecorder()
			r.Unauthorized(w, tt.scope, tt.err)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantChallenge, w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := decodeBody(t, w)
			assert.Equal(t, "invalid_token", body["error"])
			assert.Equal(t, tt.wantDescription, body["error_description"])

			entries := logs.FilterMessage("unauthorized request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		})
	}
}

func TestResponder_Forbidden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		scopes        []string
		wantChallenge string
	}{
		{
			name:          "single scope",
			scopes:        []string{"write"},
			wantChallenge: `Bearer realm="oauth2-provider", error="insufficient_scope", error_description="Required scopes: write", scope="write"`,
		},
		{
			name:          "multiple scopes",
			scopes:        []string{"read", "write"},
			wantChallenge: `Bearer realm="oauth2-provider", error="insufficient_scope", error_description="Required scopes: read write", scope="read write"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, logs := newTestResponder()
			w := httptest.NewRecorder()
			r.Forbidden(w, tt.scopes, transportcore.ErrInsufficientScope)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, tt.wantChallenge, w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "insufficient_scope", decodeBody(t, w)["error"])

			entries := logs.FilterMessage("insufficient scope").All()
			require.Len(t, entries, 1)
			logged, ok := entries[0].ContextMap()["required_scopes"].([]interface{})
			require.True(t, ok)
			assert.Len(t, logged, len(tt.scopes))
		})
	}
}

func TestResponder_InternalError(t *testing.T) {
	t.Parallel()

	r, logs := newTestResponder()
	w := httptest.NewRecorder()
	r.InternalError(w, errors.New("database password=hunter2 rejected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("WWW-Authenticate"))

	body := decodeBody(t, w)
	assert.Equal(t, "server_error", body["error"])
	assert.NotContains(t, body["error_description"], "hunter2")

	entries := logs.FilterMessage("internal server error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.NotContains(t, entries[0].ContextMap(), "failure")
}

func TestResponder_InternalErrorLogsDomainFailure(t *testing.T) {
	t.Parallel()

	r, logs := newTestResponder()
	cause := ierrors.New("store", "Redeem", ierrors.ErrInternal, errors.New("disk full")).
		WithContext("code", "abc")
	r.InternalError(httptest.NewRecorder(), fmt.Errorf("grant: %w", cause))

	entries := logs.FilterMessage("internal server error").All()
	require.Len(t, entries, 1)
	failure, ok := entries[0].ContextMap()["failure"].(map[string]interface{})
	require.True(t, ok, "failure field = %#v", entries[0].ContextMap()["failure"])
	assert.Equal(t, "store", failure["domain"])
	assert.Equal(t, "Redeem", failure["op"])
	assert.Equal(t, "disk full", failure["cause"])
	assert.Equal(t, "abc", failure["code"])
}

func TestResponder_BadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		err             error
		wantDescription string
	}{
		{name: "with error", err: errors.New("missing grant_type"), wantDescription: "missing grant_type"},
		{name: "nil error", err: nil, wantDescription: "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestResponder()
			w := httptest.NewRecorder()
			r.BadRequest(w, tt.err)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Header().Get("WWW-Authenticate"))
			body := decodeBody(t, w)
			assert.Equal(t, "invalid_request", body["error"])
			assert.Equal(t, tt.wantDescription, body["error_description"])
		})
	}
}

func TestNewErrorResponder_NilLogger(t *testing.T) {
	t.Parallel()

	r := NewErrorResponder(testRealm, nil)
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() { r.InternalError(w, errors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
