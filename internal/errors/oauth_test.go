package errors

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

func TestCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       string
		message    string
		wantKind   Kind
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "invalid_grant",
			code:       "invalid_grant",
			message:    "x",
			wantKind:   KindInvalidGrant,
			wantCode:   "invalid_grant",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "x",
		},
		{
			name:       "unknown code falls back to generic",
			code:       "totally_unknown",
			message:    "x",
			wantKind:   KindGeneric,
			wantCode:   "invalid_request",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "x",
		},
		{
			name:       "invalid_request is its own kind",
			code:       "invalid_request",
			message:    "missing grant_type",
			wantKind:   KindInvalidRequest,
			wantCode:   "invalid_request",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "missing grant_type",
		},
		{
			name:       "invalid_client is 401",
			code:       "invalid_client",
			message:    "Bad client credentials",
			wantKind:   KindInvalidClient,
			wantCode:   "invalid_client",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Bad client credentials",
		},
		{
			name:       "invalid_token is 401",
			code:       "invalid_token",
			message:    "expired",
			wantKind:   KindInvalidToken,
			wantCode:   "invalid_token",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "expired",
		},
		{
			name:       "empty message defaults to code",
			code:       "access_denied",
			wantKind:   KindAccessDenied,
			wantCode:   "access_denied",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "access_denied",
		},
		{
			name:       "empty code and message",
			wantKind:   KindGeneric,
			wantCode:   "invalid_request",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "OAuth Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Create(tt.code, tt.message)
			if got == nil {
				t.Fatal("Create() returned nil")
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Create() Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.ErrorCode() != tt.wantCode {
				t.Errorf("Create() ErrorCode() = %q, want %q", got.ErrorCode(), tt.wantCode)
			}
			if got.HTTPStatus() != tt.wantStatus {
				t.Errorf("Create() HTTPStatus() = %d, want %d", got.HTTPStatus(), tt.wantStatus)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Create() Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestCreate_EveryKindRoundTrips(t *testing.T) {
	t.Parallel()

	for kind := KindInvalidRequest; kind <= KindInsufficientScope; kind++ {
		got := Create(kind.Code(), "msg")
		if got.Kind != kind {
			t.Errorf("Create(%q).Kind = %v, want %v", kind.Code(), got.Kind, kind)
		}
	}
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fields   []Field
		wantCode string
		wantMsg  string
		wantInfo []Field
	}{
		{
			name: "error and description only",
			fields: []Field{
				{Key: "error", Value: "invalid_scope"},
				{Key: "error_description", Value: "Invalid scope: trust"},
			},
			wantCode: "invalid_scope",
			wantMsg:  "Invalid scope: trust",
		},
		{
			name: "additional information keeps input order",
			fields: []Field{
				{Key: "zeta", Value: "1"},
				{Key: "error", Value: "invalid_grant"},
				{Key: "alpha", Value: "2"},
				{Key: "error_description", Value: "used"},
				{Key: "mid", Value: "3"},
			},
			wantCode: "invalid_grant",
			wantMsg:  "used",
			wantInfo: []Field{{Key: "zeta", Value: "1"}, {Key: "alpha", Value: "2"}, {Key: "mid", Value: "3"}},
		},
		{
			name:     "missing description defaults to code",
			fields:   []Field{{Key: "error", Value: "unauthorized_client"}},
			wantCode: "unauthorized_client",
			wantMsg:  "unauthorized_client",
		},
		{
			name:     "missing code",
			fields:   []Field{{Key: "foo", Value: "bar"}},
			wantCode: "invalid_request",
			wantMsg:  "OAuth Error",
			wantInfo: []Field{{Key: "foo", Value: "bar"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FromFields(tt.fields)
			if got.ErrorCode() != tt.wantCode {
				t.Errorf("FromFields() ErrorCode() = %q, want %q", got.ErrorCode(), tt.wantCode)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("FromFields() Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if !reflect.DeepEqual(got.AdditionalInformation(), tt.wantInfo) {
				t.Errorf("FromFields() AdditionalInformation() = %v, want %v", got.AdditionalInformation(), tt.wantInfo)
			}
		})
	}
}

func TestFromMap_SortsKeys(t *testing.T) {
	t.Parallel()

	got := FromMap(map[string]string{
		"error": "invalid_grant",
		"b":     "2",
		"a":     "1",
	})

	want := []Field{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	if !reflect.DeepEqual(got.AdditionalInformation(), want) {
		t.Errorf("FromMap() AdditionalInformation() = %v, want %v", got.AdditionalInformation(), want)
	}
}

func TestOAuth2Error_Fields_RoundTrip(t *testing.T) {
	t.Parallel()

	original := InvalidGrant("code already used").
		AddInformation("state", "xyz").
		AddInformation("retry", "no")

	rebuilt := FromFields(original.Fields())

	if rebuilt.Kind != original.Kind {
		t.Errorf("Kind = %v, want %v", rebuilt.Kind, original.Kind)
	}
	if rebuilt.Message != original.Message {
		t.Errorf("Message = %q, want %q", rebuilt.Message, original.Message)
	}
	if !reflect.DeepEqual(rebuilt.AdditionalInformation(), original.AdditionalInformation()) {
		t.Errorf("AdditionalInformation() = %v, want %v", rebuilt.AdditionalInformation(), original.AdditionalInformation())
	}
}

func TestOAuth2Error_AddInformation(t *testing.T) {
	t.Parallel()

	e := InvalidRequest("bad").
		AddInformation("a", "1").
		AddInformation("b", "2").
		AddInformation("a", "3").
		AddInformation("error", "ignored").
		AddInformation("error_description", "ignored")

	want := []Field{{Key: "a", Value: "3"}, {Key: "b", Value: "2"}}
	if !reflect.DeepEqual(e.AdditionalInformation(), want) {
		t.Errorf("AdditionalInformation() = %v, want %v", e.AdditionalInformation(), want)
	}
	if v, ok := e.Information("b"); !ok || v != "2" {
		t.Errorf("Information(b) = %q, %v", v, ok)
	}
	if _, ok := e.Information("missing"); ok {
		t.Error("Information(missing) reported present")
	}
}

func TestOAuth2Error_WithStatus(t *testing.T) {
	t.Parallel()

	e := InvalidClient("nope").WithStatus(http.StatusBadRequest)
	if e.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want %d", e.HTTPStatus(), http.StatusBadRequest)
	}
	if e.ErrorCode() != ErrorCodeInvalidClient {
		t.Errorf("ErrorCode() = %q, want %q", e.ErrorCode(), ErrorCodeInvalidClient)
	}
}

func TestOAuth2Error_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *OAuth2Error
		want string
	}{
		{name: "code and message", err: InvalidScope("Invalid scope: trust"), want: "invalid_scope: Invalid scope: trust"},
		{name: "message equals code", err: Create("invalid_grant", ""), want: "invalid_grant"},
		{name: "no message", err: &OAuth2Error{Kind: KindAccessDenied}, want: "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAsOAuth2Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("store unavailable")
	inner := InvalidGrant("bad code").WithCause(cause)
	wrapped := fmt.Errorf("grant: %w", inner)

	got, ok := AsOAuth2Error(wrapped)
	if !ok {
		t.Fatal("AsOAuth2Error() did not find error in chain")
	}
	if got != inner {
		t.Error("AsOAuth2Error() returned a different error")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is() did not reach the cause")
	}
	if !IsKind(wrapped, KindInvalidGrant) {
		t.Error("IsKind(invalid_grant) = false")
	}
	if IsKind(wrapped, KindInvalidScope) {
		t.Error("IsKind(invalid_scope) = true")
	}
	if _, ok := AsOAuth2Error(errors.New("plain")); ok {
		t.Error("AsOAuth2Error() matched a plain error")
	}
}

func TestChallenge_Header(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		challenge    Challenge
		err          *OAuth2Error
		want         string
		wantContains []string
	}{
		{
			name: "bare challenge",
			want: "Bearer",
		},
		{
			name:      "realm only",
			challenge: Challenge{Realm: "oauth2-provider"},
			want:      `Bearer realm="oauth2-provider"`,
		},
		{
			name:         "invalid token with scope",
			challenge:    Challenge{Realm: "oauth2-provider", Scope: "read write"},
			err:          InvalidToken("Token expired"),
			wantContains: []string{`realm="oauth2-provider"`, `error="invalid_token"`, `error_description="Token expired"`, `scope="read write"`},
		},
		{
			name:         "quotes are escaped",
			err:          InvalidToken(`bad "token"`),
			wantContains: []string{`error_description="bad \"token\""`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.challenge.Header(tt.err)
			if !strings.HasPrefix(got, "Bearer") {
				t.Errorf("Header() = %q, want Bearer prefix", got)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Header() = %q, want to contain %q", got, want)
				}
			}
		})
	}
}
