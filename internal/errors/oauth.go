package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// OAuth 2.0 error codes as defined in RFC 6749 Section 5.2 and RFC 6750.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeRedirectURIMismatch     = "redirect_uri_mismatch"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeInsufficientScope       = "insufficient_scope"
)

// defaultMessage is used when neither a description nor a code is available.
const defaultMessage = "OAuth Error"

// Kind identifies one variant of the closed OAuth 2.0 error taxonomy.
type Kind int

// Error kinds. KindGeneric is the fallback for codes outside the taxonomy
// and reports itself on the wire as invalid_request.
const (
	KindGeneric Kind = iota
	KindInvalidRequest
	KindInvalidClient
	KindInvalidGrant
	KindUnauthorizedClient
	KindUnsupportedGrantType
	KindInvalidScope
	KindInvalidToken
	KindRedirectURIMismatch
	KindUnsupportedResponseType
	KindAccessDenied
	KindInsufficientScope
)

type kindInfo struct {
	code   string
	status int
}

var kinds = map[Kind]kindInfo{
	KindGeneric:                 {ErrorCodeInvalidRequest, http.StatusBadRequest},
	KindInvalidRequest:          {ErrorCodeInvalidRequest, http.StatusBadRequest},
	KindInvalidClient:           {ErrorCodeInvalidClient, http.StatusUnauthorized},
	KindInvalidGrant:            {ErrorCodeInvalidGrant, http.StatusBadRequest},
	KindUnauthorizedClient:      {ErrorCodeUnauthorizedClient, http.StatusBadRequest},
	KindUnsupportedGrantType:    {ErrorCodeUnsupportedGrantType, http.StatusBadRequest},
	KindInvalidScope:            {ErrorCodeInvalidScope, http.StatusBadRequest},
	KindInvalidToken:            {ErrorCodeInvalidToken, http.StatusUnauthorized},
	KindRedirectURIMismatch:     {ErrorCodeRedirectURIMismatch, http.StatusBadRequest},
	KindUnsupportedResponseType: {ErrorCodeUnsupportedResponseType, http.StatusBadRequest},
	KindAccessDenied:            {ErrorCodeAccessDenied, http.StatusBadRequest},
	KindInsufficientScope:       {ErrorCodeInsufficientScope, http.StatusForbidden},
}

// codes maps a wire error code to its kind. invalid_request resolves to the
// dedicated kind, not the generic fallback.
var codes = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		if k == KindGeneric {
			continue
		}
		m[info.code] = k
	}
	return m
}()

// Code returns the machine-readable error code for the kind.
func (k Kind) Code() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return ErrorCodeInvalidRequest
}

// Status returns the default HTTP status for the kind.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusBadRequest
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindGeneric {
		return "generic"
	}
	return k.Code()
}

// KindForCode maps a wire error code to its kind. Unknown codes map to
// KindGeneric.
func KindForCode(code string) Kind {
	if k, ok := codes[code]; ok {
		return k
	}
	return KindGeneric
}

// Field is one entry of an OAuth2Error's additional information.
type Field struct {
	Key   string
	Value string
}

// OAuth2Error is a protocol-level failure that is rendered to the caller as
// an RFC 6749 error response.
type OAuth2Error struct {
	// Kind selects the error variant and through it the wire code.
	Kind Kind

	// Message is the human-readable error_description.
	Message string

	// Status overrides the kind's default HTTP status when non-zero.
	Status int

	info  []Field
	cause error
}

// NewOAuth2Error creates an OAuth2Error of the given kind.
func NewOAuth2Error(kind Kind, message string) *OAuth2Error {
	return &OAuth2Error{Kind: kind, Message: message}
}

// Create maps a wire error code to the matching variant. It never fails:
// unrecognised codes produce KindGeneric. An empty message defaults to the
// code, or to a fixed literal when the code is empty too.
func Create(code, message string) *OAuth2Error {
	if message == "" {
		message = code
	}
	if message == "" {
		message = defaultMessage
	}
	return &OAuth2Error{Kind: KindForCode(code), Message: message}
}

// FromFields builds an OAuth2Error from a decoded error payload. The error
// and error_description entries select the variant and message; every other
// entry becomes additional information in input order.
func FromFields(fields []Field) *OAuth2Error {
	var code, description string
	for _, f := range fields {
		switch f.Key {
		case "error":
			code = f.Value
		case "error_description":
			description = f.Value
		}
	}

	e := Create(code, description)
	for _, f := range fields {
		if f.Key == "error" || f.Key == "error_description" {
			continue
		}
		e.AddInformation(f.Key, f.Value)
	}
	return e
}

// FromMap is FromFields for an unordered map. Additional information is
// attached in key order so the result is deterministic.
func FromMap(m map[string]string) *OAuth2Error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: m[k]})
	}
	return FromFields(fields)
}

// ErrorCode returns the wire error code.
func (e *OAuth2Error) ErrorCode() string {
	return e.Kind.Code()
}

// HTTPStatus returns the status the error is rendered with.
func (e *OAuth2Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	if e.Message != "" && e.Message != e.ErrorCode() {
		return fmt.Sprintf("%s: %s", e.ErrorCode(), e.Message)
	}
	return e.ErrorCode()
}

// Unwrap returns the underlying cause, if any.
func (e *OAuth2Error) Unwrap() error {
	return e.cause
}

// WithStatus overrides the HTTP status and returns the error for chaining.
func (e *OAuth2Error) WithStatus(status int) *OAuth2Error {
	e.Status = status
	return e
}

// WithCause records the underlying cause and returns the error for chaining.
func (e *OAuth2Error) WithCause(err error) *OAuth2Error {
	e.cause = err
	return e
}

// AddInformation sets an additional information entry. Replacing an existing
// key keeps its original position. The reserved error and error_description
// keys are ignored.
func (e *OAuth2Error) AddInformation(key, value string) *OAuth2Error {
	if key == "error" || key == "error_description" {
		return e
	}
	for i := range e.info {
		if e.info[i].Key == key {
			e.info[i].Value = value
			return e
		}
	}
	e.info = append(e.info, Field{Key: key, Value: value})
	return e
}

// AdditionalInformation returns a copy of the extra fields in insertion order.
func (e *OAuth2Error) AdditionalInformation() []Field {
	if len(e.info) == 0 {
		return nil
	}
	out := make([]Field, len(e.info))
	copy(out, e.info)
	return out
}

// Information looks up a single additional information entry.
func (e *OAuth2Error) Information(key string) (string, bool) {
	for _, f := range e.info {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns the complete wire representation: error, error_description
// and the additional information, in that order.
func (e *OAuth2Error) Fields() []Field {
	out := make([]Field, 0, len(e.info)+2)
	out = append(out, Field{Key: "error", Value: e.ErrorCode()})
	if e.Message != "" {
		out = append(out, Field{Key: "error_description", Value: e.Message})
	}
	return append(out, e.info...)
}

// AsOAuth2Error finds the first OAuth2Error in err's chain.
func AsOAuth2Error(err error) (*OAuth2Error, bool) {
	var oe *OAuth2Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// IsKind reports whether err's chain holds an OAuth2Error of the given kind.
func IsKind(err error, kind Kind) bool {
	oe, ok := AsOAuth2Error(err)
	return ok && oe.Kind == kind
}

// InvalidRequest reports a malformed token request.
func InvalidRequest(message string) *OAuth2Error {
	return NewOAuth2Error(KindInvalidRequest, message)
}

// InvalidClient reports failed client authentication.
func InvalidClient(message string) *OAuth2Error {
	return NewOAuth2Error(KindInvalidClient, message)
}

// InvalidGrant reports an invalid, expired or already used grant.
func InvalidGrant(message string) *OAuth2Error {
	return NewOAuth2Error(KindInvalidGrant, message)
}

// UnauthorizedClient reports a client that may not use the grant type.
func UnauthorizedClient(message string) *OAuth2Error {
	return NewOAuth2Error(KindUnauthorizedClient, message)
}

// UnsupportedGrantType reports a grant type no strategy handles.
func UnsupportedGrantType(message string) *OAuth2Error {
	return NewOAuth2Error(KindUnsupportedGrantType, message)
}

// InvalidScope reports a scope outside the client's allowance.
func InvalidScope(message string) *OAuth2Error {
	return NewOAuth2Error(KindInvalidScope, message)
}

// InvalidToken reports an unusable access token.
func InvalidToken(message string) *OAuth2Error {
	return NewOAuth2Error(KindInvalidToken, message)
}

// RedirectURIMismatch reports a redirect_uri that differs from the one used
// when the authorization code was issued.
func RedirectURIMismatch(message string) *OAuth2Error {
	return NewOAuth2Error(KindRedirectURIMismatch, message)
}

// UnsupportedResponseType reports an unknown response_type.
func UnsupportedResponseType(message string) *OAuth2Error {
	return NewOAuth2Error(KindUnsupportedResponseType, message)
}

// AccessDenied reports that the resource owner or server denied the request.
func AccessDenied(message string) *OAuth2Error {
	return NewOAuth2Error(KindAccessDenied, message)
}

// InsufficientScope reports a token lacking scopes required by a resource.
func InsufficientScope(message string) *OAuth2Error {
	return NewOAuth2Error(KindInsufficientScope, message)
}

// Challenge carries the optional parameters of a Bearer WWW-Authenticate
// header per RFC 6750 Section 3.
type Challenge struct {
	Realm string
	Scope string
}

// Header renders the challenge. A nil err produces a bare challenge, which
// is the correct response to a request that carried no credentials.
//
// Example output:
//
//	Bearer realm="oauth2-provider", error="invalid_token", error_description="Token expired", scope="read"
func (c Challenge) Header(err *OAuth2Error) string {
	var parts []string

	if c.Realm != "" {
		parts = append(parts, fmt.Sprintf(`realm="%s"`, escapeQuotes(c.Realm)))
	}
	if err != nil {
		parts = append(parts, fmt.Sprintf(`error="%s"`, escapeQuotes(err.ErrorCode())))
		if err.Message != "" {
			parts = append(parts, fmt.Sprintf(`error_description="%s"`, escapeQuotes(err.Message)))
		}
	}
	if c.Scope != "" {
		parts = append(parts, fmt.Sprintf(`scope="%s"`, escapeQuotes(c.Scope)))
	}

	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// escapeQuotes escapes double quotes in strings for use in header values.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
