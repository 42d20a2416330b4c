// Package clientauth extracts client credentials from a token request.
package clientauth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// DefaultCharset is used to decode Basic credentials when none is configured.
const DefaultCharset = "UTF-8"

// Credentials identifies the client making a token request. HasSecret
// distinguishes an empty secret from an absent one.
type Credentials struct {
	ClientID     string
	ClientSecret string
	HasSecret    bool
}

// Authenticator resolves client credentials from request parameters or
// Authorization: Basic headers. It is immutable and safe for concurrent use.
type Authenticator struct {
	charset string
	enc     encoding.Encoding
	logger  *zap.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for skipped headers.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Authenticator decoding Basic credentials with the named
// charset. An unknown charset is a configuration error.
func New(charset string, opts ...Option) (*Authenticator, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown credentials charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("credentials charset %q is not supported", charset)
	}

	a := &Authenticator{
		charset: charset,
		enc:     enc,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Charset returns the configured charset name.
func (a *Authenticator) Charset() string {
	return a.charset
}

// Authenticate resolves the client credentials of a request.
//
// A client_secret parameter wins outright and is paired with client_id. Otherwise
// the Authorization headers are scanned in order for Basic credentials; when a
// client_id parameter is present, entries for other usernames are skipped.
// With nothing matched, the client_id parameter is returned without a secret.
func (a *Authenticator) Authenticate(headers http.Header, params map[string]string) Credentials {
	clientID, hasClientID := params[pkgoauth.ParamClientID]

	if secret, ok := params[pkgoauth.ParamClientSecret]; ok {
		return Credentials{ClientID: clientID, ClientSecret: secret, HasSecret: true}
	}

	for _, value := range headers.Values(pkgoauth.HeaderAuthorization) {
		username, password, ok := a.parseBasic(value)
		if !ok {
			continue
		}
		if hasClientID && username != clientID {
			a.logger.Debug("skipping basic credentials for a different client",
				zap.String("client_id", clientID))
			continue
		}
		return Credentials{ClientID: username, ClientSecret: password, HasSecret: true}
	}

	return Credentials{ClientID: clientID}
}

// parseBasic decodes one Authorization header value. A payload without a
// colon yields an empty username and password.
func (a *Authenticator) parseBasic(value string) (string, string, bool) {
	scheme, payload, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found || !strings.EqualFold(scheme, pkgoauth.BasicScheme) {
		return "", "", false
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		a.logger.Debug("skipping malformed basic credentials", zap.Error(err))
		return "", "", false
	}

	decoded, err := a.enc.NewDecoder().Bytes(raw)
	if err != nil {
		a.logger.Debug("skipping undecodable basic credentials", zap.Error(err))
		return "", "", false
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", true
	}
	return username, password, true
}
