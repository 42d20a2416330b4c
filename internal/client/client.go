// Package client requests tokens from an OAuth 2.0 token endpoint. Responses
// and errors are decoded with the same codecs the provider encodes them with,
// so JSON, XML and form bodies are all understood.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/codec"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// ErrUnexpectedResponse is returned for responses that are neither a token
// nor a decodable OAuth2 error.
var ErrUnexpectedResponse = errors.New("unexpected token endpoint response")

// AuthStyle selects how client credentials are sent.
type AuthStyle int

const (
	// AuthStyleHeader sends credentials in an Authorization: Basic header.
	AuthStyleHeader AuthStyle = iota

	// AuthStyleParams sends client_id and client_secret as form parameters.
	AuthStyleParams
)

// Credentials identify the client to the token endpoint. A client without a
// secret sends only its id as a parameter.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Client requests tokens from a single token endpoint. It is safe for
// concurrent use.
type Client struct {
	tokenURL   string
	creds      Credentials
	authStyle  AuthStyle
	accept     string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *zap.Logger
	tokens     *codec.Composite[*token.AccessToken]
	errors     *codec.Composite[*ierrors.OAuth2Error]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthStyle sets how client credentials are sent.
func WithAuthStyle(style AuthStyle) Option {
	return func(c *Client) {
		c.authStyle = style
	}
}

// WithAccept sets the Accept header of token requests. The default is
// application/json.
func WithAccept(accept string) Option {
	return func(c *Client) {
		c.accept = accept
	}
}

// WithClock sets the clock used to turn expires_in into an expiration.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the token endpoint at tokenURL.
func New(tokenURL string, creds Credentials, opts ...Option) (*Client, error) {
	u, err := url.Parse(tokenURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("token URL must be absolute: %q", tokenURL)
	}
	if creds.ClientID == "" {
		return nil, errors.New("client id cannot be empty")
	}

	c := &Client{
		tokenURL:   tokenURL,
		creds:      creds,
		accept:     pkgoauth.ContentTypeJSON,
		httpClient: cleanhttp.DefaultPooledClient(),
		clock:      clockwork.NewRealClock(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = codec.DefaultTokenCodecs(c.clock)
	c.errors = codec.DefaultErrorCodecs()
	return c, nil
}

// Password runs the resource owner password credentials grant.
func (c *Client) Password(ctx context.Context, username, password string, scope ...string) (*token.AccessToken, error) {
	params := url.Values{
		pkgoauth.ParamGrantType: {pkgoauth.GrantTypePassword},
		pkgoauth.ParamUsername:  {username},
		pkgoauth.ParamPassword:  {password},
	}
	setScope(params, scope)
	return c.Token(ctx, params)
}

// ClientCredentials runs the client credentials grant.
func (c *Client) ClientCredentials(ctx context.Context, scope ...string) (*token.AccessToken, error) {
	params := url.Values{pkgoauth.ParamGrantType: {pkgoauth.GrantTypeClientCredentials}}
	setScope(params, scope)
	return c.Token(ctx, params)
}

// ExchangeCode redeems an authorization code. redirectURI may be empty.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*token.AccessToken, error) {
	params := url.Values{
		pkgoauth.ParamGrantType: {pkgoauth.GrantTypeAuthorizationCode},
		pkgoauth.ParamCode:      {code},
	}
	if redirectURI != "" {
		params.Set(pkgoauth.ParamRedirectURI, redirectURI)
	}
	return c.Token(ctx, params)
}

// Refresh trades a refresh token for a new token pair. A non-empty scope
// narrows the grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string, scope ...string) (*token.AccessToken, error) {
	params := url.Values{
		pkgoauth.ParamGrantType:    {pkgoauth.GrantTypeRefreshToken},
		pkgoauth.ParamRefreshToken: {refreshToken},
	}
	setScope(params, scope)
	return c.Token(ctx, params)
}

// Token posts params to the token endpoint with the client's credentials.
// Protocol failures are returned as *errors.OAuth2Error carrying the HTTP
// status the server answered with.
func (c *Client) Token(ctx context.Context, params url.Values) (*token.AccessToken, error) {
	form := url.Values{}
	for k, v := range params {
		form[k] = append([]string(nil), v...)
	}

	basic := c.addCredentials(form)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	if basic {
		req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	}
	req.Header.Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeFormURLEncoded)
	if c.accept != "" {
		req.Header.Set(pkgoauth.HeaderAccept, c.accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	contentType := resp.Header.Get(pkgoauth.HeaderContentType)
	logger := c.logger.With(
		zap.String("grant_type", form.Get(pkgoauth.ParamGrantType)),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode == http.StatusOK {
		at, err := c.tokens.Read(bytes.NewReader(raw), contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		logger.Debug("token received")
		return at, nil
	}

	oauthErr, err := c.errors.Read(bytes.NewReader(raw), contentType)
	if err != nil {
		logger.Debug("undecodable token error response", zap.Error(err))
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	logger.Debug("token request rejected", zap.String("error", oauthErr.ErrorCode()))
	return nil, oauthErr.WithStatus(resp.StatusCode)
}

// addCredentials puts the client credentials into form unless they belong
// in a Basic header, which it reports.
func (c *Client) addCredentials(form url.Values) bool {
	if c.creds.ClientSecret != "" && c.authStyle == AuthStyleHeader {
		return true
	}
	form.Set(pkgoauth.ParamClientID, c.creds.ClientID)
	if c.creds.ClientSecret != "" {
		form.Set(pkgoauth.ParamClientSecret, c.creds.ClientSecret)
	}
	return false
}

func setScope(params url.Values, scope []string) {
	if len(scope) > 0 {
		params.Set(pkgoauth.ParamScope, strings.Join(scope, " "))
	}
}
