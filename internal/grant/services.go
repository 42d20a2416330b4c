package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/registry"
	"github.com/jamesprial/oauth2-provider/internal/store"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// Default validity periods.
const (
	DefaultAccessTokenValidity  = 12 * time.Hour
	DefaultRefreshTokenValidity = 30 * 24 * time.Hour
	DefaultCodeValidity         = 5 * time.Minute
)

type options struct {
	clock           clockwork.Clock
	logger          *zap.Logger
	generator       token.Generator
	accessValidity  time.Duration
	refreshValidity time.Duration
	codeValidity    time.Duration
}

// Option configures TokenServices and AuthorizationCodeServices.
type Option func(*options)

// WithClock sets the clock used for issue times and expirations.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithGenerator sets the access token value generator.
func WithGenerator(g token.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithAccessTokenValidity sets the default access token lifetime.
func WithAccessTokenValidity(d time.Duration) Option {
	return func(o *options) {
		o.accessValidity = d
	}
}

// WithRefreshTokenValidity sets the default refresh token lifetime.
func WithRefreshTokenValidity(d time.Duration) Option {
	return func(o *options) {
		o.refreshValidity = d
	}
}

// WithCodeValidity sets the authorization code lifetime.
func WithCodeValidity(d time.Duration) Option {
	return func(o *options) {
		o.codeValidity = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:           clockwork.NewRealClock(),
		logger:          zap.NewNop(),
		generator:       token.UUIDGenerator{},
		accessValidity:  DefaultAccessTokenValidity,
		refreshValidity: DefaultRefreshTokenValidity,
		codeValidity:    DefaultCodeValidity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TokenServices creates, persists and rotates issued tokens.
type TokenServices struct {
	opts   options
	tokens store.TokenStore
}

// NewTokenServices creates token services persisting to tokens.
func NewTokenServices(tokens store.TokenStore, opts ...Option) *TokenServices {
	return &TokenServices{opts: buildOptions(opts), tokens: tokens}
}

// Clock returns the clock the services stamp tokens with.
func (s *TokenServices) Clock() clockwork.Clock {
	return s.opts.clock
}

// Logger returns the services logger.
func (s *TokenServices) Logger() *zap.Logger {
	return s.opts.logger
}

// Store returns the backing token store.
func (s *TokenServices) Store() store.TokenStore {
	return s.tokens
}

// Issue creates and stores an access token for client acting for userID. A
// refresh token is attached when withRefresh is set.
func (s *TokenServices) Issue(ctx context.Context, client *registry.Client, userID string, scope []string, withRefresh bool) (*token.AccessToken, error) {
	now := s.opts.clock.Now()

	accessValidity := s.opts.accessValidity
	if client.AccessTokenValidity > 0 {
		accessValidity = client.AccessTokenValidity
	}
	accessExp := now.Add(accessValidity)

	value, err := s.opts.generator.Generate(ctx, token.Claims{
		ClientID:  client.ID,
		Subject:   userID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: &accessExp,
	})
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	at := token.New(value)
	at.Expiration = &accessExp
	at.Scope = append([]string(nil), scope...)

	record := &store.Token{
		AccessToken:     value,
		ClientID:        client.ID,
		UserID:          userID,
		Scope:           at.Scope,
		AccessExpiresAt: &accessExp,
	}

	if withRefresh {
		refreshValidity := s.opts.refreshValidity
		if client.RefreshTokenValidity > 0 {
			refreshValidity = client.RefreshTokenValidity
		}
		refreshExp := now.Add(refreshValidity)

		rt := token.NewRefreshToken(uuid.NewString())
		rt.Expiration = &refreshExp
		at.RefreshToken = rt

		record.RefreshToken = rt.Value
		record.RefreshExpiresAt = &refreshExp
	}

	if err := s.tokens.SaveToken(ctx, record); err != nil {
		return nil, fmt.Errorf("save token for client %q: %w", client.ID, err)
	}

	s.opts.logger.Debug("access token issued",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
		zap.Strings("scope", at.Scope),
		zap.Bool("refresh", withRefresh),
	)
	return at, nil
}

// Revoke removes the token holding accessToken. A token that is already
// gone reports invalid_grant so concurrent refreshes rotate a token once.
func (s *TokenServices) Revoke(ctx context.Context, accessToken string) error {
	err := s.tokens.RemoveToken(ctx, accessToken)
	if errors.Is(err, ierrors.ErrNotFound) {
		return ierrors.InvalidGrant("Invalid refresh token").WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// AuthorizationCodeServices issues and redeems single-use authorization
// codes. CreateCode stands in for the interactive leg of the grant, which
// ends with the resource owner approving a client and scope.
type AuthorizationCodeServices struct {
	opts  options
	codes store.AuthorizationCodeStore
}

// NewAuthorizationCodeServices creates code services persisting to codes.
func NewAuthorizationCodeServices(codes store.AuthorizationCodeStore, opts ...Option) *AuthorizationCodeServices {
	return &AuthorizationCodeServices{opts: buildOptions(opts), codes: codes}
}

// CreateCode issues a code for userID's approval of clientID and scope.
func (s *AuthorizationCodeServices) CreateCode(ctx context.Context, clientID, userID, redirectURI string, scope []string) (string, error) {
	code := &store.AuthorizationCode{
		Code:        uuid.NewString(),
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Scope:       append([]string(nil), scope...),
		ExpiresAt:   s.opts.clock.Now().Add(s.opts.codeValidity),
	}
	if err := s.codes.SaveCode(ctx, code); err != nil {
		return "", fmt.Errorf("save authorization code: %w", err)
	}
	s.opts.logger.Debug("authorization code issued",
		zap.String("client_id", clientID),
		zap.String("user_id", userID),
	)
	return code.Code, nil
}

// Redeem consumes a code. Unknown, used and expired codes are invalid_grant.
func (s *AuthorizationCodeServices) Redeem(ctx context.Context, code string) (*store.AuthorizationCode, error) {
	c, err := s.codes.RedeemCode(ctx, code)
	if errors.Is(err, ierrors.ErrNotFound) {
		return nil, ierrors.InvalidGrant("Invalid authorization code: " + code).WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("redeem authorization code: %w", err)
	}
	if c.ExpiredAt(s.opts.clock.Now()) {
		return nil, ierrors.InvalidGrant("Authorization code expired: " + code)
	}
	return c, nil
}
