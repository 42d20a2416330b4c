// Package provider assembles the token provider from its configuration: the
// client and user registries, the code and token store, the grant strategies,
// the codecs, the resource-side validator and the HTTP transport.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/clientauth"
	"github.com/jamesprial/oauth2-provider/internal/codec"
	"github.com/jamesprial/oauth2-provider/internal/config"
	"github.com/jamesprial/oauth2-provider/internal/endpoint"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/grant"
	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/registry"
	"github.com/jamesprial/oauth2-provider/internal/store"
	"github.com/jamesprial/oauth2-provider/internal/store/sqlstore"
	"github.com/jamesprial/oauth2-provider/internal/token"
	"github.com/jamesprial/oauth2-provider/internal/transport"
)

type options struct {
	clock  clockwork.Clock
	logger *zap.Logger
	store  store.Store
}

// Option configures New.
type Option func(*options)

// WithClock sets the clock used for token lifetimes and validation.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the root logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore supplies the code and token store instead of opening the one
// named by the storage configuration. The provider does not close it.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// Provider is a fully wired token provider.
type Provider struct {
	server    transport.Server
	router    transport.Router
	codes     *grant.AuthorizationCodeServices
	tokens    *grant.TokenServices
	validator oauth.TokenValidator
	metadata  oauth.MetadataService
	scopes    oauth.ScopeChecker
	granter   *grant.Registry

	store     store.Store
	ownsStore bool
}

// New builds a provider from a validated configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	o := options{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	hasher, ok := registry.NewHasher(cfg.OAuth.SecretHashing)
	if !ok {
		return nil, fmt.Errorf("unknown secret hashing %q", cfg.OAuth.SecretHashing)
	}

	clients, err := registry.NewMemoryClientRegistry(hasher, clientsFromConfig(cfg.Clients)...)
	if err != nil {
		return nil, fmt.Errorf("register clients: %w", err)
	}
	users, err := registry.NewMemoryUserStore(hasher, usersFromConfig(cfg.Users)...)
	if err != nil {
		return nil, fmt.Errorf("register users: %w", err)
	}

	st, owns := o.store, false
	if st == nil {
		st, err = openStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	p := &Provider{store: st, ownsStore: owns}
	if err := p.wire(ctx, cfg, o, clients, users); err != nil {
		_ = p.Close()
		return nil, err
	}

	o.logger.Info("token provider initialized",
		zap.String("issuer", cfg.OAuth.Issuer),
		zap.String("token_format", cfg.OAuth.TokenFormat),
		zap.String("storage", cfg.Storage.Driver),
		zap.Strings("grant_types", p.granter.GrantTypes()),
		zap.Strings("routes", p.router.Routes()),
		zap.Int("clients", len(cfg.Clients)),
	)
	return p, nil
}

func (p *Provider) wire(ctx context.Context, cfg *config.Config, o options, clients *registry.MemoryClientRegistry, users *registry.MemoryUserStore) error {
	generator, signingKey, err := newGenerator(cfg.OAuth)
	if err != nil {
		return err
	}

	deniedKind := ierrors.KindForCode(cfg.OAuth.DeniedGrantError)
	if deniedKind != ierrors.KindInvalidGrant {
		deniedKind = ierrors.KindUnauthorizedClient
	}

	serviceOpts := []grant.Option{
		grant.WithClock(o.clock),
		grant.WithLogger(o.logger),
		grant.WithGenerator(generator),
		grant.WithAccessTokenValidity(cfg.OAuth.AccessTokenValidity),
		grant.WithRefreshTokenValidity(cfg.OAuth.RefreshTokenValidity),
		grant.WithCodeValidity(cfg.OAuth.CodeValidity),
	}
	p.codes = grant.NewAuthorizationCodeServices(p.store, serviceOpts...)
	p.tokens = grant.NewTokenServices(p.store, serviceOpts...)
	p.granter = grant.NewStandardRegistry(grant.Services{
		Clients: grant.NewClientValidator(clients, clients, grant.WithDeniedGrantKind(deniedKind)),
		Users:   users,
		Codes:   p.codes,
		Tokens:  p.tokens,
	})

	auth, err := clientauth.New(cfg.OAuth.Charset, clientauth.WithLogger(o.logger))
	if err != nil {
		return err
	}

	oauthCfg := &oauth.Config{
		BaseURL:         cfg.Server.BaseURL,
		Issuer:          cfg.OAuth.Issuer,
		GrantTypes:      p.granter.GrantTypes(),
		ScopesSupported: scopesSupported(cfg.Clients),
		SigningKey:      signingKey,
		ClockSkew:       cfg.OAuth.ClockSkew,
		Clock:           o.clock,
	}
	p.validator, p.metadata, p.scopes = oauth.NewOAuthServices(oauthCfg, p.store)
	if err := oauth.ValidateMetadata(ctx, p.metadata); err != nil {
		return fmt.Errorf("authorization server metadata: %w", err)
	}

	p.server, p.router, err = transport.NewTransportServices(&transport.Config{
		ServerConfig:    &cfg.Server,
		Realm:           cfg.OAuth.Realm,
		RequiredScopes:  cfg.Resource.RequiredScopes,
		Logger:          o.logger,
		TokenEndpoint:   endpoint.New(auth, p.granter),
		TokenCodecs:     codec.DefaultTokenCodecs(o.clock),
		ErrorCodecs:     codec.DefaultErrorCodecs(),
		OAuthValidator:  p.validator,
		MetadataService: p.metadata,
		HealthChecker:   p.store,
	})
	if err != nil {
		return fmt.Errorf("create transport services: %w", err)
	}
	return nil
}

// Server returns the HTTP server.
func (p *Provider) Server() transport.Server {
	return p.server
}

// Handler returns the routed HTTP handler, for embedding or httptest.
func (p *Provider) Handler() http.Handler {
	return p.router
}

// Codes returns the authorization code services. Issuing a code stands in
// for the interactive leg of the authorization code grant.
func (p *Provider) Codes() *grant.AuthorizationCodeServices {
	return p.codes
}

// Tokens returns the token services, which can revoke issued tokens.
func (p *Provider) Tokens() *grant.TokenServices {
	return p.tokens
}

// Validator returns the access token validator used by protected routes.
func (p *Provider) Validator() oauth.TokenValidator {
	return p.validator
}

// ScopeChecker returns the scope checker for callers embedding the provider
// outside the bundled routes.
func (p *Provider) ScopeChecker() oauth.ScopeChecker {
	return p.scopes
}

// Metadata returns the authorization server metadata service.
func (p *Provider) Metadata() oauth.MetadataService {
	return p.metadata
}

// GrantTypes returns the grant types the token endpoint accepts.
func (p *Provider) GrantTypes() []string {
	return p.granter.GrantTypes()
}

// Close releases the store when the provider opened it.
func (p *Provider) Close() error {
	if p.ownsStore && p.store != nil {
		return p.store.Close()
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newGenerator returns the access token generator and, for JWT tokens, the
// key the validator verifies them with.
func newGenerator(cfg config.OAuthConfig) (token.Generator, []byte, error) {
	switch cfg.TokenFormat {
	case "", config.TokenFormatOpaque:
		return token.UUIDGenerator{}, nil, nil
	case config.TokenFormatJWT:
		g, err := token.NewJWTGenerator(cfg.Issuer, []byte(cfg.SigningKey))
		if err != nil {
			return nil, nil, err
		}
		return g, g.Key(), nil
	default:
		return nil, nil, fmt.Errorf("unknown token format %q", cfg.TokenFormat)
	}
}

func clientsFromConfig(in []config.ClientConfig) []registry.Client {
	out := make([]registry.Client, 0, len(in))
	for _, c := range in {
		out = append(out, registry.Client{
			ID:                   c.ID,
			Secret:               c.Secret,
			GrantTypes:           c.GrantTypes,
			Scopes:               c.Scopes,
			RedirectURI:          c.RedirectURI,
			AccessTokenValidity:  c.AccessTokenValidity,
			RefreshTokenValidity: c.RefreshTokenValidity,
		})
	}
	return out
}

func usersFromConfig(in []config.UserConfig) []registry.User {
	out := make([]registry.User, 0, len(in))
	for _, u := range in {
		out = append(out, registry.User{Username: u.Username, Password: u.Password})
	}
	return out
}

// scopesSupported is the sorted union of every client's scopes.
func scopesSupported(clients []config.ClientConfig) []string {
	seen := make(map[string]struct{})
	for _, c := range clients {
		for _, s := range c.Scopes {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
