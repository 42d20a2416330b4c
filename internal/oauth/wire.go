package oauth

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jamesprial/oauth2-provider/internal/oauth/internal/bearer"
	"github.com/jamesprial/oauth2-provider/internal/oauth/internal/metadata"
	"github.com/jamesprial/oauth2-provider/internal/store"
)

// Config is what the oauth services need from the provider configuration.
type Config struct {
	BaseURL string
	// Issuer defaults to BaseURL.
	Issuer          string
	GrantTypes      []string
	ScopesSupported []string
	// SigningKey enables verification of JWT access tokens ahead of the
	// store lookup.
	SigningKey []byte
	ClockSkew  time.Duration
	Clock      clockwork.Clock
}

func (c *Config) issuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return c.BaseURL
}

// NewTokenValidator resolves access tokens through tokens.
func NewTokenValidator(cfg *Config, tokens store.TokenStore) TokenValidator {
	opts := []bearer.Option{bearer.WithClockSkew(cfg.ClockSkew), bearer.WithClock(cfg.Clock)}
	if len(cfg.SigningKey) > 0 {
		opts = append(opts, bearer.WithSigningKey(cfg.issuer(), cfg.SigningKey))
	}
	return bearer.NewValidator(tokens, opts...)
}

// NewMetadataService builds the discovery document from cfg.
func NewMetadataService(cfg *Config) MetadataService {
	return metadata.NewService(cfg.BaseURL, cfg.Issuer, cfg.GrantTypes, cfg.ScopesSupported)
}

func NewScopeChecker() ScopeChecker {
	return bearer.NewScopeChecker()
}

// ValidateMetadata checks the document served by svc for the fields
// RFC 8414 requires.
func ValidateMetadata(ctx context.Context, svc MetadataService) error {
	meta, err := svc.GetMetadata(ctx)
	if err != nil {
		return err
	}
	return metadata.ValidateMetadata(meta)
}

// NewOAuthServices builds the validator, metadata service and scope checker
// together.
func NewOAuthServices(cfg *Config, tokens store.TokenStore) (TokenValidator, MetadataService, ScopeChecker) {
	return NewTokenValidator(cfg, tokens), NewMetadataService(cfg), NewScopeChecker()
}
