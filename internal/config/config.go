// Package config provides configuration management for the OAuth 2.0
// provider. Configuration is layered with koanf: built-in defaults, then an
// optional YAML file, then environment variables prefixed with OAUTH2__.
//
// Environment variable transformation:
//   - OAUTH2__SERVER__ADDR → server.addr
//   - OAUTH2__SERVER__BASE_URL → server.baseUrl (underscores become camelCase)
//   - OAUTH2__OAUTH__SIGNING_KEY → oauth.signingKey
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "OAUTH2__"

// Token formats.
const (
	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds the complete provider configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	OAuth    OAuthConfig    `koanf:"oauth"`
	Storage  StorageConfig  `koanf:"storage"`
	Resource ResourceConfig `koanf:"resource"`
	Clients  []ClientConfig `koanf:"clients"`
	Users    []UserConfig   `koanf:"users"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the address to bind the HTTP server (e.g., ":8080").
	Addr string `koanf:"addr"`

	// BaseURL is the externally visible base URL of the provider. It is the
	// default issuer and the prefix of every advertised endpoint.
	BaseURL string `koanf:"baseUrl"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `koanf:"readTimeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `koanf:"writeTimeout"`

	// IdleTimeout is the maximum duration to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration `koanf:"idleTimeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdownTimeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// OAuthConfig holds token issuance settings.
type OAuthConfig struct {
	// Issuer identifies the provider in metadata and JWT access tokens.
	// Defaults to the server base URL.
	Issuer string `koanf:"issuer"`

	// Realm is advertised in WWW-Authenticate challenges.
	Realm string `koanf:"realm"`

	// AccessTokenValidity is the default access token lifetime.
	AccessTokenValidity time.Duration `koanf:"accessTokenValidity"`

	// RefreshTokenValidity is the default refresh token lifetime.
	RefreshTokenValidity time.Duration `koanf:"refreshTokenValidity"`

	// CodeValidity is the authorization code lifetime.
	CodeValidity time.Duration `koanf:"codeValidity"`

	// ClockSkew is tolerated when validating access token expiry.
	ClockSkew time.Duration `koanf:"clockSkew"`

	// Charset decodes HTTP Basic client credentials.
	Charset string `koanf:"charset"`

	// TokenFormat is "opaque" or "jwt".
	TokenFormat string `koanf:"tokenFormat"`

	// SigningKey is the HS256 key for JWT access tokens.
	SigningKey string `koanf:"signingKey"`

	// SecretHashing is "plain" or "bcrypt" and applies to client secrets
	// and user passwords.
	SecretHashing string `koanf:"secretHashing"`

	// DeniedGrantError is the error code returned when a client uses a
	// grant type it is not authorized for: unauthorized_client or
	// invalid_grant.
	DeniedGrantError string `koanf:"deniedGrantError"`
}

// StorageConfig selects the code and token store.
type StorageConfig struct {
	// Driver is memory, sqlite3 or postgres.
	Driver string `koanf:"driver"`

	// DSN is the data source name for SQL drivers.
	DSN string `koanf:"dsn"`
}

// ResourceConfig protects the token info endpoint.
type ResourceConfig struct {
	// RequiredScopes must all be granted to a token presented to
	// /oauth/token_info.
	RequiredScopes []string `koanf:"requiredScopes"`
}

// ClientConfig registers one OAuth client.
type ClientConfig struct {
	ID                   string        `koanf:"id"`
	Secret               string        `koanf:"secret"`
	GrantTypes           []string      `koanf:"grantTypes"`
	Scopes               []string      `koanf:"scopes"`
	RedirectURI          string        `koanf:"redirectUri"`
	AccessTokenValidity  time.Duration `koanf:"accessTokenValidity"`
	RefreshTokenValidity time.Duration `koanf:"refreshTokenValidity"`
}

// UserConfig registers one resource owner.
type UserConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":                ":8080",
		"server.baseUrl":             "http://localhost:8080",
		"server.readTimeout":         "30s",
		"server.writeTimeout":        "30s",
		"server.idleTimeout":         "120s",
		"server.shutdownTimeout":     "30s",
		"log.level":                  "info",
		"log.format":                 "json",
		"oauth.realm":                "oauth2-provider",
		"oauth.accessTokenValidity":  "12h",
		"oauth.refreshTokenValidity": "720h",
		"oauth.codeValidity":         "5m",
		"oauth.clockSkew":            "1m",
		"oauth.charset":              "UTF-8",
		"oauth.tokenFormat":          TokenFormatOpaque,
		"oauth.secretHashing":        "plain",
		"oauth.deniedGrantError":     "unauthorized_client",
		"storage.driver":             DriverMemory,
	}
}

// Load reads the configuration. path names an optional YAML file; an empty
// path skips it. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", transformEnvValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.OAuth.Issuer == "" {
		cfg.OAuth.Issuer = strings.TrimRight(cfg.Server.BaseURL, "/")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TransformEnv maps an environment variable name to a config key. Double
// underscores separate path segments and single underscores start a new
// camelCase word.
func TransformEnv(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	segments := strings.Split(s, "__")
	for i, segment := range segments {
		parts := strings.Split(segment, "_")
		for j := 1; j < len(parts); j++ {
			parts[j] = capitalize(parts[j])
		}
		segments[i] = strings.Join(parts, "")
	}
	return strings.Join(segments, ".")
}

// transformEnvValue splits comma separated values into lists.
func transformEnvValue(key, value string) (string, interface{}) {
	key = TransformEnv(key)
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// String returns a string representation of the configuration (for debugging).
// Secrets are redacted.
func (c *Config) String() string {
	signingKey := ""
	if c.OAuth.SigningKey != "" {
		signingKey = "[redacted]"
	}
	return fmt.Sprintf("Config{Addr: %s, BaseURL: %s, ReadTimeout: %v, WriteTimeout: %v, IdleTimeout: %v, Issuer: %s, TokenFormat: %s, SigningKey: %s, Storage: %s, Clients: %d, Users: %d}",
		c.Server.Addr, c.Server.BaseURL, c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.IdleTimeout,
		c.OAuth.Issuer, c.OAuth.TokenFormat, signingKey, c.Storage.Driver, len(c.Clients), len(c.Users))
}
