package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding/ianaindex"

	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// minSigningKeyLen is the shortest HS256 key accepted.
const minSigningKeyLen = 32

var knownGrantTypes = map[string]bool{
	pkgoauth.GrantTypeAuthorizationCode: true,
	pkgoauth.GrantTypePassword:          true,
	pkgoauth.GrantTypeClientCredentials: true,
	pkgoauth.GrantTypeRefreshToken:      true,
}

// Validate checks that the configuration is valid and complete. Every
// problem found is reported in the returned *multierror.Error.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	var result *multierror.Error
	result = multierror.Append(result, validateServer(&cfg.Server)...)
	result = multierror.Append(result, validateLog(&cfg.Log)...)
	result = multierror.Append(result, validateOAuth(&cfg.OAuth)...)
	result = multierror.Append(result, validateStorage(&cfg.Storage)...)
	result = multierror.Append(result, validateClients(cfg.Clients)...)
	result = multierror.Append(result, validateUsers(cfg.Users)...)
	return result.ErrorOrNil()
}

// isLocalhost returns true if the host is localhost or a loopback address.
// It handles bare hostnames and host:port combinations.
func isLocalhost(host string) bool {
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	if len(host) > len("localhost:") && host[:len("localhost:")] == "localhost:" {
		return true
	}
	if len(host) > len("127.0.0.1:") && host[:len("127.0.0.1:")] == "127.0.0.1:" {
		return true
	}
	return false
}

func validateServer(cfg *ServerConfig) []error {
	var errs []error

	if cfg.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if cfg.BaseURL == "" {
		errs = append(errs, errors.New("server.baseUrl is required"))
	} else if parsedURL, err := url.Parse(cfg.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid server.baseUrl: %w", err))
	} else {
		switch {
		case !parsedURL.IsAbs():
			errs = append(errs, errors.New("server.baseUrl must be an absolute URL"))
		case parsedURL.Scheme != "https" && parsedURL.Scheme != "http":
			errs = append(errs, errors.New("server.baseUrl must use http or https scheme"))
		case parsedURL.Scheme == "http" && !isLocalhost(parsedURL.Host):
			errs = append(errs, errors.New("server.baseUrl must use https scheme for non-localhost hosts"))
		}
	}

	if cfg.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.readTimeout must be positive"))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.writeTimeout must be positive"))
	}
	// 0 means no idle timeout.
	if cfg.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.idleTimeout must be non-negative"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdownTimeout must be positive"))
	}
	return errs
}

func validateLog(cfg *LogConfig) []error {
	var errs []error
	if _, err := zapcore.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log.level: %w", err))
	}
	switch cfg.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", cfg.Format))
	}
	return errs
}

func validateOAuth(cfg *OAuthConfig) []error {
	var errs []error

	if cfg.AccessTokenValidity <= 0 {
		errs = append(errs, errors.New("oauth.accessTokenValidity must be positive"))
	}
	if cfg.RefreshTokenValidity <= 0 {
		errs = append(errs, errors.New("oauth.refreshTokenValidity must be positive"))
	}
	if cfg.CodeValidity <= 0 {
		errs = append(errs, errors.New("oauth.codeValidity must be positive"))
	}
	if cfg.ClockSkew < 0 {
		errs = append(errs, errors.New("oauth.clockSkew must be non-negative"))
	}

	if _, err := ianaindex.IANA.Encoding(cfg.Charset); err != nil {
		errs = append(errs, fmt.Errorf("unsupported oauth.charset %q: %w", cfg.Charset, err))
	}

	switch cfg.TokenFormat {
	case TokenFormatOpaque:
	case TokenFormatJWT:
		if len(cfg.SigningKey) < minSigningKeyLen {
			errs = append(errs, fmt.Errorf("oauth.signingKey must be at least %d bytes for jwt tokens", minSigningKeyLen))
		}
		if cfg.Issuer == "" {
			errs = append(errs, errors.New("oauth.issuer is required for jwt tokens"))
		}
	default:
		errs = append(errs, fmt.Errorf("oauth.tokenFormat must be opaque or jwt, got %q", cfg.TokenFormat))
	}

	switch cfg.SecretHashing {
	case "plain", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("oauth.secretHashing must be plain or bcrypt, got %q", cfg.SecretHashing))
	}

	switch cfg.DeniedGrantError {
	case "unauthorized_client", "invalid_grant":
	default:
		errs = append(errs, fmt.Errorf("oauth.deniedGrantError must be unauthorized_client or invalid_grant, got %q", cfg.DeniedGrantError))
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []error {
	switch cfg.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite, DriverPostgres:
		if cfg.DSN == "" {
			return []error{fmt.Errorf("storage.dsn is required for driver %q", cfg.Driver)}
		}
		return nil
	default:
		return []error{fmt.Errorf("storage.driver must be memory, sqlite3 or postgres, got %q", cfg.Driver)}
	}
}

func validateClients(clients []ClientConfig) []error {
	var errs []error
	seen := make(map[string]bool, len(clients))

	for i, c := range clients {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("clients[%d].id is required", i))
			continue
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate client id %q", i, c.ID))
		}
		seen[c.ID] = true

		if len(c.GrantTypes) == 0 {
			errs = append(errs, fmt.Errorf("clients[%d] (%s): at least one grant type is required", i, c.ID))
		}
		for _, gt := range c.GrantTypes {
			if !knownGrantTypes[gt] {
				errs = append(errs, fmt.Errorf("clients[%d] (%s): unknown grant type %q", i, c.ID, gt))
			}
		}
		for _, s := range c.Scopes {
			if s == "" {
				errs = append(errs, fmt.Errorf("clients[%d] (%s): scopes cannot be empty", i, c.ID))
			}
		}
		if c.RedirectURI != "" {
			if u, err := url.Parse(c.RedirectURI); err != nil || !u.IsAbs() {
				errs = append(errs, fmt.Errorf("clients[%d] (%s): redirectUri must be an absolute URL", i, c.ID))
			}
		}
		if c.AccessTokenValidity < 0 || c.RefreshTokenValidity < 0 {
			errs = append(errs, fmt.Errorf("clients[%d] (%s): token validity must be non-negative", i, c.ID))
		}
	}
	return errs
}

func validateUsers(users []UserConfig) []error {
	var errs []error
	seen := make(map[string]bool, len(users))

	for i, u := range users {
		if u.Username == "" {
			errs = append(errs, fmt.Errorf("users[%d].username is required", i))
			continue
		}
		if seen[u.Username] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		seen[u.Username] = true
		if u.Password == "" {
			errs = append(errs, fmt.Errorf("users[%d] (%s): password is required", i, u.Username))
		}
	}
	return errs
}
