package metadata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// WellKnownPath is the RFC 8414 discovery path.
const WellKnownPath = "/.well-known/oauth-authorization-server"

// TokenPath is the path of the token endpoint relative to the base URL.
const TokenPath = "/oauth/token"

// AuthorizationServerMetadata represents the OAuth 2.0 Authorization Server
// Metadata as defined in RFC 8414.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
}

// Service provides Authorization Server Metadata per RFC 8414.
type Service struct {
	metadata    AuthorizationServerMetadata
	metadataURL string
}

// NewService creates a new metadata service.
//
// Parameters:
//   - baseURL: the externally visible base URL of the provider (e.g., "https://auth.example.com")
//   - issuer: the issuer identifier; defaults to baseURL when empty
//   - grantTypes: the grant types the token endpoint accepts
//   - scopes: the union of scopes registered clients may request (optional)
func NewService(baseURL, issuer string, grantTypes, scopes []string) *Service {
	base := normalizeBaseURL(baseURL)
	if issuer == "" {
		issuer = base
	}

	return &Service{
		metadata: AuthorizationServerMetadata{
			Issuer:                            issuer,
			TokenEndpoint:                     base + TokenPath,
			GrantTypesSupported:               sortedCopy(grantTypes),
			TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
			ScopesSupported:                   sortedCopy(scopes),
			ResponseTypesSupported:            []string{},
		},
		metadataURL: base + WellKnownPath,
	}
}

// GetMetadata returns the authorization server metadata document.
func (s *Service) GetMetadata(ctx context.Context) (*AuthorizationServerMetadata, error) {
	m := s.metadata
	m.GrantTypesSupported = sortedCopy(m.GrantTypesSupported)
	m.TokenEndpointAuthMethodsSupported = append([]string(nil), m.TokenEndpointAuthMethodsSupported...)
	m.ScopesSupported = sortedCopy(m.ScopesSupported)
	m.ResponseTypesSupported = []string{}
	return &m, nil
}

// GetMetadataURL returns the canonical URL where this metadata is served.
func (s *Service) GetMetadataURL() string {
	return s.metadataURL
}

// normalizeBaseURL strips trailing slashes so endpoint paths join cleanly.
func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// ValidateMetadata validates the metadata document per RFC 8414 Section 2.
func ValidateMetadata(metadata *AuthorizationServerMetadata) error {
	if metadata.Issuer == "" {
		return fmt.Errorf("issuer field is required")
	}
	u, err := url.Parse(metadata.Issuer)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("issuer must be an absolute URL: %s", metadata.Issuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("issuer must not contain a query or fragment: %s", metadata.Issuer)
	}
	if u.Scheme != "https" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		return fmt.Errorf("issuer must use HTTPS (or http://localhost for testing): %s", metadata.Issuer)
	}
	if metadata.TokenEndpoint == "" {
		return fmt.Errorf("token_endpoint field is required")
	}
	if len(metadata.GrantTypesSupported) == 0 {
		return fmt.Errorf("grant_types_supported must contain at least one grant type")
	}
	return nil
}
