// Package registry holds the registered clients and resource owners the
// token granter authenticates against.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrClientNotFound indicates no client is registered under the id.
	ErrClientNotFound = errors.New("client not found")

	// ErrBadCredentials indicates an unknown user or a wrong password.
	ErrBadCredentials = errors.New("bad credentials")
)

// Client is a registered OAuth client.
type Client struct {
	// ID is the client identifier.
	ID string

	// Secret is the hashed client secret. Empty means the client may
	// authenticate with its id alone.
	Secret string

	// GrantTypes lists the grant types the client may use.
	GrantTypes []string

	// Scopes lists the scopes the client may request. An empty list places
	// no restriction on requested scopes.
	Scopes []string

	// RedirectURI is the registered redirect URI. When set it overrides any
	// redirect_uri a request supplies.
	RedirectURI string

	// AccessTokenValidity overrides the provider default when non-zero.
	AccessTokenValidity time.Duration

	// RefreshTokenValidity overrides the provider default when non-zero.
	RefreshTokenValidity time.Duration
}

// RequiresSecret reports whether the client must present a secret.
func (c *Client) RequiresSecret() bool {
	return c.Secret != ""
}

// IsAuthorizedGrantType reports whether the client may use grantType.
func (c *Client) IsAuthorizedGrantType(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// IsScoped reports whether the client's requests are limited to Scopes.
func (c *Client) IsScoped() bool {
	return len(c.Scopes) > 0
}

// ClientRegistry looks up registered clients.
type ClientRegistry interface {
	// LookupClient returns ErrClientNotFound for unknown ids.
	LookupClient(ctx context.Context, clientID string) (*Client, error)
}

// SecretVerifier checks a presented secret against a client's stored one.
type SecretVerifier interface {
	VerifySecret(c *Client, secret string) bool
}

// MemoryClientRegistry is a ClientRegistry backed by a map.
type MemoryClientRegistry struct {
	mu      sync.RWMutex
	hasher  Hasher
	clients map[string]Client
}

// NewMemoryClientRegistry creates a registry. Client secrets are given in
// plaintext and stored through hasher.
func NewMemoryClientRegistry(hasher Hasher, clients ...Client) (*MemoryClientRegistry, error) {
	if hasher == nil {
		hasher = PlainHasher{}
	}
	r := &MemoryClientRegistry{
		hasher:  hasher,
		clients: make(map[string]Client, len(clients)),
	}
	for _, c := range clients {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a client. The secret is hashed before storage.
func (r *MemoryClientRegistry) Register(c Client) error {
	if c.ID == "" {
		return errors.New("client id cannot be empty")
	}
	if c.Secret != "" {
		hashed, err := r.hasher.Generate([]byte(c.Secret))
		if err != nil {
			return fmt.Errorf("hash secret for client %q: %w", c.ID, err)
		}
		c.Secret = string(hashed)
	}
	c.GrantTypes = append([]string(nil), c.GrantTypes...)
	c.Scopes = append([]string(nil), c.Scopes...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

// LookupClient returns a copy of the registered client.
func (r *MemoryClientRegistry) LookupClient(_ context.Context, clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	c.GrantTypes = append([]string(nil), c.GrantTypes...)
	c.Scopes = append([]string(nil), c.Scopes...)
	return &c, nil
}

var (
	_ ClientRegistry = (*MemoryClientRegistry)(nil)
	_ SecretVerifier = (*MemoryClientRegistry)(nil)
)

// VerifySecret checks secret against the client's stored secret. A client
// without a secret only matches the empty secret.
func (r *MemoryClientRegistry) VerifySecret(c *Client, secret string) bool {
	if !c.RequiresSecret() {
		return secret == ""
	}
	return r.hasher.Compare([]byte(c.Secret), []byte(secret)) == nil
}

// User is a resource owner that may use the password grant.
type User struct {
	Username string
	Password string
}

// UserVerifier checks resource owner credentials.
type UserVerifier interface {
	// VerifyUser returns ErrBadCredentials for an unknown user or a wrong
	// password.
	VerifyUser(ctx context.Context, username, password string) (*User, error)
}

// MemoryUserStore is a UserVerifier backed by a map.
type MemoryUserStore struct {
	mu     sync.RWMutex
	hasher Hasher
	users  map[string]User
}

// NewMemoryUserStore creates a store. Passwords are given in plaintext and
// stored through hasher.
func NewMemoryUserStore(hasher Hasher, users ...User) (*MemoryUserStore, error) {
	if hasher == nil {
		hasher = PlainHasher{}
	}
	s := &MemoryUserStore{
		hasher: hasher,
		users:  make(map[string]User, len(users)),
	}
	for _, u := range users {
		if err := s.Add(u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add adds or replaces a user.
func (s *MemoryUserStore) Add(u User) error {
	if u.Username == "" {
		return errors.New("username cannot be empty")
	}
	hashed, err := s.hasher.Generate([]byte(u.Password))
	if err != nil {
		return fmt.Errorf("hash password for user %q: %w", u.Username, err)
	}
	u.Password = string(hashed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	return nil
}

// VerifyUser implements UserVerifier. The returned user carries no password.
func (s *MemoryUserStore) VerifyUser(_ context.Context, username, password string) (*User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBadCredentials
	}
	if err := s.hasher.Compare([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &User{Username: u.Username}, nil
}
