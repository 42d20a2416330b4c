package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func sparklrClients() []Client {
	return []Client{
		{
			ID:         "my-trusted-client",
			GrantTypes: []string{"password", "authorization_code", "refresh_token"},
			Scopes:     []string{"read", "write", "trust"},
		},
		{
			ID:         "my-trusted-client-with-secret",
			Secret:     "somesecret",
			GrantTypes: []string{"password", "authorization_code", "refresh_token", "client_credentials"},
			Scopes:     []string{"read", "write", "trust"},
		},
		{
			ID:          "my-untrusted-client-with-registered-redirect",
			GrantTypes:  []string{"authorization_code"},
			Scopes:      []string{"read"},
			RedirectURI: "http://anywhere",
		},
	}
}

func TestMemoryClientRegistry_LookupClient(t *testing.T) {
	t.Parallel()

	r, err := NewMemoryClientRegistry(PlainHasher{}, sparklrClients()...)
	require.NoError(t, err)

	tests := []struct {
		name     string
		clientID string
		wantErr  error
		check    func(t *testing.T, c *Client)
	}{
		{
			name:     "public client",
			clientID: "my-trusted-client",
			check: func(t *testing.T, c *Client) {
				assert.False(t, c.RequiresSecret())
				assert.True(t, c.IsAuthorizedGrantType("password"))
				assert.False(t, c.IsAuthorizedGrantType("client_credentials"))
				assert.True(t, c.IsScoped())
			},
		},
		{
			name:     "confidential client",
			clientID: "my-trusted-client-with-secret",
			check: func(t *testing.T, c *Client) {
				assert.True(t, c.RequiresSecret())
				assert.True(t, r.VerifySecret(c, "somesecret"))
				assert.False(t, r.VerifySecret(c, "wrong"))
			},
		},
		{
			name:     "registered redirect",
			clientID: "my-untrusted-client-with-registered-redirect",
			check: func(t *testing.T, c *Client) {
				assert.Equal(t, "http://anywhere", c.RedirectURI)
				assert.Equal(t, []string{"read"}, c.Scopes)
			},
		},
		{
			name:     "unknown client",
			clientID: "nobody",
			wantErr:  ErrClientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := r.LookupClient(context.Background(), tt.clientID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.clientID, c.ID)
			tt.check(t, c)
		})
	}
}

func TestMemoryClientRegistry_LookupReturnsCopy(t *testing.T) {
	t.Parallel()

	r, err := NewMemoryClientRegistry(nil, sparklrClients()...)
	require.NoError(t, err)

	c, err := r.LookupClient(context.Background(), "my-trusted-client")
	require.NoError(t, err)
	c.Scopes[0] = "admin"
	c.GrantTypes[0] = "implicit"
	c.RedirectURI = "http://evil"

	again, err := r.LookupClient(context.Background(), "my-trusted-client")
	require.NoError(t, err)
	assert.Equal(t, "read", again.Scopes[0])
	assert.NotContains(t, again.GrantTypes, "implicit")
	assert.Empty(t, again.RedirectURI)
}

func TestMemoryClientRegistry_Register(t *testing.T) {
	t.Parallel()

	_, err := NewMemoryClientRegistry(PlainHasher{}, Client{})
	assert.Error(t, err)

	r, err := NewMemoryClientRegistry(BcryptHasher{Cost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, r.Register(Client{ID: "svc", Secret: "s3cret"}))

	c, err := r.LookupClient(context.Background(), "svc")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", c.Secret, "secret should be stored hashed")
	assert.True(t, r.VerifySecret(c, "s3cret"))
	assert.False(t, r.VerifySecret(c, "S3cret"))
}

func TestMemoryUserStore_VerifyUser(t *testing.T) {
	t.Parallel()

	for _, hasher := range []Hasher{PlainHasher{}, BcryptHasher{Cost: bcrypt.MinCost}} {
		s, err := NewMemoryUserStore(hasher, User{Username: "marissa", Password: "koala"})
		require.NoError(t, err)

		u, err := s.VerifyUser(context.Background(), "marissa", "koala")
		require.NoError(t, err)
		assert.Equal(t, "marissa", u.Username)
		assert.Empty(t, u.Password)

		_, err = s.VerifyUser(context.Background(), "marissa", "wombat")
		assert.ErrorIs(t, err, ErrBadCredentials)

		_, err = s.VerifyUser(context.Background(), "paul", "koala")
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
}

func TestNewHasher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   Hasher
		wantOK bool
	}{
		{name: "bcrypt", want: BcryptHasher{}, wantOK: true},
		{name: "plain", want: PlainHasher{}, wantOK: true},
		{name: "", want: PlainHasher{}, wantOK: true},
		{name: "md5", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NewHasher(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainHasher_Compare(t *testing.T) {
	t.Parallel()

	h := PlainHasher{}
	hashed, err := h.Generate([]byte("abc"))
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, []byte("abc")))
	assert.ErrorIs(t, h.Compare(hashed, []byte("abd")), bcrypt.ErrMismatchedHashAndPassword)
}
