package store

import (
	"context"
	"sync"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu        sync.RWMutex
	codes     map[string]AuthorizationCode
	tokens    map[string]Token
	byRefresh map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		codes:     make(map[string]AuthorizationCode),
		tokens:    make(map[string]Token),
		byRefresh: make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

// SaveCode implements AuthorizationCodeStore.
func (m *Memory) SaveCode(_ context.Context, code *AuthorizationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[code.Code]; ok {
		return ierrors.New(Domain, "SaveCode", ierrors.ErrConflict, nil)
	}
	c := *code
	c.Scope = append([]string(nil), code.Scope...)
	m.codes[c.Code] = c
	return nil
}

// RedeemCode implements AuthorizationCodeStore.
func (m *Memory) RedeemCode(_ context.Context, code string) (*AuthorizationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[code]
	if !ok {
		return nil, ierrors.New(Domain, "RedeemCode", ierrors.ErrNotFound, nil)
	}
	delete(m.codes, code)
	return &c, nil
}

// SaveToken implements TokenStore.
func (m *Memory) SaveToken(_ context.Context, t *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[t.AccessToken]; ok {
		return ierrors.New(Domain, "SaveToken", ierrors.ErrConflict, nil)
	}
	if t.RefreshToken != "" {
		if _, ok := m.byRefresh[t.RefreshToken]; ok {
			return ierrors.New(Domain, "SaveToken", ierrors.ErrConflict, nil)
		}
		m.byRefresh[t.RefreshToken] = t.AccessToken
	}
	m.tokens[t.AccessToken] = copyToken(t)
	return nil
}

// TokenByAccess implements TokenStore.
func (m *Memory) TokenByAccess(_ context.Context, accessToken string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[accessToken]
	if !ok {
		return nil, ierrors.New(Domain, "TokenByAccess", ierrors.ErrNotFound, nil)
	}
	out := copyToken(&t)
	return &out, nil
}

// TokenByRefresh implements TokenStore.
func (m *Memory) TokenByRefresh(_ context.Context, refreshToken string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	access, ok := m.byRefresh[refreshToken]
	if !ok {
		return nil, ierrors.New(Domain, "TokenByRefresh", ierrors.ErrNotFound, nil)
	}
	t := m.tokens[access]
	out := copyToken(&t)
	return &out, nil
}

// RemoveToken implements TokenStore.
func (m *Memory) RemoveToken(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[accessToken]
	if !ok {
		return ierrors.New(Domain, "RemoveToken", ierrors.ErrNotFound, nil)
	}
	delete(m.tokens, accessToken)
	if t.RefreshToken != "" {
		delete(m.byRefresh, t.RefreshToken)
	}
	return nil
}

// Ping implements Store. Memory is always reachable.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

func copyToken(t *Token) Token {
	out := *t
	out.Scope = append([]string(nil), t.Scope...)
	if t.AccessExpiresAt != nil {
		v := *t.AccessExpiresAt
		out.AccessExpiresAt = &v
	}
	if t.RefreshExpiresAt != nil {
		v := *t.RefreshExpiresAt
		out.RefreshExpiresAt = &v
	}
	return out
}
