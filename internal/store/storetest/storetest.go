// Package storetest holds the behaviour every store.Store implementation
// must show. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/store"
)

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CodeRoundTrip", testCodeRoundTrip},
		{"CodeRedeemedOnce", testCodeRedeemedOnce},
		{"CodeConcurrentRedeem", testCodeConcurrentRedeem},
		{"CodeDuplicate", testCodeDuplicate},
		{"TokenLookups", testTokenLookups},
		{"TokenWithoutRefresh", testTokenWithoutRefresh},
		{"TokenDuplicate", testTokenDuplicate},
		{"TokenRemove", testTokenRemove},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleCode(code string) *store.AuthorizationCode {
	return &store.AuthorizationCode{
		Code:        code,
		ClientID:    "my-less-trusted-client",
		UserID:      "marissa",
		RedirectURI: "http://anywhere",
		Scope:       []string{"read", "write"},
		ExpiresAt:   epoch.Add(5 * time.Minute),
	}
}

func testCodeRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := sampleCode("abc")
	require.NoError(t, s.SaveCode(ctx, want))

	got, err := s.RedeemCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.ClientID, got.ClientID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.RedirectURI, got.RedirectURI)
	assert.Equal(t, want.Scope, got.Scope)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
}

func testCodeRedeemedOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveCode(ctx, sampleCode("once")))

	_, err := s.RedeemCode(ctx, "once")
	require.NoError(t, err)

	_, err = s.RedeemCode(ctx, "once")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
	assert.True(t, ierrors.IsDomain(err, store.Domain))

	_, err = s.RedeemCode(ctx, "never-issued")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
}

func testCodeConcurrentRedeem(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveCode(ctx, sampleCode("race")))

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RedeemCode(ctx, "race"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func testCodeDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveCode(ctx, sampleCode("dup")))
	assert.ErrorIs(t, s.SaveCode(ctx, sampleCode("dup")), ierrors.ErrConflict)
}

func sampleToken(access, refresh string) *store.Token {
	accessExp := epoch.Add(time.Hour)
	refreshExp := epoch.Add(30 * 24 * time.Hour)
	t := &store.Token{
		AccessToken:     access,
		RefreshToken:    refresh,
		ClientID:        "my-trusted-client",
		UserID:          "marissa",
		Scope:           []string{"read", "write", "trust"},
		AccessExpiresAt: &accessExp,
	}
	if refresh != "" {
		t.RefreshExpiresAt = &refreshExp
	}
	return t
}

func testTokenLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := sampleToken("at-1", "rt-1")
	require.NoError(t, s.SaveToken(ctx, want))

	for name, lookup := range map[string]func() (*store.Token, error){
		"access":  func() (*store.Token, error) { return s.TokenByAccess(ctx, "at-1") },
		"refresh": func() (*store.Token, error) { return s.TokenByRefresh(ctx, "rt-1") },
	} {
		got, err := lookup()
		require.NoError(t, err, name)
		assert.Equal(t, "at-1", got.AccessToken, name)
		assert.Equal(t, "rt-1", got.RefreshToken, name)
		assert.Equal(t, want.ClientID, got.ClientID, name)
		assert.Equal(t, want.UserID, got.UserID, name)
		assert.Equal(t, want.Scope, got.Scope, name)
		require.NotNil(t, got.AccessExpiresAt, name)
		assert.True(t, want.AccessExpiresAt.Equal(*got.AccessExpiresAt), name)
		require.NotNil(t, got.RefreshExpiresAt, name)
		assert.True(t, want.RefreshExpiresAt.Equal(*got.RefreshExpiresAt), name)
	}

	_, err := s.TokenByAccess(ctx, "missing")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
	_, err = s.TokenByRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
}

func testTokenWithoutRefresh(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveToken(ctx, sampleToken("cc-1", "")))
	require.NoError(t, s.SaveToken(ctx, sampleToken("cc-2", "")))

	got, err := s.TokenByAccess(ctx, "cc-2")
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
	assert.Nil(t, got.RefreshExpiresAt)

	_, err = s.TokenByRefresh(ctx, "")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
}

func testTokenDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveToken(ctx, sampleToken("at-1", "rt-1")))
	assert.ErrorIs(t, s.SaveToken(ctx, sampleToken("at-1", "rt-2")), ierrors.ErrConflict)
	assert.ErrorIs(t, s.SaveToken(ctx, sampleToken("at-2", "rt-1")), ierrors.ErrConflict)
}

func testTokenRemove(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveToken(ctx, sampleToken("at-1", "rt-1")))
	require.NoError(t, s.RemoveToken(ctx, "at-1"))

	_, err := s.TokenByAccess(ctx, "at-1")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
	_, err = s.TokenByRefresh(ctx, "rt-1")
	assert.ErrorIs(t, err, ierrors.ErrNotFound)
	assert.ErrorIs(t, s.RemoveToken(ctx, "at-1"), ierrors.ErrNotFound)

	// The refresh value is free again once its token is gone.
	require.NoError(t, s.SaveToken(ctx, sampleToken("at-2", "rt-1")))
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
