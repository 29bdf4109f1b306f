package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestBoltStoreSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	tok := &Token{
		Email:        "ana@example.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, tok))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok.Email, got.Email)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, store.Clear(ctx), "clearing twice is allowed")
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, &Token{AccessToken: "kept"}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	got, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.AccessToken)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Token{}).Expired(now), "zero expiry never expires")
	assert.False(t, (&Token{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&Token{ExpiresAt: now}).Expired(now), "expiry instant is already invalid")
}
