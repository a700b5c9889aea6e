package credstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "credentials.json"))
}

func TestSaveLoad(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		User: &types.UserProfile{
			ID:       "u-1",
			Username: "alice",
			Role:     "member",
		},
	}
	require.NoError(t, store.Save(creds))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-1", loaded.AccessToken)
	assert.Equal(t, "rt-1", loaded.RefreshToken)
	require.NotNil(t, loaded.User)
	assert.Equal(t, "alice", loaded.User.Username)
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.Exists())
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Credentials{RefreshToken: "rt-1"}))
	require.True(t, store.Exists())

	require.NoError(t, store.Clear())
	assert.False(t, store.Exists())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing again is a no-op
	assert.NoError(t, store.Clear())
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Credentials{AccessToken: "old"}))
	require.NoError(t, store.Save(&Credentials{AccessToken: "new"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.AccessToken)
	assert.Empty(t, loaded.RefreshToken)
}

func TestWatchSeesExternalChange(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&Credentials{RefreshToken: "rt-1"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	// Simulate another process replacing the credentials
	other := New(store.Path())
	require.NoError(t, other.Save(&Credentials{RefreshToken: "rt-2"}))

	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch signal")
	}

	cancel()
	// Channel closes once the watcher shuts down
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher shutdown")
	}
}
