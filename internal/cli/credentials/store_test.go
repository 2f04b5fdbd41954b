package credentials

import (
	"path/filepath"
	"testing"

	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, store.SetToken(remote.Token("abc123")))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	token, err := reopened.Token()
	require.NoError(t, err)
	assert.Equal(t, remote.Token("abc123"), token)

	assert.Equal(t, filepath.Join(dir, FileName), reopened.Path())
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetToken(remote.Token("abc123")))
	require.NoError(t, store.Clear())

	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStorePreferences(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	prefs := store.Preferences()
	assert.Empty(t, prefs.DefaultOutput)

	require.NoError(t, store.SetPreferences(Preferences{DefaultOutput: "json", Color: "auto"}))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	prefs = reopened.Preferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
}

func TestStorePreservesPreferencesAcrossTokenUpdate(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetPreferences(Preferences{DefaultOutput: "yaml"}))
	require.NoError(t, store.SetToken(remote.Token("tok")))

	assert.Equal(t, "yaml", store.Preferences().DefaultOutput)
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, remote.Token("tok"), token)
}
