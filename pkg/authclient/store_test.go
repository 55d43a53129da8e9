package authclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MemStore(t *testing.T) {
	t.Parallel()

	store := NewMemStore()

	_, ok := store.Get("missing")
	require.False(t, ok)

	store.Set("token", "T1")
	value, ok := store.Get("token")
	require.True(t, ok)
	require.Equal(t, "T1", value)

	store.Delete("token")
	_, ok = store.Get("token")
	require.False(t, ok)

	// Deleting a missing key is fine
	store.Delete("token")
}

func Test_FileStore(t *testing.T) {
	t.Parallel()

	t.Run("survives between instances", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")

		store := NewFileStore(path)
		store.Set("token", "T1")
		store.Set("user", `{"id":1}`)

		reopened := NewFileStore(path)
		value, ok := reopened.Get("token")
		require.True(t, ok)
		require.Equal(t, "T1", value)
	})

	t.Run("missing file reads as empty", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

		_, ok := store.Get("token")
		require.False(t, ok)
	})

	t.Run("corrupt file reads as empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o600))

		store := NewFileStore(path)
		_, ok := store.Get("token")
		require.False(t, ok)

		// Writes recover the file
		store.Set("token", "T1")
		value, ok := store.Get("token")
		require.True(t, ok)
		require.Equal(t, "T1", value)
	})

	t.Run("owner-only permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")

		store := NewFileStore(path)
		store.Set("token", "T1")

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("remove session file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")

		store := NewFileStore(path)
		store.Set("token", "T1")

		require.NoError(t, store.RemoveSessionFile())
		_, ok := store.Get("token")
		require.False(t, ok)

		// Removing twice is fine
		require.NoError(t, store.RemoveSessionFile())
	})
}
