package tokenfile

import (
	"os"
	"path/filepath"
	"testing"

	"voiceid/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_EmptySlots(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadCredential()
	assert.ErrorIs(t, err, repository.ErrSlotEmpty)
	_, err = store.LoadPhrase()
	assert.ErrorIs(t, err, repository.ErrSlotEmpty)
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveCredential("bearer-token"))
	require.NoError(t, store.SavePhrase("speak friend"))

	// A fresh store over the same directory sees the same state.
	reopened, err := New(dir)
	require.NoError(t, err)

	token, err := reopened.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", token)

	phrase, err := reopened.LoadPhrase()
	require.NoError(t, err)
	assert.Equal(t, "speak friend", phrase)
}

func TestFileStore_ClearIsIndependentPerSlot(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveCredential("bearer-token"))
	require.NoError(t, store.SavePhrase("speak friend"))

	require.NoError(t, store.ClearPhrase())
	_, err = store.LoadPhrase()
	assert.ErrorIs(t, err, repository.ErrSlotEmpty)

	token, err := store.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", token)

	require.NoError(t, store.ClearCredential())
	_, err = store.LoadCredential()
	assert.ErrorIs(t, err, repository.ErrSlotEmpty)
}

func TestFileStore_ClearWithoutStateFile(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.ClearCredential())
	assert.NoError(t, store.ClearPhrase())
}

func TestFileStore_StateFilePermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveCredential("bearer-token"))

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptStateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600))

	_, err = store.LoadCredential()
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrSlotEmpty)
}
