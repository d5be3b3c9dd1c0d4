package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return store
}

func TestSaveStoresFile(t *testing.T) {
	store := newTestStore(t)

	info, err := store.Save("avatar", "me.png", "image/png", bytes.NewReader([]byte("pngdata")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(info.Name, "avatar-"))
	assert.True(t, strings.HasSuffix(info.Name, ".png"))
	assert.EqualValues(t, 7, info.Size)

	data, err := os.ReadFile(filepath.Join(store.Dir(), info.Name))
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
}

func TestSaveRejectsDisallowedType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save("doc", "notes.pdf", "application/pdf", bytes.NewReader([]byte("%PDF")))
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestSaveRejectsExtensionMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save("avatar", "evil.png.exe", "image/png", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrExtensionMismatch)

	_, err = store.Save("avatar", "photo.gif", "image/jpeg", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrExtensionMismatch)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	store := newTestStore(t)

	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, err := store.Save("avatar", "huge.jpg", "image/jpeg", big)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must be removed")
}

func TestSaveNeutralizesTraversalNames(t *testing.T) {
	store := newTestStore(t)

	info, err := store.Save("avatar", "../../etc/passwd.jpeg", "image/jpeg", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	assert.NotContains(t, info.Name, "..")
	assert.NotContains(t, info.Name, "/")

	_, err = os.Stat(filepath.Join(store.Dir(), info.Name))
	require.NoError(t, err)
}
