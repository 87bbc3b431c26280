package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thereayou/voxus-chat/internal/apperr"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newStore(t *testing.T, max int64) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), max, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestSaveText(t *testing.T) {
	s := newStore(t, 1024)

	f, err := s.Save("notes.TXT", strings.NewReader("hello there"))
	require.NoError(t, err)

	assert.Equal(t, "notes.TXT", f.OriginalName)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.Equal(t, int64(11), f.Size)
	assert.True(t, strings.HasSuffix(f.StoredName, ".txt"))
	assert.NotContains(t, f.StoredName, "notes")

	raw, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello there", string(raw))
}

func TestSaveSniffsContent(t *testing.T) {
	s := newStore(t, 1024)

	f, err := s.Save("picture.bin", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MimeType)

	_, err = s.Save("tool.txt", bytes.NewReader([]byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00")))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveTooLarge(t *testing.T) {
	s := newStore(t, 8)

	_, err := s.Save("big.txt", strings.NewReader("0123456789"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "8 B")

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected upload must not leave files behind")
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newStore(t, 1024)
	outside := filepath.Join(filepath.Dir(s.dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	for _, name := range []string{"../secret.txt", "", ".hidden", "a/b.txt"} {
		_, err := s.Open(name)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}

	_, err := s.Open("missing.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemove(t *testing.T) {
	s := newStore(t, 1024)
	f, err := s.Save("a.txt", strings.NewReader("abc"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(f.StoredName))
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(f.StoredName))
}
