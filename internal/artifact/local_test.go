package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestLocalStore_PutExistsDelete(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	loc, err := s.Put(ctx, []byte("%PDF-1.7 resume"), "resume.pdf")
	require.NoError(t, err)
	assert.True(t, ValidLocator(loc))

	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(loc)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 resume", string(data))

	ok, err := s.Exists(ctx, loc)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, loc))

	ok, err = s.Exists(ctx, loc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_DeleteMissing(t *testing.T) {
	s := newTestLocalStore(t)
	err := s.Delete(context.Background(), NewLocator("gone.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_RejectsInvalidLocator(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	err := s.Delete(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidLocator)

	_, err = s.Exists(ctx, "/abs/path")
	assert.ErrorIs(t, err, ErrInvalidLocator)
}

func TestLocalStore_PutNeverOverwrites(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	a, err := s.Put(ctx, []byte("one"), "cv.pdf")
	require.NoError(t, err)
	b, err := s.Put(ctx, []byte("two"), "cv.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLocalStore_ListSkipsTempFiles(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	loc, err := s.Put(ctx, []byte("x"), "a.txt")
	require.NoError(t, err)

	dir := filepath.Dir(filepath.Join(s.Root(), filepath.FromSlash(loc)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tempPrefix+"123"), []byte("partial"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "README"), []byte("not an artifact"), 0o600))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, loc, items[0].Locator)
	assert.Equal(t, int64(1), items[0].Size)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	s := newTestLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, []byte("x"), "a.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalStore_EmptyRoot(t *testing.T) {
	_, err := NewLocalStore("  ", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}
