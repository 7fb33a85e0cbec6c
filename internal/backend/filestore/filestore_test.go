package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/backend"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data"), "json")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesRoot(t *testing.T) {
	s := createTestStore(t)
	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = Open("", "json")
	assert.Error(t, err)
}

func TestPathLayout(t *testing.T) {
	s := createTestStore(t)
	assert.Equal(t, filepath.Join(s.Root(), "document", "document_AQAAAAAAAAA.json"), s.Path("document", 1))
}

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.Load(ctx, "document", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "document", 1, []byte(`{"a":1}`)))
	payload, ok, err := s.Load(ctx, "document", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(payload))

	require.NoError(t, s.Save(ctx, "document", 1, []byte(`{"a":2}`)))
	payload, _, err = s.Load(ctx, "document", 1)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(payload), "save overwrites")

	require.NoError(t, s.Delete(ctx, "document", 1))
	require.NoError(t, s.Delete(ctx, "document", 1))
	_, err = os.Stat(s.Path("document", 1))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLeavesNoTemporaries(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, "document", 7, []byte("x")))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "document"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "document_BwAAAAAAAAA.json", entries[0].Name())
}

func TestListIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	for _, id := range []int64{300, 2, 17} {
		require.NoError(t, s.Save(ctx, "document", id, []byte("x")))
	}
	dir := filepath.Join(s.Root(), "document")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note_AQAAAAAAAAA.json"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document_AQAAAAAAAAA.yaml"), []byte("x"), 0o644))

	ids, err := backend.Collect(s.List(ctx, "document"))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 17, 300}, ids)
}

func TestListMissingKind(t *testing.T) {
	s := createTestStore(t)
	ids, err := backend.Collect(s.List(context.Background(), "nothing"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestKinds(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, "note", 1, []byte("n")))
	require.NoError(t, s.Save(ctx, "document", 4, []byte("d")))
	require.NoError(t, s.Save(ctx, "task", 2, []byte("t")))
	require.NoError(t, s.Delete(ctx, "task", 2))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "stray"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "stray", "readme.txt"), []byte("x"), 0o644))

	kinds, err := s.Kinds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"document", "note"}, kinds)
}
