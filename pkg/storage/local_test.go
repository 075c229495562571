package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_GetPut(t *testing.T) {
	target := filepath.Join(t.TempDir(), "jobs", "42", "code.txt")
	uri := "file://" + target
	storage := NewLocalStorage()
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, uri, strings.NewReader("first")))
	require.NoError(t, storage.Put(ctx, uri, strings.NewReader("second")))
	assert.FileExists(t, target)

	reader, err := storage.Get(ctx, uri)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	// no temporary files are left next to the target
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorage_GetMissing(t *testing.T) {
	_, err := NewLocalStorage().Get(context.Background(), "file://"+filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_Exists(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "existing.txt")
	require.NoError(t, os.WriteFile(existing, []byte("011101110"), 0o644))

	storage := NewLocalStorage()
	ctx := context.Background()

	exists, err := storage.Exists(ctx, "file://"+existing)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.Exists(ctx, "file://"+filepath.Join(tmpDir, "nonexistent.txt"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_Delete(t *testing.T) {
	target := filepath.Join(t.TempDir(), "delete-me.txt")
	require.NoError(t, os.WriteFile(target, []byte("test"), 0o644))

	storage := NewLocalStorage()
	ctx := context.Background()

	require.NoError(t, storage.Delete(ctx, "file://"+target))
	assert.NoFileExists(t, target)

	// deleting twice is fine
	assert.NoError(t, storage.Delete(ctx, "file://"+target))
}

func TestLocalStorage_WrongScheme(t *testing.T) {
	_, err := NewLocalStorage().Get(context.Background(), "s3://bucket/key")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
