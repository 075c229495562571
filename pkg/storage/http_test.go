package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStorage_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/triangle.txt":
			w.Write([]byte("011101110"))
		case "/broken.txt":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	storage := NewHTTPStorageWithClient(server.Client())
	ctx := context.Background()

	reader, err := storage.Get(ctx, server.URL+"/triangle.txt")
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "011101110", string(content))

	_, err = storage.Get(ctx, server.URL+"/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.Get(ctx, server.URL+"/broken.txt")
	assert.ErrorContains(t, err, "500")
}

func TestHTTPStorage_ReadOnly(t *testing.T) {
	storage := NewHTTPStorage()
	ctx := context.Background()

	assert.ErrorIs(t, storage.Put(ctx, "https://example.com/code.txt", nil), ErrReadOnly)
	assert.ErrorIs(t, storage.Delete(ctx, "https://example.com/code.txt"), ErrReadOnly)
}

func TestHTTPStorage_Exists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/exists.txt" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	storage := NewHTTPStorage()
	ctx := context.Background()

	exists, err := storage.Exists(ctx, server.URL+"/exists.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.Exists(ctx, server.URL+"/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHTTPStorage_WrongScheme(t *testing.T) {
	_, err := NewHTTPStorage().Get(context.Background(), "file:///etc/hosts")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
