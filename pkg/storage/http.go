package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStorage reads pattern files over http and https. It never writes.
type HTTPStorage struct {
	client *http.Client
}

// NewHTTPStorage creates an HTTP backend with a bounded request timeout
func NewHTTPStorage() *HTTPStorage {
	return NewHTTPStorageWithClient(&http.Client{Timeout: 30 * time.Second})
}

// NewHTTPStorageWithClient creates an HTTP backend using client
func NewHTTPStorageWithClient(client *http.Client) *HTTPStorage {
	return &HTTPStorage{client: client}
}

func (hs *HTTPStorage) do(ctx context.Context, method, uri string) (*http.Response, error) {
	if _, _, err := expectScheme(uri, "HTTP", "http", "https"); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := hs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	return resp, nil
}

// Get downloads a file
func (hs *HTTPStorage) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := hs.do(ctx, http.MethodGet, uri)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request failed with status %d", resp.StatusCode)
	}
}

// Put always fails
func (hs *HTTPStorage) Put(ctx context.Context, uri string, data io.Reader) error {
	return fmt.Errorf("%w: HTTP put %s", ErrReadOnly, uri)
}

// Delete always fails
func (hs *HTTPStorage) Delete(ctx context.Context, uri string) error {
	return fmt.Errorf("%w: HTTP delete %s", ErrReadOnly, uri)
}

// Exists sends a HEAD request
func (hs *HTTPStorage) Exists(ctx context.Context, uri string) (bool, error) {
	resp, err := hs.do(ctx, http.MethodHead, uri)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
