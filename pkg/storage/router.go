package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Router dispatches each call to the backend registered for the URI scheme
type Router struct {
	mu       sync.RWMutex
	backends map[string]Storage
}

// NewRouter creates a router with no backends
func NewRouter() *Router {
	return &Router{backends: make(map[string]Storage)}
}

// Register serves every given scheme with s, replacing earlier backends
func (r *Router) Register(s Storage, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scheme := range schemes {
		r.backends[scheme] = s
	}
}

// Backend returns the storage serving uri
func (r *Router) Backend(uri string) (Storage, error) {
	scheme, _, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	s, ok := r.backends[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no backend for %s://", ErrUnsupportedScheme, scheme)
	}
	return s, nil
}

// Get reads from the backend serving uri
func (r *Router) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	s, err := r.Backend(uri)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, uri)
}

// Put writes through the backend serving uri
func (r *Router) Put(ctx context.Context, uri string, data io.Reader) error {
	s, err := r.Backend(uri)
	if err != nil {
		return err
	}
	return s.Put(ctx, uri, data)
}

// Delete removes through the backend serving uri
func (r *Router) Delete(ctx context.Context, uri string) error {
	s, err := r.Backend(uri)
	if err != nil {
		return err
	}
	return s.Delete(ctx, uri)
}

// Exists checks through the backend serving uri
func (r *Router) Exists(ctx context.Context, uri string) (bool, error) {
	s, err := r.Backend(uri)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, uri)
}
