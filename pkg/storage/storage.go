// Package storage reads pattern files and writes compilation artifacts
// through URI-addressed backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
)

// AllowedSchemes lists the URI schemes a spec may reference
var AllowedSchemes = []string{"https", "http", "s3", "file"}

var (
	// ErrNotFound is returned when the object behind a URI does not exist
	ErrNotFound = errors.New("object not found")

	// ErrReadOnly is returned by writes to a read-only backend
	ErrReadOnly = errors.New("storage is read-only")

	// ErrUnsupportedScheme is returned when no backend serves a scheme
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
)

// Storage is the interface for all storage backends
type Storage interface {
	// Get opens the object at uri for reading
	Get(ctx context.Context, uri string) (io.ReadCloser, error)

	// Put stores data at uri, replacing any existing object
	Put(ctx context.Context, uri string, data io.Reader) error

	// Delete removes the object at uri; a missing object is not an error
	Delete(ctx context.Context, uri string) error

	// Exists reports whether an object exists at uri
	Exists(ctx context.Context, uri string) (bool, error)
}

// ParseURI splits uri into its scheme and location. file:// URIs yield the
// filesystem path; other schemes yield host and path joined.
func ParseURI(uri string) (scheme string, path string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("URI cannot be empty")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid URI: %w", err)
	}
	if parsed.Scheme == "" {
		return "", "", fmt.Errorf("URI must have a scheme (e.g., https://, s3://)")
	}

	if parsed.Scheme == "file" {
		return parsed.Scheme, parsed.Path, nil
	}
	return parsed.Scheme, parsed.Host + parsed.Path, nil
}

// IsAllowedScheme checks if a URI scheme is in the whitelist
func IsAllowedScheme(scheme string) bool {
	return slices.Contains(AllowedSchemes, scheme)
}

// expectScheme parses uri and fails unless its scheme is one of want
func expectScheme(uri, backend string, want ...string) (string, string, error) {
	scheme, path, err := ParseURI(uri)
	if err != nil {
		return "", "", err
	}
	if !slices.Contains(want, scheme) {
		return "", "", fmt.Errorf("%w: %s storage does not serve %s://", ErrUnsupportedScheme, backend, scheme)
	}
	return scheme, path, nil
}
