package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage serves file:// URIs. Writes go to a temporary file in the
// target directory and are renamed into place.
type LocalStorage struct {
	dirMode fs.FileMode
}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{dirMode: 0o755}
}

// Get opens a local file
func (ls *LocalStorage) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	_, path, err := expectScheme(uri, "local", "file")
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Put writes data to a local file, creating parent directories
func (ls *LocalStorage) Put(ctx context.Context, uri string, data io.Reader) error {
	_, path, err := expectScheme(uri, "local", "file")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ls.dirMode); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Delete removes a local file
func (ls *LocalStorage) Delete(ctx context.Context, uri string) error {
	_, path, err := expectScheme(uri, "local", "file")
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a local file exists
func (ls *LocalStorage) Exists(ctx context.Context, uri string) (bool, error) {
	_, path, err := expectScheme(uri, "local", "file")
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
