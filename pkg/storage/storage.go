// Package storage writes generated CAPTCHA artifacts to a local directory
// or an S3-compatible bucket behind one FileStore interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPath is returned for paths that are empty or escape the store
// root.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing. The file appears, replacing
	// any previous content, only once the returned writer is closed
	// without error.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// WriteFile writes data to path in store.
func WriteFile(ctx context.Context, store FileStore, path string, data []byte) error {
	w, err := store.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		if c, ok := w.(interface{ CloseWithError(error) error }); ok {
			c.CloseWithError(err)
		} else {
			w.Close()
		}
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the whole of path from store.
func ReadFile(ctx context.Context, store FileStore, path string) ([]byte, error) {
	r, err := store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// cleanPath validates a store-relative path.
func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, p)
		}
	}
	return p, nil
}
