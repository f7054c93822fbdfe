package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist in the backend
var ErrNotFound = errors.New("storage: object not found")

// Adapter defines the interface for storage backends.
// Keys are slash-separated regardless of the backend.
type Adapter interface {
	// Put stores data at the given key, replacing any previous object
	Put(ctx context.Context, key string, data io.Reader) error

	// Get retrieves data from the given key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns object metadata without reading the body
	Stat(ctx context.Context, key string) (Metadata, error)

	// Exists checks if data exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns keys matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// Metadata represents object metadata
type Metadata struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// ReadAll fetches the whole object at key
func ReadAll(ctx context.Context, a Adapter, key string) ([]byte, error) {
	rc, err := a.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// CleanKey normalizes a key to a slash-separated path without leading
// slashes or parent-directory segments.
func CleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
