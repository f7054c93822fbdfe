package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryAdapter keeps objects in process memory. Nothing survives a restart.
type MemoryAdapter struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data    []byte
	modTime time.Time
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{objects: make(map[string]memoryObject)}
}

// Put stores a copy of data at the given key
func (m *MemoryAdapter) Put(ctx context.Context, key string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	m.mu.Lock()
	m.objects[CleanKey(key)] = memoryObject{data: buf, modTime: time.Now()}
	m.mu.Unlock()
	return nil
}

// Get retrieves data from the given key
func (m *MemoryAdapter) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[CleanKey(key)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Stat returns object metadata
func (m *MemoryAdapter) Stat(ctx context.Context, key string) (Metadata, error) {
	k := CleanKey(key)
	m.mu.RLock()
	obj, ok := m.objects[k]
	m.mu.RUnlock()
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return Metadata{
		Key:          k,
		Size:         int64(len(obj.data)),
		LastModified: obj.modTime,
		ContentType:  mime.TypeByExtension(path.Ext(k)),
	}, nil
}

// Exists checks if data exists at the given key
func (m *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.objects[CleanKey(key)]
	m.mu.RUnlock()
	return ok, nil
}

// List returns keys matching the given prefix, sorted
func (m *MemoryAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close cleans up any resources
func (m *MemoryAdapter) Close() error {
	return nil
}
