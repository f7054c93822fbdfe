package book

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unalkalkan/NovelShelf/internal/storage"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

// JSONRepository keeps every record in one JSON document in a storage
// adapter. Writes are serialized by a mutex; each one rewrites the document.
type JSONRepository struct {
	mu      sync.Mutex
	storage storage.Adapter
	key     string
	now     func() time.Time
}

// NewJSONRepository creates a repository backed by the document at key
func NewJSONRepository(adapter storage.Adapter, key string) *JSONRepository {
	return &JSONRepository{
		storage: adapter,
		key:     key,
		now:     time.Now,
	}
}

// ListNovels returns all records. A missing document is an empty catalogue.
func (r *JSONRepository) ListNovels(ctx context.Context) ([]*types.NovelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Novels, nil
}

// GetNovel retrieves a record by ID
func (r *JSONRepository) GetNovel(ctx context.Context, id string) (*types.NovelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range doc.Novels {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNovelNotFound, id)
}

// UpdateNovel merges patch into the record and rewrites the document
func (r *JSONRepository) UpdateNovel(ctx context.Context, id string, patch Patch, expectedRevision *int) (*types.NovelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i, n := range doc.Novels {
		if n.ID != id {
			continue
		}
		updated, err := applyPatch(n, patch, expectedRevision, r.now())
		if err != nil {
			return nil, err
		}
		doc.Novels[i] = updated
		if err := r.save(ctx, doc); err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNovelNotFound, id)
}

// Close is a no-op; the storage adapter is owned by the caller
func (r *JSONRepository) Close() error {
	return nil
}

func (r *JSONRepository) load(ctx context.Context) (*types.MetadataDocument, error) {
	data, err := storage.ReadAll(ctx, r.storage, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		return &types.MetadataDocument{Novels: []*types.NovelRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata document: %w", err)
	}

	var doc types.MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata document: %w", err)
	}
	if doc.Novels == nil {
		doc.Novels = []*types.NovelRecord{}
	}
	return &doc, nil
}

func (r *JSONRepository) save(ctx context.Context, doc *types.MetadataDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata document: %w", err)
	}
	if err := r.storage.Put(ctx, r.key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write metadata document: %w", err)
	}
	return nil
}
