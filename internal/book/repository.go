package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unalkalkan/NovelShelf/internal/storage"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var (
	// ErrNovelNotFound is returned when no record has the requested id
	ErrNovelNotFound = errors.New("book: novel not found")

	// ErrRevisionConflict is returned when an update names a stale revision
	ErrRevisionConflict = errors.New("book: revision conflict")

	// ErrInvalidPatch is returned when a patch does not fit the record shape
	ErrInvalidPatch = errors.New("book: invalid patch")
)

// Repository handles novel metadata persistence
type Repository interface {
	// ListNovels returns every record in catalogue order
	ListNovels(ctx context.Context) ([]*types.NovelRecord, error)

	// GetNovel retrieves a record by ID
	GetNovel(ctx context.Context, id string) (*types.NovelRecord, error)

	// UpdateNovel merges patch into the record. When expectedRevision is
	// non-nil it must equal the stored revision.
	UpdateNovel(ctx context.Context, id string, patch Patch, expectedRevision *int) (*types.NovelRecord, error)

	// Close releases the backend
	Close() error
}

// Patch is a shallow JSON merge: each key replaces the record field of the
// same JSON name. Keys with no field are kept in the record's Extra.
type Patch map[string]json.RawMessage

// protectedKeys are owned by the store and never taken from a patch
var protectedKeys = map[string]bool{"id": true, "revision": true, "updatedAt": true}

// Revision returns the "revision" key of the patch, if present.
func (p Patch) Revision() (*int, error) {
	raw, ok := p["revision"]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var rev int
	if err := json.Unmarshal(raw, &rev); err != nil {
		return nil, fmt.Errorf("%w: revision must be an integer", ErrInvalidPatch)
	}
	return &rev, nil
}

// applyPatch returns a copy of rec with patch merged in, the revision bumped
// and the update time set.
func applyPatch(rec *types.NovelRecord, patch Patch, expectedRevision *int, now time.Time) (*types.NovelRecord, error) {
	if expectedRevision != nil && *expectedRevision != rec.Revision {
		return nil, fmt.Errorf("%w: have %d, got %d", ErrRevisionConflict, rec.Revision, *expectedRevision)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	for k, v := range patch {
		if protectedKeys[k] {
			continue
		}
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	var out types.NovelRecord
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	out.ID = rec.ID
	out.Revision = rec.Revision + 1
	updatedAt := now.UTC()
	out.UpdatedAt = &updatedAt
	return &out, nil
}

// NewRepository creates the metadata store selected by cfg. The SQLite
// backend is seeded from the JSON document in storage when its table is empty.
func NewRepository(ctx context.Context, cfg types.MetadataConfig, adapter storage.Adapter) (Repository, error) {
	switch cfg.Backend {
	case "", "json":
		return NewJSONRepository(adapter, cfg.Key), nil
	case "sqlite":
		repo, err := NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		seed, err := NewJSONRepository(adapter, cfg.Key).ListNovels(ctx)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to read seed document: %w", err)
		}
		if _, err := repo.Seed(ctx, seed); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported metadata backend: %s", cfg.Backend)
	}
}
