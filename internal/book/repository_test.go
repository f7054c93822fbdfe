package book

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unalkalkan/NovelShelf/internal/storage"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var fixedNow = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func seedRecords() []*types.NovelRecord {
	return []*types.NovelRecord{
		{ID: "your-name", Title: "你的名字", Author: "新海诚", EpubFile: "your-name.epub",
			Extra: map[string]json.RawMessage{"tags": json.RawMessage(`["x"]`), "status": json.RawMessage(`"完结"`)}},
		{ID: "5cm", Title: "秒速5厘米", Author: "新海诚", EpubFile: "5cm.epub", ChapterCount: 3,
			Extra: map[string]json.RawMessage{"rating": json.RawMessage(`4.5`)}},
	}
}

// extraValue decodes one extra key of rec, or returns nil when it is absent
func extraValue(t *testing.T, rec *types.NovelRecord, key string) any {
	t.Helper()
	raw, ok := rec.Extra[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Failed to decode extra %s: %v", key, err)
	}
	return v
}

func putDocument(t *testing.T, adapter storage.Adapter, key string, records []*types.NovelRecord) {
	t.Helper()
	data, err := json.Marshal(types.MetadataDocument{Novels: records})
	if err != nil {
		t.Fatalf("Failed to marshal document: %v", err)
	}
	if err := adapter.Put(context.Background(), key, bytes.NewReader(data)); err != nil {
		t.Fatalf("Failed to put document: %v", err)
	}
}

func newJSONRepo(t *testing.T) Repository {
	adapter := storage.NewMemoryAdapter()
	putDocument(t, adapter, "metadata/novelMetadata.json", seedRecords())
	repo := NewJSONRepository(adapter, "metadata/novelMetadata.json")
	repo.now = func() time.Time { return fixedNow }
	return repo
}

func newSQLiteRepo(t *testing.T) Repository {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "metadata.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	repo.now = func() time.Time { return fixedNow }
	if _, err := repo.Seed(context.Background(), seedRecords()); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	return repo
}

func rawPatch(t *testing.T, v map[string]any) Patch {
	t.Helper()
	p := make(Patch, len(v))
	for k, val := range v {
		raw, err := json.Marshal(val)
		if err != nil {
			t.Fatalf("Failed to marshal patch value: %v", err)
		}
		p[k] = raw
	}
	return p
}

func TestRepositories(t *testing.T) {
	backends := map[string]func(*testing.T) Repository{
		"json":   newJSONRepo,
		"sqlite": newSQLiteRepo,
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			exerciseRepository(t, open)
		})
	}
}

func exerciseRepository(t *testing.T, open func(*testing.T) Repository) {
	ctx := context.Background()

	t.Run("ListNovels", func(t *testing.T) {
		repo := open(t)
		novels, err := repo.ListNovels(ctx)
		if err != nil {
			t.Fatalf("Failed to list novels: %v", err)
		}
		if len(novels) != 2 {
			t.Fatalf("Expected 2 novels, got %d", len(novels))
		}
		if novels[0].ID != "your-name" || novels[1].ID != "5cm" {
			t.Errorf("Expected seed order, got %s, %s", novels[0].ID, novels[1].ID)
		}
	})

	t.Run("GetNovel", func(t *testing.T) {
		repo := open(t)
		n, err := repo.GetNovel(ctx, "5cm")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if n.Title != "秒速5厘米" || n.ChapterCount != 3 {
			t.Errorf("Unexpected record: %+v", n)
		}

		if _, err := repo.GetNovel(ctx, "missing"); !errors.Is(err, ErrNovelNotFound) {
			t.Errorf("Expected ErrNovelNotFound, got %v", err)
		}
	})

	t.Run("UpdateNovelMerges", func(t *testing.T) {
		repo := open(t)
		patch := rawPatch(t, map[string]any{
			"description": "A new summary",
			"id":          "hijacked",
			"revision":    99,
		})
		updated, err := repo.UpdateNovel(ctx, "your-name", patch, nil)
		if err != nil {
			t.Fatalf("Failed to update novel: %v", err)
		}
		if updated.ID != "your-name" {
			t.Errorf("Expected id to be kept, got %s", updated.ID)
		}
		if updated.Description != "A new summary" || updated.Title != "你的名字" {
			t.Errorf("Unexpected merge result: %+v", updated)
		}
		if updated.Revision != 1 {
			t.Errorf("Expected revision 1, got %d", updated.Revision)
		}
		if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(fixedNow) {
			t.Errorf("Expected updatedAt %v, got %v", fixedNow, updated.UpdatedAt)
		}

		stored, err := repo.GetNovel(ctx, "your-name")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if stored.Description != "A new summary" || stored.Revision != 1 {
			t.Errorf("Update not persisted: %+v", stored)
		}
		if _, err := repo.GetNovel(ctx, "hijacked"); !errors.Is(err, ErrNovelNotFound) {
			t.Errorf("Expected the id key to be ignored, got %v", err)
		}
	})

	t.Run("UpdateNovelKeepsExtraFields", func(t *testing.T) {
		repo := open(t)
		patch := rawPatch(t, map[string]any{"title": "A2", "tags": []string{"y"}})
		updated, err := repo.UpdateNovel(ctx, "your-name", patch, nil)
		if err != nil {
			t.Fatalf("Failed to update novel: %v", err)
		}
		if got := fmt.Sprint(extraValue(t, updated, "tags")); got != "[y]" {
			t.Errorf("Expected patched tags [y], got %s", got)
		}

		first, err := repo.GetNovel(ctx, "your-name")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if first.Title != "A2" || extraValue(t, first, "status") != "完结" {
			t.Errorf("Expected title A2 with status kept, got %+v", first)
		}

		other, err := repo.GetNovel(ctx, "5cm")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if extraValue(t, other, "rating") != 4.5 {
			t.Errorf("Expected untouched record to keep rating, got %+v", other.Extra)
		}
		if other.UpdatedAt != nil {
			t.Errorf("Expected untouched record to have no updatedAt, got %v", other.UpdatedAt)
		}
	})

	t.Run("UpdateNovelRevisionCheck", func(t *testing.T) {
		repo := open(t)
		zero, stale := 0, 0
		if _, err := repo.UpdateNovel(ctx, "5cm", rawPatch(t, map[string]any{"title": "A"}), &zero); err != nil {
			t.Fatalf("Failed to update at current revision: %v", err)
		}
		_, err := repo.UpdateNovel(ctx, "5cm", rawPatch(t, map[string]any{"title": "B"}), &stale)
		if !errors.Is(err, ErrRevisionConflict) {
			t.Fatalf("Expected ErrRevisionConflict, got %v", err)
		}

		n, err := repo.GetNovel(ctx, "5cm")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if n.Title != "A" || n.Revision != 1 {
			t.Errorf("Expected rejected write to leave title A at revision 1, got %q at %d", n.Title, n.Revision)
		}
	})

	t.Run("UpdateNovelInvalidPatch", func(t *testing.T) {
		repo := open(t)
		_, err := repo.UpdateNovel(ctx, "5cm", rawPatch(t, map[string]any{"chapterCount": "many"}), nil)
		if !errors.Is(err, ErrInvalidPatch) {
			t.Errorf("Expected ErrInvalidPatch, got %v", err)
		}
	})

	t.Run("UpdateNovelNotFound", func(t *testing.T) {
		repo := open(t)
		_, err := repo.UpdateNovel(ctx, "missing", Patch{}, nil)
		if !errors.Is(err, ErrNovelNotFound) {
			t.Errorf("Expected ErrNovelNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		repo := open(t)
		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.UpdateNovel(ctx, "5cm", Patch{"publisher": json.RawMessage(`"P"`)}, nil); err != nil {
					t.Errorf("Concurrent update failed: %v", err)
				}
			}()
		}
		wg.Wait()

		n, err := repo.GetNovel(ctx, "5cm")
		if err != nil {
			t.Fatalf("Failed to get novel: %v", err)
		}
		if n.Revision != writers {
			t.Errorf("Expected revision %d, got %d", writers, n.Revision)
		}
	})
}

func TestJSONRepositoryMissingDocument(t *testing.T) {
	repo := NewJSONRepository(storage.NewMemoryAdapter(), "metadata/none.json")
	novels, err := repo.ListNovels(context.Background())
	if err != nil {
		t.Fatalf("Failed to list novels: %v", err)
	}
	if novels == nil || len(novels) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", novels)
	}
}

func TestJSONRepositoryWritesDocument(t *testing.T) {
	ctx := context.Background()
	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	defer adapter.Close()

	putDocument(t, adapter, "metadata/novelMetadata.json", seedRecords())
	repo := NewJSONRepository(adapter, "metadata/novelMetadata.json")
	if _, err := repo.UpdateNovel(ctx, "5cm", Patch{"chapterCount": json.RawMessage(`7`)}, nil); err != nil {
		t.Fatalf("Failed to update novel: %v", err)
	}

	// A fresh repository over the same storage sees the write
	reopened := NewJSONRepository(adapter, "metadata/novelMetadata.json")
	n, err := reopened.GetNovel(ctx, "5cm")
	if err != nil {
		t.Fatalf("Failed to get novel: %v", err)
	}
	if n.ChapterCount != 7 {
		t.Errorf("Expected chapterCount 7, got %d", n.ChapterCount)
	}

	data, err := storage.ReadAll(ctx, adapter, "metadata/novelMetadata.json")
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}
	var doc struct {
		Novels []map[string]any `json:"novels"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to decode document: %v", err)
	}
	untouched := doc.Novels[0]
	if untouched["status"] != "完结" || fmt.Sprint(untouched["tags"]) != "[x]" {
		t.Errorf("Expected unknown keys of the untouched record to survive, got %v", untouched)
	}
	if _, ok := untouched["updatedAt"]; ok {
		t.Errorf("Expected no updatedAt on the untouched record, got %v", untouched["updatedAt"])
	}
	if doc.Novels[1]["rating"] != 4.5 {
		t.Errorf("Expected rating to survive the update, got %v", doc.Novels[1])
	}
	if strings.Contains(string(data), "0001-01-01") {
		t.Errorf("Expected no zero timestamps in the document:\n%s", data)
	}
}

func TestJSONRepositoryCorruptDocument(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	if err := adapter.Put(context.Background(), "m.json", bytes.NewReader([]byte("{not json"))); err != nil {
		t.Fatalf("Failed to put document: %v", err)
	}
	repo := NewJSONRepository(adapter, "m.json")
	if _, err := repo.ListNovels(context.Background()); err == nil {
		t.Error("Expected an error for a corrupt document")
	}
}

func TestSQLiteSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite repository: %v", err)
	}
	defer repo.Close()

	n, err := repo.Seed(ctx, seedRecords())
	if err != nil || n != 2 {
		t.Fatalf("Expected 2 seeded records, got %d (%v)", n, err)
	}
	n, err = repo.Seed(ctx, []*types.NovelRecord{{ID: "other"}})
	if err != nil || n != 0 {
		t.Fatalf("Expected second seed to be skipped, got %d (%v)", n, err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRepository(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	putDocument(t, adapter, "metadata/novelMetadata.json", seedRecords())

	t.Run("json", func(t *testing.T) {
		repo, err := NewRepository(ctx, types.MetadataConfig{Backend: "json", Key: "metadata/novelMetadata.json"}, adapter)
		if err != nil {
			t.Fatalf("Failed to create repository: %v", err)
		}
		if _, ok := repo.(*JSONRepository); !ok {
			t.Errorf("Expected *JSONRepository, got %T", repo)
		}
	})

	t.Run("sqlite seeded from document", func(t *testing.T) {
		cfg := types.MetadataConfig{
			Backend:    "sqlite",
			Key:        "metadata/novelMetadata.json",
			SQLitePath: filepath.Join(t.TempDir(), "metadata.db"),
		}
		repo, err := NewRepository(ctx, cfg, adapter)
		if err != nil {
			t.Fatalf("Failed to create repository: %v", err)
		}
		defer repo.Close()

		novels, err := repo.ListNovels(ctx)
		if err != nil {
			t.Fatalf("Failed to list novels: %v", err)
		}
		if len(novels) != 2 {
			t.Errorf("Expected 2 seeded novels, got %d", len(novels))
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := NewRepository(ctx, types.MetadataConfig{Backend: "redis"}, adapter); err == nil {
			t.Error("Expected an error for an unknown backend")
		}
	})
}

func TestPatchRevision(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		want    *int
		wantErr bool
	}{
		{"absent", Patch{}, nil, false},
		{"null", Patch{"revision": json.RawMessage(`null`)}, nil, false},
		{"number", Patch{"revision": json.RawMessage(`3`)}, intPtr(3), false},
		{"string", Patch{"revision": json.RawMessage(`"3"`)}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.patch.Revision()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Revision() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Revision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
