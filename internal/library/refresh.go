package library

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/unalkalkan/NovelShelf/internal/book"
	"github.com/unalkalkan/NovelShelf/internal/epub"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

// RefreshCatalog re-reads the archive behind every record that names one
// and stores its chapter count, filling descriptive fields the record leaves
// empty. Archives are processed concurrently; a failing archive is reported
// in the result and does not stop the others.
func (s *Service) RefreshCatalog(ctx context.Context, repo book.Repository) (*types.RefreshResult, error) {
	records, err := repo.ListNovels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list novels: %w", err)
	}

	var (
		mu     sync.Mutex
		result = &types.RefreshResult{Failed: []types.RefreshFailure{}}
	)
	fail := func(id string, err error) {
		s.logger.Warn("metadata refresh failed", "novel_id", id, "error", err)
		mu.Lock()
		result.Failed = append(result.Failed, types.RefreshFailure{ID: id, Error: err.Error()})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, rec := range records {
		if rec.EpubFile == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			patch, err := s.refreshPatch(gctx, rec)
			if err != nil {
				fail(rec.ID, err)
				return nil
			}
			if len(patch) == 0 {
				return nil
			}
			if _, err := repo.UpdateNovel(gctx, rec.ID, patch, &rec.Revision); err != nil {
				fail(rec.ID, err)
				return nil
			}
			mu.Lock()
			result.UpdatedCount++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].ID < result.Failed[j].ID })
	s.logger.Info("metadata refresh complete", "updated", result.UpdatedCount, "failed", len(result.Failed))
	return result, nil
}

// refreshPatch inspects the record's archive and returns the fields that
// would change.
func (s *Service) refreshPatch(ctx context.Context, rec *types.NovelRecord) (book.Patch, error) {
	c, filename, err := s.open(ctx, rec.EpubFile)
	if err != nil {
		return nil, err
	}
	summary, err := epub.Inspect(c, s.builder)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", filename, err)
	}

	patch := book.Patch{}
	set := func(key string, v any) {
		raw, _ := json.Marshal(v)
		patch[key] = raw
	}
	if n := len(summary.Chapters); n != rec.ChapterCount {
		set("chapterCount", n)
	}
	fill := []struct {
		key     string
		current string
		found   string
	}{
		{"title", rec.Title, summary.Metadata.Title},
		{"author", rec.Author, summary.Metadata.Author},
		{"description", rec.Description, summary.Metadata.Description},
		{"publisher", rec.Publisher, summary.Metadata.Publisher},
		{"publishDate", rec.PublishDate, summary.Metadata.PublishDate},
	}
	for _, f := range fill {
		if f.current == "" && f.found != "" {
			set(f.key, f.found)
		}
	}
	return patch, nil
}
