// Package novels serves the built-in, read-only novel catalogue.
package novels

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var (
	// ErrNovelNotFound is returned for unknown or non-numeric novel ids
	ErrNovelNotFound = errors.New("novels: novel not found")

	// ErrChapterNotFound is returned for unknown or non-numeric chapter ids
	ErrChapterNotFound = errors.New("novels: chapter not found")
)

// Catalog is a read-only set of novels
type Catalog interface {
	// List returns a summary of every novel
	List() []types.NovelSummary

	// Get returns the full novel, chapters included
	Get(id string) (*types.Novel, error)

	// Chapters returns the chapter list of a novel
	Chapters(id string) ([]types.NovelChapterRef, error)

	// Chapter returns one chapter's content
	Chapter(id, chapterID string) (*types.NovelChapterContent, error)
}

// StaticCatalog is a Catalog over a fixed slice of novels
type StaticCatalog struct {
	novels []types.Novel
}

// NewStaticCatalog creates a catalogue over novels
func NewStaticCatalog(novels []types.Novel) *StaticCatalog {
	return &StaticCatalog{novels: novels}
}

// NewBuiltinCatalog returns the catalogue shipped with the server
func NewBuiltinCatalog() *StaticCatalog {
	return NewStaticCatalog(builtinNovels())
}

// List returns a summary of every novel
func (c *StaticCatalog) List() []types.NovelSummary {
	out := make([]types.NovelSummary, 0, len(c.novels))
	for _, n := range c.novels {
		out = append(out, types.NovelSummary{
			ID:            n.ID,
			Title:         n.Title,
			OriginalTitle: n.OriginalTitle,
			Author:        n.Author,
			Description:   n.Description,
			CoverImage:    n.CoverImage,
			PublishDate:   n.PublishDate,
			ChapterCount:  len(n.Chapters),
		})
	}
	return out
}

// Get returns the full novel
func (c *StaticCatalog) Get(id string) (*types.Novel, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNovelNotFound, id)
	}
	for i := range c.novels {
		if c.novels[i].ID == n {
			novel := c.novels[i]
			return &novel, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNovelNotFound, n)
}

// Chapters returns the chapter list of a novel
func (c *StaticCatalog) Chapters(id string) ([]types.NovelChapterRef, error) {
	novel, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	refs := make([]types.NovelChapterRef, 0, len(novel.Chapters))
	for _, ch := range novel.Chapters {
		refs = append(refs, types.NovelChapterRef{ID: ch.ID, Title: ch.Title})
	}
	return refs, nil
}

// Chapter returns one chapter's content
func (c *StaticCatalog) Chapter(id, chapterID string) (*types.NovelChapterContent, error) {
	novel, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	cid, err := strconv.Atoi(chapterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrChapterNotFound, chapterID)
	}
	for _, ch := range novel.Chapters {
		if ch.ID == cid {
			return &types.NovelChapterContent{
				NovelID:    novel.ID,
				NovelTitle: novel.Title,
				Chapter:    ch,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrChapterNotFound, cid)
}
