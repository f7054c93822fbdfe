package epub

import (
	"strings"

	"github.com/unalkalkan/NovelShelf/pkg/types"
)

// ExclusionPolicy lists case-insensitive substrings that mark navigation
// entries as non-content. An entry is dropped when its title or href
// contains any of them.
type ExclusionPolicy struct {
	Cover       []string
	Navigation  []string
	FrontMatter []string
	// Files names specific documents of specific books
	Files []string
}

// DefaultExclusionPolicy returns the built-in marker lists.
func DefaultExclusionPolicy() ExclusionPolicy {
	return ExclusionPolicy{
		Cover:       []string{"封面", "cover"},
		Navigation:  []string{"目录", "contents", "toc", "简介", "summary", "introduction"},
		FrontMatter: []string{"扉页", "版权", "title page", "titlepage", "copyright"},
		Files:       []string{},
	}
}

// NewExclusionPolicy merges configuration over the defaults. A nil group
// keeps its default list; an empty one disables the group.
func NewExclusionPolicy(cfg types.ExclusionConfig) ExclusionPolicy {
	p := DefaultExclusionPolicy()
	if cfg.Cover != nil {
		p.Cover = cfg.Cover
	}
	if cfg.Navigation != nil {
		p.Navigation = cfg.Navigation
	}
	if cfg.FrontMatter != nil {
		p.FrontMatter = cfg.FrontMatter
	}
	if cfg.Files != nil {
		p.Files = cfg.Files
	}
	return p
}

// Excludes reports whether an entry with the given title and href is non-content.
func (p ExclusionPolicy) Excludes(title, href string) bool {
	t := strings.ToLower(title)
	h := strings.ToLower(href)
	for _, group := range [][]string{p.Cover, p.Navigation, p.FrontMatter, p.Files} {
		for _, marker := range group {
			m := strings.ToLower(strings.TrimSpace(marker))
			if m == "" {
				continue
			}
			if strings.Contains(t, m) || strings.Contains(h, m) {
				return true
			}
		}
	}
	return false
}

// Filter returns the entries the policy keeps, in their original order.
func (p ExclusionPolicy) Filter(entries []types.ChapterEntry) []types.ChapterEntry {
	out := make([]types.ChapterEntry, 0, len(entries))
	for _, e := range entries {
		if !p.Excludes(e.Title, e.Href) {
			out = append(out, e)
		}
	}
	return out
}
