package epub

import (
	"fmt"

	"github.com/unalkalkan/NovelShelf/pkg/types"
)

// Summary is what an archive says about itself.
type Summary struct {
	PackagePath    string
	NavigationPath string
	Metadata       types.Metadata
	Chapters       []types.ChapterEntry
	// FromManifest is set when the chapter list was derived from the manifest
	FromManifest bool
}

// Inspect locates the package description and navigation document, then
// extracts metadata and the chapter index. A missing or unreadable
// navigation document falls back to the manifest.
func Inspect(c *Container, b *IndexBuilder) (*Summary, error) {
	entries := c.List()

	opfPath, ok := FindPackageDescription(entries)
	if !ok {
		return nil, ErrDescriptionNotFound
	}
	opf, err := c.ReadText(opfPath)
	if err != nil {
		return nil, fmt.Errorf("read package description: %w", err)
	}

	s := &Summary{
		PackagePath: opfPath,
		Metadata:    ExtractMetadata(opf),
	}

	if navPath, ok := FindNavigationDocument(entries); ok {
		s.NavigationPath = navPath
		if nav, err := c.ReadText(navPath); err == nil {
			s.Chapters = b.Build(nav)
		}
	}
	if len(s.Chapters) == 0 {
		s.Chapters = b.BuildFromManifest(opf)
		s.FromManifest = true
	}
	if s.Chapters == nil {
		s.Chapters = []types.ChapterEntry{}
	}

	return s, nil
}
