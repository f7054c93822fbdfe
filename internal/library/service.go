// Package library connects stored EPUB archives to the extraction pipeline
// and to the novel metadata store.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/unalkalkan/NovelShelf/internal/epub"
	"github.com/unalkalkan/NovelShelf/internal/storage"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var (
	// ErrArchiveNotFound is returned when no archive is stored under an id
	ErrArchiveNotFound = errors.New("library: archive not found")

	// ErrInvalidArchiveID is returned for ids that could escape the archive prefix
	ErrInvalidArchiveID = errors.New("library: invalid archive id")

	// ErrFileNotFound is returned when a raw static file does not exist
	ErrFileNotFound = errors.New("library: file not found")
)

const epubExt = ".epub"

// Options configures a Service
type Options struct {
	EpubPrefix         string
	CoverPrefix        string
	PublicPrefix       string
	MaxEntrySize       int64
	Exclusion          epub.ExclusionPolicy
	RefreshConcurrency int
	Logger             *slog.Logger
}

// OptionsFromConfig derives service options from the loaded configuration
func OptionsFromConfig(cfg *types.Config) Options {
	return Options{
		EpubPrefix:         cfg.Storage.EpubPrefix,
		CoverPrefix:        cfg.Storage.CoverPrefix,
		PublicPrefix:       cfg.Storage.PublicPrefix,
		MaxEntrySize:       cfg.Epub.MaxEntrySize,
		Exclusion:          epub.NewExclusionPolicy(cfg.Epub.Exclusion),
		RefreshConcurrency: cfg.Metadata.RefreshConcurrency,
	}
}

// Service reads archives from storage and runs them through the epub
// package. Every call opens its own Container; nothing is cached.
type Service struct {
	storage      storage.Adapter
	builder      *epub.IndexBuilder
	epubPrefix   string
	coverPrefix  string
	publicPrefix string
	openOpts     []epub.Option
	concurrency  int
	logger       *slog.Logger
}

// NewService creates a library service over adapter
func NewService(adapter storage.Adapter, opts Options) *Service {
	if opts.EpubPrefix == "" {
		opts.EpubPrefix = "epub"
	}
	if opts.CoverPrefix == "" {
		opts.CoverPrefix = "cover"
	}
	if opts.PublicPrefix == "" {
		opts.PublicPrefix = "public"
	}
	if opts.RefreshConcurrency <= 0 {
		opts.RefreshConcurrency = 4
	}
	if opts.Exclusion.Cover == nil && opts.Exclusion.Navigation == nil &&
		opts.Exclusion.FrontMatter == nil && opts.Exclusion.Files == nil {
		opts.Exclusion = epub.DefaultExclusionPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		storage:      adapter,
		builder:      epub.NewIndexBuilder(opts.Exclusion),
		epubPrefix:   strings.Trim(opts.EpubPrefix, "/"),
		coverPrefix:  strings.Trim(opts.CoverPrefix, "/"),
		publicPrefix: strings.Trim(opts.PublicPrefix, "/"),
		concurrency:  opts.RefreshConcurrency,
		logger:       logger,
	}
	if opts.MaxEntrySize > 0 {
		s.openOpts = append(s.openOpts, epub.WithMaxEntrySize(opts.MaxEntrySize))
	}
	return s
}

// ArchiveFilename maps an archive id, with or without its extension, to
// the stored file name.
func ArchiveFilename(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchiveID, id)
	}
	name := strings.TrimSuffix(id, epubExt)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchiveID, id)
	}
	return name + epubExt, nil
}

// ListArchives returns the archives stored directly under the epub prefix
func (s *Service) ListArchives(ctx context.Context) ([]types.ArchiveInfo, error) {
	keys, err := s.storage.List(ctx, s.epubPrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	archives := make([]types.ArchiveInfo, 0, len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, s.epubPrefix+"/")
		if strings.Contains(rel, "/") || !strings.HasSuffix(rel, epubExt) {
			continue
		}
		id := strings.TrimSuffix(rel, epubExt)
		archives = append(archives, types.ArchiveInfo{
			ID:       id,
			Filename: rel,
			Title:    id,
			Path:     "/epub/" + rel,
		})
	}
	return archives, nil
}

// open fetches and opens the archive named by id
func (s *Service) open(ctx context.Context, id string) (*epub.Container, string, error) {
	filename, err := ArchiveFilename(id)
	if err != nil {
		return nil, "", err
	}

	data, err := storage.ReadAll(ctx, s.storage, path.Join(s.epubPrefix, filename))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: %s", ErrArchiveNotFound, filename)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read archive %s: %w", filename, err)
	}

	c, err := epub.Open(data, s.openOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", filename, err)
	}
	return c, filename, nil
}

// Metadata returns an archive's descriptive metadata and chapter index
func (s *Service) Metadata(ctx context.Context, id string) (*types.ArchiveMetadata, error) {
	c, filename, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := epub.Inspect(c, s.builder)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", filename, err)
	}
	return &types.ArchiveMetadata{
		Metadata: summary.Metadata,
		Chapters: summary.Chapters,
		Filename: filename,
		Path:     "/epub/" + filename,
	}, nil
}

// Chapter renders one chapter with image references pointing at imageBase
func (s *Service) Chapter(ctx context.Context, id, href, imageBase string) (*types.ChapterContent, error) {
	c, filename, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := epub.RenderChapter(c, href, imageBase)
	if err != nil {
		return nil, err
	}
	return &types.ChapterContent{
		Content:     content,
		Filename:    filename,
		ChapterHref: href,
	}, nil
}

// Image resolves an image request against an archive
func (s *Service) Image(ctx context.Context, id, name string) (epub.Asset, error) {
	c, _, err := s.open(ctx, id)
	if err != nil {
		return epub.Asset{}, err
	}
	return epub.ResolveAsset(c, name)
}

// StaticDir names a directory of raw files served as-is
type StaticDir int

const (
	EpubFiles StaticDir = iota
	CoverFiles
	// PublicFiles is the front-end tree; names may contain subdirectories.
	PublicFiles
)

// StaticFile reads a raw file from one of the static directories
func (s *Service) StaticFile(ctx context.Context, dir StaticDir, name string) ([]byte, storage.Metadata, error) {
	if !validStaticName(dir, name) {
		return nil, storage.Metadata{}, fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	prefix := s.epubPrefix
	switch dir {
	case CoverFiles:
		prefix = s.coverPrefix
	case PublicFiles:
		prefix = s.publicPrefix
	}
	key := path.Join(prefix, name)

	meta, err := s.storage.Stat(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.Metadata{}, fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	if err != nil {
		return nil, storage.Metadata{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	data, err := storage.ReadAll(ctx, s.storage, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.Metadata{}, fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	if err != nil {
		return nil, storage.Metadata{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, meta, nil
}

func validStaticName(dir StaticDir, name string) bool {
	if name == "" || strings.Contains(name, "\\") {
		return false
	}
	if dir != PublicFiles {
		return !strings.Contains(name, "/") && !strings.Contains(name, "..")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// CheckStorage verifies the archive prefix can be listed
func (s *Service) CheckStorage(ctx context.Context) error {
	if _, err := s.storage.List(ctx, s.epubPrefix+"/"); err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}
	return nil
}
