// Package epub extracts metadata, chapter indexes, chapter HTML and images
// from EPUB archives held in memory.
package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// DefaultMaxEntrySize is the largest decompressed entry a Container will read.
const DefaultMaxEntrySize int64 = 256 << 20

// Entry is one item of an archive listing.
type Entry struct {
	Path  string
	IsDir bool
}

// Container is an opened archive. It is read-only and meant to live for a
// single request.
type Container struct {
	entries      []Entry
	files        map[string]*zip.File
	maxEntrySize int64
}

// Option configures a Container.
type Option func(*Container)

// WithMaxEntrySize overrides the per-entry decompression limit.
func WithMaxEntrySize(limit int64) Option {
	return func(c *Container) {
		if limit > 0 {
			c.maxEntrySize = limit
		}
	}
}

// Open parses data as a zip archive.
func Open(data []byte, opts ...Option) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	c := &Container{
		files:        make(map[string]*zip.File, len(zr.File)),
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, f := range zr.File {
		// Entries that would escape the archive root are never exposed.
		if !isSafePath(f.Name) {
			continue
		}
		if _, dup := c.files[f.Name]; dup {
			continue
		}
		c.files[f.Name] = f
		c.entries = append(c.entries, Entry{
			Path:  f.Name,
			IsDir: strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
		})
	}

	return c, nil
}

// List returns the archive listing in central-directory order.
func (c *Container) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ReadBytes returns the raw content of the entry at name.
func (c *Container) ReadBytes(name string) ([]byte, error) {
	f, ok := c.files[name]
	if !ok || strings.HasSuffix(name, "/") || f.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return readZipFile(f, c.maxEntrySize)
}

// ReadText returns the entry at name decoded as UTF-8 text. A byte-order
// mark is dropped and documents in legacy encodings are transcoded using
// their declared charset.
func (c *Container) ReadText(name string) (string, error) {
	data, err := c.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrEntryTooLarge, f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size may be forged, so read one byte past the limit.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	return data, nil
}

// isSafePath reports whether p stays inside the archive root.
func isSafePath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	cleaned := path.Clean(p)
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

var declaredCharset = regexp.MustCompile(`(?i)(?:encoding|charset)\s*=\s*["']?([a-z0-9_\-:.]+)`)

func decodeText(data []byte) string {
	data = stripBOM(data)
	if utf8.Valid(data) {
		return string(data)
	}

	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}

	var r io.Reader
	if m := declaredCharset.FindSubmatch(head); m != nil {
		if dr, err := charset.NewReaderLabel(string(m[1]), bytes.NewReader(data)); err == nil {
			r = dr
		}
	}
	if r == nil {
		dr, err := charset.NewReader(bytes.NewReader(data), "text/html")
		if err != nil {
			return string(data)
		}
		r = dr
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
