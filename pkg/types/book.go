package types

import (
	"encoding/json"
	"time"
)

// Metadata holds the descriptive fields scraped from an EPUB package document.
// Every field is an empty string when the source tag is missing.
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Publisher   string `json:"publisher"`
	PublishDate string `json:"publishDate"`
}

// ChapterEntry is one entry of an archive's chapter index
type ChapterEntry struct {
	ID    string `json:"id"`
	Order *int   `json:"order"` // nil when the navigation attribute is missing or not numeric
	Title string `json:"title"`
	Href  string `json:"href"` // archive-relative path, may carry a #anchor
}

// ArchiveInfo describes an EPUB archive available for reading
type ArchiveInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Path     string `json:"path"`
}

// ArchiveMetadata is the metadata endpoint payload
type ArchiveMetadata struct {
	Metadata Metadata       `json:"metadata"`
	Chapters []ChapterEntry `json:"chapters"`
	Filename string         `json:"filename"`
	Path     string         `json:"path"`
}

// ChapterContent is the chapter endpoint payload
type ChapterContent struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	ChapterHref string `json:"chapterHref"`
}

// Novel is an entry of the built-in novel catalogue
type Novel struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	OriginalTitle string         `json:"originalTitle"`
	Author        string         `json:"author"`
	Description   string         `json:"description"`
	CoverImage    string         `json:"coverImage"`
	PublishDate   string         `json:"publishDate"`
	Chapters      []NovelChapter `json:"chapters"`
}

// NovelChapter is a chapter of a catalogue novel
type NovelChapter struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NovelSummary is the list view of a catalogue novel
type NovelSummary struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"originalTitle"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	CoverImage    string `json:"coverImage"`
	PublishDate   string `json:"publishDate"`
	ChapterCount  int    `json:"chapterCount"`
}

// NovelRecord is a novel's entry in the metadata store
type NovelRecord struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	OriginalTitle string     `json:"originalTitle,omitempty"`
	Author        string     `json:"author"`
	Description   string     `json:"description"`
	CoverImage    string     `json:"coverImage,omitempty"`
	PublishDate   string     `json:"publishDate,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	EpubFile      string     `json:"epubFile,omitempty"`
	ChapterCount  int        `json:"chapterCount"`
	Revision      int        `json:"revision"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"` // nil until the first update

	// Extra holds keys of the stored document that have no field above.
	// They are written back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// novelRecordFields has the fields of NovelRecord without its JSON methods
type novelRecordFields NovelRecord

// recordKeys are the JSON names NovelRecord maps to fields
var recordKeys = map[string]bool{
	"id": true, "title": true, "originalTitle": true, "author": true,
	"description": true, "coverImage": true, "publishDate": true, "publisher": true,
	"epubFile": true, "chapterCount": true, "revision": true, "updatedAt": true,
}

// MarshalJSON writes the record fields followed by its extra keys
func (n NovelRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(novelRecordFields(n))
	if err != nil || len(n.Extra) == 0 {
		return base, err
	}
	fields := make(map[string]json.RawMessage, len(n.Extra)+len(recordKeys))
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range n.Extra {
		if !recordKeys[k] {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON reads the record fields and keeps every other key in Extra
func (n *NovelRecord) UnmarshalJSON(data []byte) error {
	var fields novelRecordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range recordKeys {
		delete(all, k)
	}
	fields.Extra = nil
	if len(all) > 0 {
		fields.Extra = all
	}
	*n = NovelRecord(fields)
	return nil
}

// MetadataDocument is the on-disk layout of the JSON metadata store
type MetadataDocument struct {
	Novels []*NovelRecord `json:"novels"`
}

// NovelChapterRef is the chapter list view of a catalogue novel
type NovelChapterRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// NovelChapterContent is a catalogue chapter together with its novel
type NovelChapterContent struct {
	NovelID    int          `json:"novelId"`
	NovelTitle string       `json:"novelTitle"`
	Chapter    NovelChapter `json:"chapter"`
}

// RefreshResult reports a batch metadata refresh
type RefreshResult struct {
	UpdatedCount int              `json:"updatedCount"`
	Failed       []RefreshFailure `json:"failed"`
}

// RefreshFailure is one record a batch refresh could not update
type RefreshFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}
