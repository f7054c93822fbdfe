package epub

import "errors"

// Sentinel errors returned by the epub package.
var (
	// ErrCorruptArchive indicates the buffer is not a readable zip stream.
	ErrCorruptArchive = errors.New("epub: corrupt archive")

	// ErrEntryNotFound indicates the requested path is absent from the
	// archive or names a directory.
	ErrEntryNotFound = errors.New("epub: entry not found in archive")

	// ErrEntryTooLarge indicates an entry exceeds the decompression limit.
	ErrEntryTooLarge = errors.New("epub: entry exceeds size limit")

	// ErrDescriptionNotFound indicates the archive has no package
	// description (.opf) document.
	ErrDescriptionNotFound = errors.New("epub: package description not found")

	// ErrChapterNotFound indicates no archive entry matched a chapter
	// reference, or the matched entry is empty.
	ErrChapterNotFound = errors.New("epub: chapter not found")

	// ErrImageNotFound indicates no archive entry matched an image name.
	ErrImageNotFound = errors.New("epub: image not found")
)
