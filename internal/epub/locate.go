package epub

import "strings"

// FindPackageDescription returns the first file whose path ends in ".opf".
func FindPackageDescription(entries []Entry) (string, bool) {
	return firstFile(entries, func(lower string) bool {
		return strings.HasSuffix(lower, ".opf")
	})
}

// FindNavigationDocument returns the first ".ncx" file. Only when the
// archive has none does it fall back to the first file whose path
// contains "toc".
func FindNavigationDocument(entries []Entry) (string, bool) {
	if p, ok := firstFile(entries, func(lower string) bool {
		return strings.HasSuffix(lower, ".ncx")
	}); ok {
		return p, true
	}
	return firstFile(entries, func(lower string) bool {
		return strings.Contains(lower, "toc")
	})
}

func firstFile(entries []Entry, match func(lower string) bool) (string, bool) {
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if match(strings.ToLower(e.Path)) {
			return e.Path, true
		}
	}
	return "", false
}
