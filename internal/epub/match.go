package epub

import (
	"path"
	"strings"
)

// MatchTier reports whether an archive path satisfies one rule of a
// matching cascade for target.
type MatchTier func(entryPath, target string) bool

// ChapterTiers resolves chapter references: exact path, then path suffix,
// then substring.
var ChapterTiers = []MatchTier{
	func(p, t string) bool { return p == t },
	func(p, t string) bool { return strings.HasSuffix(p, "/"+t) || strings.HasSuffix(p, t) },
	func(p, t string) bool { return strings.Contains(p, t) },
}

// imageDirs are the conventional image folders checked first, in order.
var imageDirs = []string{"Images/", "images/", "OEBPS/Images/", "OEBPS/images/"}

// AssetTiers resolves image names: conventional image folders, then any
// image folder, then any directory, then a case-insensitive file name.
var AssetTiers = []MatchTier{
	func(p, t string) bool {
		for _, dir := range imageDirs {
			if p == dir+t {
				return true
			}
		}
		return false
	},
	func(p, t string) bool {
		return strings.HasSuffix(p, "/Images/"+t) || strings.HasSuffix(p, "/images/"+t)
	},
	func(p, t string) bool { return p == t || strings.HasSuffix(p, "/"+t) },
	func(p, t string) bool { return strings.EqualFold(path.Base(p), path.Base(t)) },
}

// MatchEntry resolves target against the archive's files. Tiers are tried
// in order over the whole listing and the first entry matching the
// earliest tier wins. Directories never match.
func MatchEntry(entries []Entry, target string, tiers []MatchTier) (string, bool) {
	if target == "" {
		return "", false
	}
	for _, tier := range tiers {
		for _, e := range entries {
			if e.IsDir {
				continue
			}
			if tier(e.Path, target) {
				return e.Path, true
			}
		}
	}
	return "", false
}
