package epub

import (
	"fmt"
	"html"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var (
	navPointBoundary = regexp.MustCompile(`(?i)<navPoint\b[^>]*>|</navPoint\s*>`)
	idAttr           = attrPattern("id")
	playOrderAttr    = attrPattern("playOrder")
	contentSrc       = regexp.MustCompile(`(?is)<content\b[^>]*?\ssrc\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	navLabel         = regexp.MustCompile(`(?is)<navLabel\b[^>]*>(.*?)</navLabel\s*>`)
	labelText        = regexp.MustCompile(`(?is)<text\b[^>]*>(.*?)</text\s*>`)
	leadingInt       = regexp.MustCompile(`^\s*([+-]?\d+)`)

	manifestItem  = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?item\b([^>]*)>`)
	hrefAttr      = attrPattern("href")
	mediaTypeAttr = attrPattern("media-type")
	chapterMarker = regexp.MustCompile(`(?i)chapter|chap[_\-\s]?\d|\bch[_\-]?\d|第.+章`)
)

func attrPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\s)` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
}

// attrValue returns the first quoted value captured by an attrPattern-style regexp.
func attrValue(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// IndexBuilder turns navigation and package documents into chapter lists.
type IndexBuilder struct {
	Policy ExclusionPolicy
}

// NewIndexBuilder returns a builder applying the given exclusion policy.
func NewIndexBuilder(policy ExclusionPolicy) *IndexBuilder {
	return &IndexBuilder{Policy: policy}
}

// Build scans the navigation document's navPoint blocks in document order.
// A block runs from a navPoint opening tag to the next navPoint tag, open
// or closing, so nested points yield their own entries. Entries without a
// title or href, excluded entries and repeated hrefs are dropped.
func (b *IndexBuilder) Build(nav string) []types.ChapterEntry {
	bounds := navPointBoundary.FindAllStringIndex(nav, -1)
	seen := make(map[string]bool)
	var entries []types.ChapterEntry

	for i, bnd := range bounds {
		openTag := nav[bnd[0]:bnd[1]]
		if strings.HasPrefix(openTag, "</") {
			continue
		}
		end := len(nav)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		body := nav[bnd[1]:end]

		entry, ok := parseNavPoint(openTag, body)
		if !ok || seen[entry.Href] {
			continue
		}
		if b.Policy.Excludes(entry.Title, entry.Href) {
			continue
		}
		seen[entry.Href] = true
		entries = append(entries, entry)
	}

	return entries
}

func parseNavPoint(openTag, body string) (types.ChapterEntry, bool) {
	var e types.ChapterEntry

	// Attributes live on the opening tag; some generators put them inside.
	if id, ok := attrValue(idAttr, openTag); ok {
		e.ID = id
	} else if id, ok := attrValue(idAttr, body); ok {
		e.ID = id
	}

	order, ok := attrValue(playOrderAttr, openTag)
	if !ok {
		order, _ = attrValue(playOrderAttr, body)
	}
	e.Order = parseOrder(order)

	if m := contentSrc.FindStringSubmatch(body); m != nil {
		e.Href = strings.TrimSpace(html.UnescapeString(m[1] + m[2]))
	}
	if m := navLabel.FindStringSubmatch(body); m != nil {
		if t := labelText.FindStringSubmatch(m[1]); t != nil {
			e.Title = cleanText(t[1])
		}
	}

	if e.Title == "" || e.Href == "" {
		return e, false
	}
	return e, true
}

// parseOrder reads the leading integer of a playOrder value. It returns
// nil when there is none.
func parseOrder(s string) *int {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

type manifestEntry struct {
	id, href, mediaType string
}

// BuildFromManifest derives a chapter list from the manifest's content
// documents, skipping any whose href mentions "cover". Orders run 1..N.
func (b *IndexBuilder) BuildFromManifest(opf string) []types.ChapterEntry {
	var entries []types.ChapterEntry
	n := 0
	for _, item := range manifestItems(opf) {
		if !isContentDocument(item.mediaType) || item.href == "" {
			continue
		}
		if strings.Contains(strings.ToLower(item.href), "cover") {
			continue
		}
		n++
		order := n
		entries = append(entries, types.ChapterEntry{
			ID:    item.id,
			Order: &order,
			Title: manifestTitle(item, n),
			Href:  item.href,
		})
	}
	return entries
}

// manifestItems reads manifest items with etree. Documents that are not
// well-formed XML are scanned with a pattern instead.
func manifestItems(opf string) []manifestEntry {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(opf); err == nil {
		if elems := doc.FindElements("//manifest/item"); len(elems) > 0 {
			items := make([]manifestEntry, 0, len(elems))
			for _, el := range elems {
				items = append(items, manifestEntry{
					id:        el.SelectAttrValue("id", ""),
					href:      strings.TrimSpace(el.SelectAttrValue("href", "")),
					mediaType: el.SelectAttrValue("media-type", ""),
				})
			}
			return items
		}
	}

	var items []manifestEntry
	manifest := opf
	if start := strings.Index(strings.ToLower(opf), "<manifest"); start >= 0 {
		manifest = opf[start:]
	}
	for _, m := range manifestItem.FindAllStringSubmatch(manifest, -1) {
		attrs := m[1]
		id, _ := attrValue(idAttr, attrs)
		href, _ := attrValue(hrefAttr, attrs)
		mt, _ := attrValue(mediaTypeAttr, attrs)
		items = append(items, manifestEntry{
			id:        id,
			href:      strings.TrimSpace(html.UnescapeString(href)),
			mediaType: mt,
		})
	}
	return items
}

func isContentDocument(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

// manifestTitle humanizes the item id, or else its file name, when either
// carries a chapter marker. Otherwise the title is positional.
func manifestTitle(item manifestEntry, n int) string {
	for _, candidate := range []string{item.id, strings.TrimSuffix(path.Base(item.href), path.Ext(item.href))} {
		if candidate != "" && chapterMarker.MatchString(candidate) {
			return humanize(candidate)
		}
	}
	return fmt.Sprintf("Chapter %d", n)
}

func humanize(s string) string {
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	}), " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
