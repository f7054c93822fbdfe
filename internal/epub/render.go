package epub

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// RenderChapter resolves href against the archive, rewrites its image
// references under imageBase and normalizes image paragraphs. An "#anchor"
// suffix narrows the result to that section of the document.
func RenderChapter(c *Container, href, imageBase string) (string, error) {
	target := href
	if decoded, err := url.PathUnescape(href); err == nil {
		target = decoded
	}

	var anchor string
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target, anchor = target[:i], target[i+1:]
	}
	target = strings.TrimPrefix(target, "/")

	p, ok := MatchEntry(c.List(), target, ChapterTiers)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChapterNotFound, href)
	}

	text, err := c.ReadText(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrChapterNotFound, p)
	}

	text = RewriteImageSources(text, imageBase)
	text = NormalizeImageParagraphs(text)
	// Slicing last keeps a section a substring of its whole chapter.
	if anchor != "" {
		text = SliceAnchor(text, anchor)
	}
	return text, nil
}

type tagSpan struct {
	name       string
	id, nameAt string
	start      int
}

// scanStartTags lists every start or self-closing tag with its byte offset.
func scanStartTags(doc string) []tagSpan {
	var tags []tagSpan
	z := html.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		if tt == html.SelfClosingTagToken {
			// <title/> and <script/> have no body to read as raw text.
			z.NextIsNotRawText()
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, hasAttr := z.TagName()
			span := tagSpan{name: string(name), start: offset}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "id":
					span.id = string(val)
				case "name":
					span.nameAt = string(val)
				}
			}
			tags = append(tags, span)
		}
		offset += raw
	}
	return tags
}

// SliceAnchor returns the section of doc that starts at the anchor named
// anchor. The first <a> whose id or name equals anchor opens the section and
// the next <a> carrying an id or name closes it. Without such an <a>, any
// element with that id opens it and the next element of the same tag with an
// id closes it. With no match the whole document is returned.
func SliceAnchor(doc, anchor string) string {
	if anchor == "" {
		return doc
	}
	tags := scanStartTags(doc)

	for i, t := range tags {
		if t.name != "a" || (t.id != anchor && t.nameAt != anchor) {
			continue
		}
		end := len(doc)
		for _, next := range tags[i+1:] {
			if next.name == "a" && (next.id != "" || next.nameAt != "") {
				end = next.start
				break
			}
		}
		return doc[t.start:end]
	}

	for i, t := range tags {
		if t.id != anchor {
			continue
		}
		end := len(doc)
		for _, next := range tags[i+1:] {
			if next.name == t.name && next.id != "" {
				end = next.start
				break
			}
		}
		return doc[t.start:end]
	}

	return doc
}

var (
	imgTag      = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	svgImageTag = regexp.MustCompile(`(?is)<image\b[^>]*>`)
	srcValue    = regexp.MustCompile(`(?is)(\ssrc\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	hrefValue   = regexp.MustCompile(`(?is)(\s(?:xlink:)?href\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	imageExt    = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|webp|bmp)$`)
)

// RewriteImageSources points <img src> and SVG <image href> references at
// imageBase/{filename}. Relative references are rewritten when they live in
// an image folder, start with "./" or carry an image extension; absolute
// ones only when their path has an image folder. Values already under
// imageBase and data URLs are left untouched, so rewriting is idempotent.
func RewriteImageSources(doc, imageBase string) string {
	imageBase = strings.TrimRight(imageBase, "/")
	doc = imgTag.ReplaceAllStringFunc(doc, func(tag string) string {
		return rewriteAttr(tag, srcValue, imageBase)
	})
	return svgImageTag.ReplaceAllStringFunc(doc, func(tag string) string {
		return rewriteAttr(tag, hrefValue, imageBase)
	})
}

func rewriteAttr(tag string, attr *regexp.Regexp, imageBase string) string {
	return attr.ReplaceAllStringFunc(tag, func(a string) string {
		m := attr.FindStringSubmatch(a)
		quote, value := `"`, m[2]
		if a[len(m[1])] == '\'' {
			quote, value = `'`, m[3]
		}
		rewritten, ok := canonicalImageURL(value, imageBase)
		if !ok {
			return a
		}
		return m[1] + quote + rewritten + quote
	})
}

// canonicalImageURL maps one image reference to its API URL.
func canonicalImageURL(value, imageBase string) (string, bool) {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	if v == "" || strings.HasPrefix(lower, "data:") || strings.HasPrefix(v, imageBase+"/") {
		return "", false
	}

	var p string
	switch {
	case strings.Contains(v, "://") || strings.HasPrefix(v, "//"):
		u, err := url.Parse(v)
		if err != nil || !inImageFolder(u.Path) {
			return "", false
		}
		p = u.Path
	case strings.HasPrefix(v, "/"):
		p = stripQuery(v)
		if !inImageFolder(p) {
			return "", false
		}
	default:
		p = stripQuery(v)
		if !imageExt.MatchString(p) && !strings.HasPrefix(p, "./") && !inImageFolder(p) {
			return "", false
		}
	}

	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return imageBase + "/" + url.PathEscape(name), true
}

func inImageFolder(p string) bool {
	return strings.Contains("/"+strings.ToLower(p), "/images/")
}

func stripQuery(v string) string {
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		return v[:i]
	}
	return v
}

var (
	paragraph  = regexp.MustCompile(`(?is)<p\b([^>]*)>(.*?)</p\s*>`)
	nestedPara = regexp.MustCompile(`(?i)<p\b`)
	blankNoise = regexp.MustCompile(`(?i)&nbsp;|&#160;|&#xa0;|<br\s*/?>|\x{00a0}`)
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// NormalizeImageParagraphs lifts images out of paragraph wrappers. A
// paragraph holding only images is replaced by the images themselves; one
// mixing text and top-level images is split into paragraph, image,
// paragraph runs. Paragraphs whose text would not split cleanly are kept.
func NormalizeImageParagraphs(doc string) string {
	return paragraph.ReplaceAllStringFunc(doc, func(p string) string {
		m := paragraph.FindStringSubmatch(p)
		attrs, inner := m[1], m[2]
		if nestedPara.MatchString(inner) {
			return p
		}

		parts, ok := splitTopLevelImages(inner)
		if !ok {
			return p
		}

		var images []string
		textOnlyBlank := true
		for _, part := range parts {
			if part.image {
				images = append(images, part.raw)
			} else if !isBlank(part.raw) {
				textOnlyBlank = false
			}
		}
		if len(images) == 0 {
			return p
		}
		if textOnlyBlank {
			return strings.Join(images, "\n")
		}

		var b strings.Builder
		for _, part := range parts {
			switch {
			case part.image:
				b.WriteString(part.raw)
			case isBlank(part.raw):
			default:
				if !balanced(part.raw) {
					return p
				}
				b.WriteString("<p" + attrs + ">" + part.raw + "</p>")
			}
		}
		return b.String()
	})
}

type fragmentPart struct {
	raw   string
	image bool
}

// splitTopLevelImages cuts s around <img> tags that are not nested in
// another element. It reports false when s has none.
func splitTopLevelImages(s string) ([]fragmentPart, bool) {
	var parts []fragmentPart
	z := html.NewTokenizer(strings.NewReader(s))
	depth, offset, textStart := 0, 0, 0
	found := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		if tt == html.SelfClosingTagToken {
			z.NextIsNotRawText()
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "img" && depth == 0 {
				if offset > textStart {
					parts = append(parts, fragmentPart{raw: s[textStart:offset]})
				}
				parts = append(parts, fragmentPart{raw: s[offset : offset+raw], image: true})
				textStart = offset + raw
				found = true
			} else if tt == html.StartTagToken && !voidElements[tag] {
				depth++
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
			}
		}
		offset += raw
	}
	if textStart < len(s) {
		parts = append(parts, fragmentPart{raw: s[textStart:]})
	}
	return parts, found
}

// balanced reports whether every element opened in s is closed in s.
func balanced(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	depth := 0
	for {
		tt := z.Next()
		if tt == html.SelfClosingTagToken {
			z.NextIsNotRawText()
		}
		switch tt {
		case html.ErrorToken:
			return depth == 0
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if voidElements[string(name)] {
				continue
			}
			depth--
			if depth < 0 {
				return false
			}
		}
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(blankNoise.ReplaceAllString(s, "")) == ""
}
