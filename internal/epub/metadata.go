package epub

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/unalkalkan/NovelShelf/pkg/types"
)

var (
	metaTitle       = tagValuePattern("dc:title")
	metaCreator     = tagValuePattern("dc:creator")
	metaDescription = tagValuePattern("dc:description")
	metaPublisher   = tagValuePattern("dc:publisher")
	metaDate        = tagValuePattern("dc:date")

	selfClosingDC = regexp.MustCompile(`(?i)<dc:[a-z]+\b[^>]*/>`)
	cdataSection  = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
)

func tagValuePattern(tag string) *regexp.Regexp {
	q := regexp.QuoteMeta(tag)
	return regexp.MustCompile(`(?is)<` + q + `(?:\s[^>]*)?>(.*?)</` + q + `\s*>`)
}

// ExtractMetadata scrapes the Dublin Core fields out of a package
// description. It never fails: a missing or malformed tag yields "".
func ExtractMetadata(opf string) types.Metadata {
	// An empty <dc:title/> would otherwise pair with the next closing tag.
	opf = selfClosingDC.ReplaceAllString(opf, "")

	return types.Metadata{
		Title:       firstValue(metaTitle, opf),
		Author:      firstValue(metaCreator, opf),
		Description: firstValue(metaDescription, opf),
		Publisher:   firstValue(metaPublisher, opf),
		PublishDate: firstValue(metaDate, opf),
	}
}

// firstValue returns the first occurrence of the tag with non-blank text.
func firstValue(re *regexp.Regexp, doc string) string {
	for _, m := range re.FindAllStringSubmatch(doc, -1) {
		if v := cleanText(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// cleanText turns a scraped value into plain text: CDATA is unwrapped,
// entities decoded and any markup (escaped or not) reduced to its text.
func cleanText(raw string) string {
	v := cdataSection.ReplaceAllString(raw, "$1")
	v = html.UnescapeString(v)
	if strings.Contains(v, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(v)); err == nil {
			v = doc.Text()
		}
	}
	return strings.TrimSpace(v)
}
