package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// testFile is one archive entry; a name ending in "/" is a directory.
type testFile struct {
	Name string
	Body string
}

// buildTestZip writes files, in order, into an in-memory ZIP archive and
// returns its bytes. It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files ...testFile) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, f := range files {
		fw, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", f.Name, err)
		}
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, err := io.WriteString(fw, f.Body); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// openTestContainer builds and opens an archive from files.
func openTestContainer(t *testing.T, files ...testFile) *Container {
	t.Helper()
	c, err := Open(buildTestZip(t, files...))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return c
}

// assertHTML fails with a character diff when got differs from want.
func assertHTML(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	dmp := diffmatchpatch.New()
	t.Errorf("output mismatch (red=missing green=unexpected):\n%s", dmp.DiffPrettyText(dmp.DiffMain(want, got, false)))
}

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>秒速5厘米</dc:title>
    <dc:creator opf:role="aut">新海诚</dc:creator>
    <dc:description>&lt;p&gt;A story told in three parts.&lt;/p&gt;</dc:description>
    <dc:publisher>Example Press</dc:publisher>
    <dc:date>2007-03-03</dc:date>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover" href="Text/cover.html" media-type="application/xhtml+xml"/>
    <item id="chapter_1" href="Text/ch1.html" media-type="application/xhtml+xml"/>
    <item id="chapter_2" href="Text/ch2.html" media-type="application/xhtml+xml"/>
    <item id="css" href="Styles/main.css" media-type="text/css"/>
    <item id="img1" href="Images/pic.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="chapter_1"/>
    <itemref idref="chapter_2"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np-0" playOrder="0">
      <navLabel><text>封面</text></navLabel>
      <content src="Text/cover.html"/>
    </navPoint>
    <navPoint id="np-1" playOrder="1">
      <navLabel><text>第一章</text></navLabel>
      <content src="Text/ch1.html"/>
    </navPoint>
    <navPoint id="np-2" playOrder="2">
      <navLabel><text>第二章</text></navLabel>
      <content src="Text/ch2.html"/>
    </navPoint>
  </navMap>
</ncx>`

const testChapter1 = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>第一章</title></head>
<body>
<h1>第一章</h1>
<a id="section1"></a>
<p>Cherry blossoms fall at five centimeters per second.</p>
<p><img src="../Images/pic.jpg" alt="pic"/></p>
<a id="section2"></a>
<p>Snow on the train platform.</p>
</body>
</html>`

// sampleBook is a small but complete archive used across tests.
func sampleBook() []testFile {
	return []testFile{
		{Name: "mimetype", Body: "application/epub+zip"},
		{Name: "META-INF/", Body: ""},
		{Name: "META-INF/container.xml", Body: `<container><rootfiles><rootfile full-path="OEBPS/content.opf"/></rootfiles></container>`},
		{Name: "OEBPS/content.opf", Body: testOPF},
		{Name: "OEBPS/toc.ncx", Body: testNCX},
		{Name: "OEBPS/Text/cover.html", Body: `<html><body><img src="../Images/cover.jpg"/></body></html>`},
		{Name: "OEBPS/Text/ch1.html", Body: testChapter1},
		{Name: "OEBPS/Text/ch2.html", Body: `<html><body><p>Chapter two.</p></body></html>`},
		{Name: "OEBPS/Images/pic.jpg", Body: "JPEGDATA"},
		{Name: "OEBPS/Images/cover.jpg", Body: "COVERDATA"},
	}
}
