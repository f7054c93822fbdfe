package epub

import (
	"errors"
	"strings"
	"testing"
)

const testImageBase = "http://h/api/epub/sample/image"

func renderedChapter1() string {
	return strings.Replace(testChapter1,
		`<p><img src="../Images/pic.jpg" alt="pic"/></p>`,
		`<img src="`+testImageBase+`/pic.jpg" alt="pic"/>`, 1)
}

func TestRenderChapter_SampleBook(t *testing.T) {
	c := openTestContainer(t, sampleBook()...)

	got, err := RenderChapter(c, "Text/ch1.html", testImageBase)
	if err != nil {
		t.Fatalf("RenderChapter() failed: %v", err)
	}
	assertHTML(t, got, renderedChapter1())
}

func TestRenderChapter_Anchor(t *testing.T) {
	c := openTestContainer(t, sampleBook()...)
	full := renderedChapter1()

	tests := []struct {
		href string
		want string
	}{
		{
			href: "Text/ch1.html#section1",
			want: "<a id=\"section1\"></a>\n<p>Cherry blossoms fall at five centimeters per second.</p>\n" +
				`<img src="` + testImageBase + `/pic.jpg" alt="pic"/>` + "\n",
		},
		{
			href: "Text/ch1.html#section2",
			want: "<a id=\"section2\"></a>\n<p>Snow on the train platform.</p>\n</body>\n</html>",
		},
		{
			href: "Text/ch1.html#nowhere",
			want: full,
		},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, err := RenderChapter(c, tt.href, testImageBase)
			if err != nil {
				t.Fatalf("RenderChapter() failed: %v", err)
			}
			assertHTML(t, got, tt.want)
			if !strings.Contains(full, got) {
				t.Error("section is not a substring of the whole chapter")
			}
		})
	}
}

func TestRenderChapter_HrefForms(t *testing.T) {
	c := openTestContainer(t,
		testFile{Name: "OEBPS/Text/第3章.html", Body: "<p>three</p>"},
		testFile{Name: "OEBPS/Text/ch2.html", Body: "<p>two</p>"},
	)

	tests := []struct {
		name string
		href string
		want string
	}{
		{"percent-encoded", "Text/%E7%AC%AC3%E7%AB%A0.html", "<p>three</p>"},
		{"encoded slash", "Text%2Fch2.html", "<p>two</p>"},
		{"leading slash", "/Text/ch2.html", "<p>two</p>"},
		{"full path", "OEBPS/Text/ch2.html", "<p>two</p>"},
		{"substring", "ch2", "<p>two</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderChapter(c, tt.href, testImageBase)
			if err != nil {
				t.Fatalf("RenderChapter(%q) failed: %v", tt.href, err)
			}
			if got != tt.want {
				t.Errorf("RenderChapter(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestRenderChapter_NotFound(t *testing.T) {
	c := openTestContainer(t,
		testFile{Name: "Text/", Body: ""},
		testFile{Name: "Text/blank.html", Body: "  \n\t "},
		testFile{Name: "Text/ok.html", Body: "<p>ok</p>"},
	)

	for _, href := range []string{"Text/missing.html", "Text/blank.html", "", "#only-anchor"} {
		t.Run(href, func(t *testing.T) {
			if _, err := RenderChapter(c, href, testImageBase); !errors.Is(err, ErrChapterNotFound) {
				t.Errorf("RenderChapter(%q) error = %v, want ErrChapterNotFound", href, err)
			}
		})
	}
}

func TestRewriteImageSources(t *testing.T) {
	const base = "/api/epub/b/image"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative image folder", `<img src="../Images/a.jpg">`, `<img src="/api/epub/b/image/a.jpg">`},
		{"single quotes", `<img src='images/b.png'/>`, `<img src='/api/epub/b/image/b.png'/>`},
		{"dot slash without extension", `<img src="./cover">`, `<img src="/api/epub/b/image/cover">`},
		{"bare file with extension", `<img alt="x" src="e.jpg?x=1">`, `<img alt="x" src="/api/epub/b/image/e.jpg">`},
		{"spaced attribute", `<img src = "f.JPG">`, `<img src = "/api/epub/b/image/f.JPG">`},
		{"percent-encoded name", `<img src="../Images/my%20pic.jpg">`, `<img src="/api/epub/b/image/my%20pic.jpg">`},
		{"absolute with image folder", `<img src="http://cdn.example.com/book/Images/c.gif?v=1">`, `<img src="/api/epub/b/image/c.gif">`},
		{"root-absolute with image folder", `<img src="/OEBPS/Images/c.gif">`, `<img src="/api/epub/b/image/c.gif">`},
		{"svg image", `<image width="1" xlink:href="../Images/d.jpg"/>`, `<image width="1" xlink:href="/api/epub/b/image/d.jpg"/>`},
		{"absolute elsewhere untouched", `<img src="http://cdn.example.com/c.gif">`, `<img src="http://cdn.example.com/c.gif">`},
		{"root-absolute elsewhere untouched", `<img src="/static/c.gif">`, `<img src="/static/c.gif">`},
		{"data url untouched", `<img src="data:image/png;base64,AAAA">`, `<img src="data:image/png;base64,AAAA">`},
		{"non-image relative untouched", `<img src="spacer">`, `<img src="spacer">`},
		{"data-src untouched", `<img data-src="x.jpg">`, `<img data-src="x.jpg">`},
		{"already rewritten", `<img src="/api/epub/b/image/a.jpg">`, `<img src="/api/epub/b/image/a.jpg">`},
		{"links untouched", `<a href="../Images/a.jpg">a</a>`, `<a href="../Images/a.jpg">a</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteImageSources(tt.in, base)
			if got != tt.want {
				t.Errorf("RewriteImageSources() = %q, want %q", got, tt.want)
			}
			if again := RewriteImageSources(got, base); again != got {
				t.Errorf("second pass changed output: %q", again)
			}
		})
	}
}

func TestRewriteImageSources_IdempotentOnChapter(t *testing.T) {
	for _, base := range []string{testImageBase, "/api/epub/sample/image", testImageBase + "/"} {
		once := RewriteImageSources(testChapter1, base)
		if once == testChapter1 {
			t.Errorf("base %q: nothing rewritten", base)
		}
		if twice := RewriteImageSources(once, base); twice != once {
			t.Errorf("base %q: rewriting is not idempotent", base)
		}
	}
}

func TestNormalizeImageParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "image only",
			in:   `<p><img src="a.jpg"/></p>`,
			want: `<img src="a.jpg"/>`,
		},
		{
			name: "images with blank filler",
			in:   `<p class="c"> <img src="a.jpg"/>&nbsp;<img src="b.jpg"/> </p>`,
			want: "<img src=\"a.jpg\"/>\n<img src=\"b.jpg\"/>",
		},
		{
			name: "line break counts as blank",
			in:   `<p><img src="a.jpg"/><br/></p>`,
			want: `<img src="a.jpg"/>`,
		},
		{
			name: "mixed text and image",
			in:   `<p class="c">Before<img src="a.jpg"/>After</p>`,
			want: `<p class="c">Before</p><img src="a.jpg"/><p class="c">After</p>`,
		},
		{
			name: "blank tail dropped",
			in:   `<p>Text <img src="a.jpg"/> </p>`,
			want: `<p>Text </p><img src="a.jpg"/>`,
		},
		{
			name: "uppercase markup",
			in:   `<P><IMG SRC="a.jpg"></P>`,
			want: `<IMG SRC="a.jpg">`,
		},
		{
			name: "nested image kept",
			in:   `<p><span><img src="a.jpg"/></span></p>`,
			want: `<p><span><img src="a.jpg"/></span></p>`,
		},
		{
			name: "unbalanced split kept",
			in:   `<p>a</b><img src="x.jpg"/>b</p>`,
			want: `<p>a</b><img src="x.jpg"/>b</p>`,
		},
		{
			name: "nested paragraph kept",
			in:   `<p>outer<p><img src="a.jpg"/></p>`,
			want: `<p>outer<p><img src="a.jpg"/></p>`,
		},
		{
			name: "text only",
			in:   `<p>Hello <b>world</b></p>`,
			want: `<p>Hello <b>world</b></p>`,
		},
		{
			name: "pre is not a paragraph",
			in:   `<pre><img src="a.jpg"/></pre>`,
			want: `<pre><img src="a.jpg"/></pre>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeImageParagraphs(tt.in)
			assertHTML(t, got, tt.want)
			if again := NormalizeImageParagraphs(got); again != got {
				t.Errorf("second pass changed output: %q", again)
			}
		})
	}
}

func TestSliceAnchor(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		anchor string
		want   string
	}{
		{
			name:   "name attribute",
			doc:    `<p>intro</p><a name="n1"></a><p>one</p><a name="n2"></a><p>two</p>`,
			anchor: "n1",
			want:   `<a name="n1"></a><p>one</p>`,
		},
		{
			name:   "plain links do not close a section",
			doc:    `<a id="x"></a>A<a href="y">link</a>B<a id="z"></a>C`,
			anchor: "x",
			want:   `<a id="x"></a>A<a href="y">link</a>B`,
		},
		{
			name:   "anchor element preferred over earlier id",
			doc:    `<div id="k">pre</div><a id="k"></a>post`,
			anchor: "k",
			want:   `<a id="k"></a>post`,
		},
		{
			name:   "element id closes at next sibling tag",
			doc:    `<h2 id="s1">One</h2><p id="p">t</p><h2 id="s2">Two</h2>`,
			anchor: "s1",
			want:   `<h2 id="s1">One</h2><p id="p">t</p>`,
		},
		{
			name:   "element id runs to the end",
			doc:    `<p>before</p><div id="d">x</div><p>y</p>`,
			anchor: "d",
			want:   `<div id="d">x</div><p>y</p>`,
		},
		{
			name:   "self-closing title in head",
			doc:    `<html><head><title/></head><body><p><a id="s1"/>one</p><p><a id="s2"/>two</p></body></html>`,
			anchor: "s2",
			want:   `<a id="s2"/>two</p></body></html>`,
		},
		{
			name:   "self-closing script before anchors",
			doc:    `<script src="x.js"/><a id="a1"></a>A<a id="a2"></a>B`,
			anchor: "a1",
			want:   `<a id="a1"></a>A`,
		},
		{
			name:   "unknown anchor",
			doc:    `<p id="a">x</p>`,
			anchor: "b",
			want:   `<p id="a">x</p>`,
		},
		{
			name:   "empty anchor",
			doc:    `<a id="a"></a>x`,
			anchor: "",
			want:   `<a id="a"></a>x`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SliceAnchor(tt.doc, tt.anchor)
			assertHTML(t, got, tt.want)
			if !strings.Contains(tt.doc, got) {
				t.Error("slice is not a substring of the document")
			}
		})
	}
}
