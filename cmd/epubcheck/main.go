// Command epubcheck inspects an EPUB file the same way the API server does.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/kong"

	"github.com/unalkalkan/NovelShelf/internal/epub"
)

// CLI defines the command-line interface using Kong
type CLI struct {
	MaxEntrySize int64 `name:"max-entry-size" help:"Largest archive entry to read, in bytes (0 keeps the default)" default:"0"`

	Images   ImagesCmd   `cmd:"" help:"List image entries, or the <img> tags of one chapter"`
	Chapters ChaptersCmd `cmd:"" help:"Print the chapter index"`
	Metadata MetadataCmd `cmd:"" help:"Print the package metadata as JSON"`
	Resolve  ResolveCmd  `cmd:"" help:"Show which entry an image request resolves to"`
}

func (c *CLI) open(file string) (*epub.Container, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var opts []epub.Option
	if c.MaxEntrySize > 0 {
		opts = append(opts, epub.WithMaxEntrySize(c.MaxEntrySize))
	}
	return epub.Open(data, opts...)
}

// ImagesCmd lists images
type ImagesCmd struct {
	File    string `arg:"" type:"existingfile" help:"EPUB file"`
	Chapter string `name:"chapter" help:"Chapter path whose <img> tags to list"`
}

func (cmd *ImagesCmd) Run(cli *CLI, out io.Writer) error {
	c, err := cli.open(cmd.File)
	if err != nil {
		return err
	}

	if cmd.Chapter == "" {
		for _, e := range c.List() {
			if !e.IsDir && epub.IsImagePath(e.Path) {
				fmt.Fprintln(out, e.Path)
			}
		}
		return nil
	}

	p, ok := epub.MatchEntry(c.List(), strings.TrimPrefix(cmd.Chapter, "/"), epub.ChapterTiers)
	if !ok {
		return fmt.Errorf("%w: %s", epub.ErrChapterNotFound, cmd.Chapter)
	}
	text, err := c.ReadText(p)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}

	fmt.Fprintf(out, "%s\n", p)
	doc.Find("img, image").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			src, ok = s.Attr("xlink:href")
		}
		if !ok {
			src, _ = s.Attr("href")
		}
		resolved := "(unresolved)"
		if asset, ok := epub.MatchEntry(c.List(), path.Base(src), epub.AssetTiers); ok {
			resolved = asset
		}
		fmt.Fprintf(out, "  %s -> %s\n", src, resolved)
	})
	return nil
}

// ChaptersCmd prints the chapter index
type ChaptersCmd struct {
	File string `arg:"" type:"existingfile" help:"EPUB file"`
}

func (cmd *ChaptersCmd) Run(cli *CLI, out io.Writer) error {
	c, err := cli.open(cmd.File)
	if err != nil {
		return err
	}
	summary, err := epub.Inspect(c, epub.NewIndexBuilder(epub.DefaultExclusionPolicy()))
	if err != nil {
		return err
	}

	source := summary.NavigationPath
	if summary.FromManifest {
		source = summary.PackagePath + " (manifest)"
	}
	fmt.Fprintf(out, "source: %s\n", source)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tTITLE\tHREF")
	for _, ch := range summary.Chapters {
		order := "-"
		if ch.Order != nil {
			order = fmt.Sprint(*ch.Order)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", order, ch.ID, ch.Title, ch.Href)
	}
	return tw.Flush()
}

// MetadataCmd prints the package metadata
type MetadataCmd struct {
	File string `arg:"" type:"existingfile" help:"EPUB file"`
}

func (cmd *MetadataCmd) Run(cli *CLI, out io.Writer) error {
	c, err := cli.open(cmd.File)
	if err != nil {
		return err
	}
	summary, err := epub.Inspect(c, epub.NewIndexBuilder(epub.DefaultExclusionPolicy()))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(summary.Metadata)
}

// ResolveCmd resolves an image request
type ResolveCmd struct {
	File string `arg:"" type:"existingfile" help:"EPUB file"`
	Name string `arg:"" help:"Image name as it appears in an image URL"`
}

func (cmd *ResolveCmd) Run(cli *CLI, out io.Writer) error {
	c, err := cli.open(cmd.File)
	if err != nil {
		return err
	}
	asset, err := epub.ResolveAsset(c, cmd.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\t%d bytes\n", asset.Path, asset.ContentType, len(asset.Data))
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("epubcheck"),
		kong.Description("Inspect EPUB archives the way the NovelShelf API reads them"),
		kong.UsageOnError(),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
