package epub

import (
	"fmt"
	"path"
	"strings"
)

// Asset is an image resolved out of an archive.
type Asset struct {
	Path        string
	ContentType string
	Data        []byte
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// ContentTypeFor maps an image path to its MIME type, defaulting to image/jpeg.
func ContentTypeFor(p string) string {
	if ct, ok := imageTypes[strings.ToLower(path.Ext(p))]; ok {
		return ct
	}
	return "image/jpeg"
}

// IsImagePath reports whether p has a known image extension.
func IsImagePath(p string) bool {
	_, ok := imageTypes[strings.ToLower(path.Ext(p))]
	return ok
}

// ResolveAsset finds the archive entry an image request refers to and reads it.
func ResolveAsset(c *Container, name string) (Asset, error) {
	target := strings.TrimLeft(name, "/")
	p, ok := MatchEntry(c.List(), target, AssetTiers)
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}

	data, err := c.ReadBytes(p)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Path: p, ContentType: ContentTypeFor(p), Data: data}, nil
}
