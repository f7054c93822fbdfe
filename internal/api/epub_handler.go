package api

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/unalkalkan/NovelShelf/internal/library"
)

// ListArchives handles GET /api/epub
func (s *Server) ListArchives(w http.ResponseWriter, r *http.Request) {
	archives, err := s.library.ListArchives(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, archives)
}

// ArchiveMetadata handles GET /api/epub/{id}/metadata
func (s *Server) ArchiveMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.library.Metadata(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, meta)
}

// ArchiveChapter handles GET /api/epub/{id}/chapters/{href...}
func (s *Server) ArchiveChapter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	chapter, err := s.library.Chapter(r.Context(), id, r.PathValue("href"), s.imageBase(r, id))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, chapter)
}

// ArchiveImage handles GET /api/epub/{id}/image/{name...}
func (s *Server) ArchiveImage(w http.ResponseWriter, r *http.Request) {
	asset, err := s.library.Image(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	etag := etagFor(asset.Data)
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "public, max-age=86400")
	h.Set("Cross-Origin-Resource-Policy", "cross-origin")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", asset.ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(asset.Data)
	}
}

// staticFile serves raw files from a static directory, named by the file wildcard
func (s *Server) staticFile(dir library.StaticDir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveStatic(w, r, dir, r.PathValue("file"))
	}
}

// page serves a fixed front-end document regardless of the path parameters
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveStatic(w, r, library.PublicFiles, name)
	}
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, dir library.StaticDir, name string) {
	data, meta, err := s.library.StaticFile(r.Context(), dir, name)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("ETag", etagFor(data))
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	http.ServeContent(w, r, path.Base(name), meta.LastModified, bytes.NewReader(data))
}

// etagFor returns a strong validator derived from the content
func etagFor(data []byte) string {
	sum := blake3.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
