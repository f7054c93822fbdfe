package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/unalkalkan/NovelShelf/internal/book"
	"github.com/unalkalkan/NovelShelf/internal/health"
	"github.com/unalkalkan/NovelShelf/internal/library"
	"github.com/unalkalkan/NovelShelf/internal/logging"
	"github.com/unalkalkan/NovelShelf/internal/novels"
)

// Config holds the HTTP-facing settings of the API
type Config struct {
	// PublicBaseURL is the externally visible origin of the API. When empty
	// it is derived from each request.
	PublicBaseURL  string
	FrontendURL    string
	AllowedOrigins []string
}

// Server wires the API handlers to their collaborators
type Server struct {
	cfg     Config
	library *library.Service
	catalog novels.Catalog
	store   book.Repository
	health  *health.Handler
}

// NewServer creates the API server
func NewServer(cfg Config, lib *library.Service, catalog novels.Catalog, store book.Repository, hh *health.Handler) *Server {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Server{
		cfg:     cfg,
		library: lib,
		catalog: catalog,
		store:   store,
		health:  hh,
	}
}

// Routes registers every endpoint on a new mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/epub", s.ListArchives)
	mux.HandleFunc("GET /api/epub/{id}/metadata", s.ArchiveMetadata)
	mux.HandleFunc("GET /api/epub/{id}/chapters/{href...}", s.ArchiveChapter)
	mux.HandleFunc("GET /api/epub/{id}/image/{name...}", s.ArchiveImage)

	mux.HandleFunc("GET /api/novels", s.ListNovels)
	mux.HandleFunc("GET /api/novels/{id}", s.GetNovel)
	mux.HandleFunc("GET /api/novels/{id}/chapters", s.ListNovelChapters)
	mux.HandleFunc("GET /api/novels/{id}/chapters/{chapterId}", s.GetNovelChapter)

	mux.HandleFunc("GET /api/ssr/novels", s.ListSSRNovels)
	mux.HandleFunc("GET /api/ssr/novels/{id}", s.GetSSRNovel)
	mux.HandleFunc("PUT /api/ssr/novels/{id}", s.UpdateSSRNovel)
	mux.HandleFunc("POST /api/ssr/novels/batch-update", s.BatchUpdateSSRNovels)

	mux.HandleFunc("GET /epub/{file}", s.staticFile(library.EpubFiles))
	mux.HandleFunc("GET /cover/{file}", s.staticFile(library.CoverFiles))
	mux.HandleFunc("GET /public/{file...}", s.staticFile(library.PublicFiles))

	mux.HandleFunc("GET /{$}", s.page("index.html"))
	mux.HandleFunc("GET /novel/{id}", s.page("index.html"))
	mux.HandleFunc("GET /reader/{id}", s.page("reader/index.html"))

	if s.health != nil {
		mux.HandleFunc("GET /health", s.health.HealthHandler())
		mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
		mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Route not found", http.StatusNotFound)
	})
	return mux
}

// Handler returns the routes behind the full middleware stack
func (s *Server) Handler() http.Handler {
	origins := append([]string{s.cfg.FrontendURL}, s.cfg.AllowedOrigins...)
	return Chain(s.Routes(),
		logging.CombinedMiddleware,
		Recover,
		SecurityHeaders(NewCSPConfig(s.cfg.PublicBaseURL, s.cfg.FrontendURL)),
		CORS(origins),
	)
}

// baseURL is the origin image URLs are built on
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

// imageBase is the URL prefix chapter images of archive id are rewritten to
func (s *Server) imageBase(r *http.Request, id string) string {
	return s.baseURL(r) + "/api/epub/" + url.PathEscape(id) + "/image"
}
