package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/unalkalkan/NovelShelf/internal/book"
	"github.com/unalkalkan/NovelShelf/internal/logging"
)

const maxPatchBytes = 1 << 20

// ListSSRNovels handles GET /api/ssr/novels
func (s *Server) ListSSRNovels(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListNovels(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, Response{Success: true, Data: records, Timestamp: now()}, http.StatusOK)
}

// GetSSRNovel handles GET /api/ssr/novels/{id}
func (s *Server) GetSSRNovel(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetNovel(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("ETag", revisionETag(rec.Revision))
	respondJSON(w, Response{Success: true, Data: rec, Timestamp: now()}, http.StatusOK)
}

// UpdateSSRNovel handles PUT /api/ssr/novels/{id}. The body is merged into
// the stored record. A "revision" field or an If-Match header makes the
// write conditional on the stored revision.
func (s *Server) UpdateSSRNovel(w http.ResponseWriter, r *http.Request) {
	var patch book.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatchBytes)).Decode(&patch); err != nil || patch == nil {
		respondError(w, "Request body must be a JSON object", http.StatusBadRequest)
		return
	}

	expected, err := patch.Revision()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if expected == nil {
		if expected, err = parseIfMatch(r.Header.Get("If-Match")); err != nil {
			respondErr(w, r, err)
			return
		}
	}

	rec, err := s.store.UpdateNovel(r.Context(), r.PathValue("id"), patch, expected)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	logging.LoggerFromContext(r.Context()).Info("novel metadata updated",
		"novel_id", rec.ID,
		"revision", rec.Revision,
	)
	w.Header().Set("ETag", revisionETag(rec.Revision))
	respondJSON(w, Response{Success: true, Data: rec, Message: "Novel metadata updated"}, http.StatusOK)
}

// BatchUpdateSSRNovels handles POST /api/ssr/novels/batch-update
func (s *Server) BatchUpdateSSRNovels(w http.ResponseWriter, r *http.Request) {
	result, err := s.library.RefreshCatalog(r.Context(), s.store)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, Response{
		Success: true,
		Data:    result,
		Message: fmt.Sprintf("Updated %d novels, %d failed", result.UpdatedCount, len(result.Failed)),
	}, http.StatusOK)
}

func revisionETag(rev int) string {
	return `"` + strconv.Itoa(rev) + `"`
}

// parseIfMatch reads a revision from an If-Match header value
func parseIfMatch(header string) (*int, error) {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return nil, nil
	}
	v := strings.Trim(strings.TrimPrefix(header, "W/"), `"`)
	rev, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: If-Match must carry a revision, got %q", book.ErrInvalidPatch, header)
	}
	return &rev, nil
}
