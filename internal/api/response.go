package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/unalkalkan/NovelShelf/internal/book"
	"github.com/unalkalkan/NovelShelf/internal/epub"
	"github.com/unalkalkan/NovelShelf/internal/library"
	"github.com/unalkalkan/NovelShelf/internal/logging"
	"github.com/unalkalkan/NovelShelf/internal/novels"
)

// Response is the envelope every JSON endpoint answers with
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// timestampLayout matches JavaScript's Date.toISOString
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, Response{Success: true, Data: data}, http.StatusOK)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, Response{Success: false, Message: message}, status)
}

// respondErr classifies err and writes the matching error envelope. Server
// errors carry the underlying message in the error field and are logged.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Message: messageFor(err, status)}
	if status >= http.StatusInternalServerError {
		resp.Error = err.Error()
		logging.LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	respondJSON(w, resp, status)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrArchiveNotFound),
		errors.Is(err, library.ErrFileNotFound),
		errors.Is(err, epub.ErrChapterNotFound),
		errors.Is(err, epub.ErrImageNotFound),
		errors.Is(err, novels.ErrNovelNotFound),
		errors.Is(err, novels.ErrChapterNotFound),
		errors.Is(err, book.ErrNovelNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInvalidArchiveID),
		errors.Is(err, epub.ErrDescriptionNotFound),
		errors.Is(err, book.ErrInvalidPatch):
		return http.StatusBadRequest
	case errors.Is(err, book.ErrRevisionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, status int) string {
	switch {
	case errors.Is(err, library.ErrArchiveNotFound):
		return "EPUB file not found"
	case errors.Is(err, library.ErrFileNotFound):
		return "File not found"
	case errors.Is(err, epub.ErrChapterNotFound):
		return "Chapter content not found"
	case errors.Is(err, epub.ErrImageNotFound):
		return "Image not found"
	case errors.Is(err, epub.ErrDescriptionNotFound):
		return "Package description (OPF) not found"
	case errors.Is(err, library.ErrInvalidArchiveID):
		return "Invalid EPUB id"
	case errors.Is(err, novels.ErrChapterNotFound):
		return "Chapter not found"
	case errors.Is(err, novels.ErrNovelNotFound), errors.Is(err, book.ErrNovelNotFound):
		return "Novel not found"
	case errors.Is(err, book.ErrInvalidPatch):
		return "Invalid metadata update"
	case errors.Is(err, book.ErrRevisionConflict):
		return "Novel metadata was modified by another request"
	case errors.Is(err, epub.ErrCorruptArchive):
		return "Failed to parse EPUB file"
	}
	return http.StatusText(status)
}
