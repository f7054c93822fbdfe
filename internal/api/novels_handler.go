package api

import "net/http"

// ListNovels handles GET /api/novels
func (s *Server) ListNovels(w http.ResponseWriter, r *http.Request) {
	respondData(w, s.catalog.List())
}

// GetNovel handles GET /api/novels/{id}
func (s *Server) GetNovel(w http.ResponseWriter, r *http.Request) {
	novel, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, novel)
}

// ListNovelChapters handles GET /api/novels/{id}/chapters
func (s *Server) ListNovelChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.catalog.Chapters(r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, chapters)
}

// GetNovelChapter handles GET /api/novels/{id}/chapters/{chapterId}
func (s *Server) GetNovelChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := s.catalog.Chapter(r.PathValue("id"), r.PathValue("chapterId"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, chapter)
}
