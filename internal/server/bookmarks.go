package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/marks/internal/model"
)

// optional tells an absent JSON field apart from an explicit null.
type optional struct {
	set   bool
	value *string
}

func (o *optional) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.value = &s
	return nil
}

// clears reports whether the field was sent as null or "".
func (o optional) clears() bool {
	return o.set && (o.value == nil || *o.value == "")
}

type createBookmarkRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Favicon     *string  `json:"favicon"`
	FolderID    *string  `json:"folder_id"`
	TagIDs      []string `json:"tag_ids"`
}

type updateBookmarkRequest struct {
	URL         *string  `json:"url"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Favicon     *string  `json:"favicon"`
	FolderID    optional `json:"folder_id"`
}

func (req updateBookmarkRequest) patch() model.BookmarkPatch {
	p := model.BookmarkPatch{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
		Favicon:     req.Favicon,
	}
	switch {
	case req.FolderID.clears():
		p.ClearFolder = true
	case req.FolderID.set:
		p.FolderID = req.FolderID.value
	}
	return p
}

type setTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	c := s.client(r)
	var (
		list []model.BookmarkWithRelations
		err  error
	)
	if r.URL.Query().Has("folder_id") {
		folderID := r.URL.Query().Get("folder_id")
		if folderID == "" {
			list, err = c.BookmarksInFolder(r.Context(), nil)
		} else {
			list, err = c.BookmarksInFolder(r.Context(), &folderID)
		}
	} else {
		list, err = c.Bookmarks(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) searchBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := s.client(r).Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.client(r).Bookmark(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createBookmark(w http.ResponseWriter, r *http.Request) {
	var req createBookmarkRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.client(r).CreateBookmark(r.Context(), model.NewBookmarkParams{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
		Favicon:     req.Favicon,
		FolderID:    req.FolderID,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) updateBookmark(w http.ResponseWriter, r *http.Request) {
	var req updateBookmarkRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.client(r).UpdateBookmark(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.client(r).DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setBookmarkTags(w http.ResponseWriter, r *http.Request) {
	var req setTagsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c := s.client(r)
	id := chi.URLParam(r, "id")
	if err := c.SetBookmarkTags(r.Context(), id, req.TagIDs); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := c.Bookmark(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
