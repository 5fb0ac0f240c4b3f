package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/marks/internal/model"
)

type tagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.client(r).Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	t, err := s.client(r).Tag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) tagBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := s.client(r).BookmarksForTag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	params := model.NewTagParams{Color: req.Color}
	if req.Name != nil {
		params.Name = *req.Name
	}
	t, err := s.client(r).CreateTag(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.client(r).UpdateTag(r.Context(), chi.URLParam(r, "id"), model.TagPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.client(r).DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
