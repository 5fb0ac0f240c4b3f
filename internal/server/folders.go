package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/marks/internal/model"
)

type createFolderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
}

type updateFolderRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	ParentID    optional `json:"parent_id"`
}

func (req updateFolderRequest) patch() model.FolderPatch {
	p := model.FolderPatch{Name: req.Name, Description: req.Description}
	switch {
	case req.ParentID.clears():
		p.ClearParent = true
	case req.ParentID.set:
		p.ParentID = req.ParentID.value
	}
	return p
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.client(r).Folders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) getFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.client(r).Folder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) parentCandidates(w http.ResponseWriter, r *http.Request) {
	folders, err := s.client(r).ParentCandidates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.client(r).CreateFolder(r.Context(), model.NewFolderParams{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) updateFolder(w http.ResponseWriter, r *http.Request) {
	var req updateFolderRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.client(r).UpdateFolder(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.client(r).DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
