package server

import (
	"net/http"

	"github.com/nikbrunner/marks/internal/model"
)

type profileRequest struct {
	FullName *string `json:"full_name"`
}

type preferencesRequest struct {
	AutoFetchMetadata  *bool `json:"auto_fetch_metadata"`
	EmailNotifications *bool `json:"email_notifications"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.client(r).Profile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.client(r).UpdateProfile(r.Context(), model.ProfilePatch{FullName: req.FullName})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.client(r).Preferences(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.client(r).UpdatePreferences(r.Context(), model.PreferencesPatch{
		AutoFetchMetadata:  req.AutoFetchMetadata,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
