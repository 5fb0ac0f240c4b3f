package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/nikbrunner/marks/internal/exporter"
	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = exporter.FormatJSON
	}
	filename := fmt.Sprintf("bookmarks-export-%s.%s", s.now().Format("2006-01-02"), format)

	c := s.client(r)
	switch format {
	case exporter.FormatJSON:
		doc, err := c.Export(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		_ = exporter.WriteJSON(w, doc)
	case exporter.FormatHTML:
		snap, err := c.Snapshot(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		_, _ = io.WriteString(w, exporter.ExportHTML(snap))
	default:
		verr := &model.ValidationError{}
		verr.Add("format", "must be json or html")
		s.writeError(w, r, verr)
	}
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		verr := &model.ValidationError{}
		verr.Add("file", "a multipart file field is required")
		s.writeError(w, r, verr)
		return
	}
	defer file.Close()

	records, err := importer.Parse(header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.client(r).Import(r.Context(), records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
