// Package importer reads bookmark files into import records.
//
// Two formats are accepted: JSON (the export document, or a bare array of
// bookmark objects) and HTML bookmark files as written by browsers. Records
// carry only the user-editable fields; ids, timestamps, folder references
// and owner ids present in the input are dropped.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nikbrunner/marks/internal/model"
)

// Record is one bookmark read from an import file.
type Record struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Favicon     *string  `json:"favicon"`
	Tags        []TagRef `json:"tags"`
}

// TagRef names a tag by name. Tags are matched to the user's existing tags
// by exact name during import.
type TagRef struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// UnmarshalJSON accepts either {"name": ..., "color": ...} or a bare name.
func (t *TagRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*t = TagRef{Name: name}
		return nil
	}
	type tagRef TagRef
	var ref tagRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*t = TagRef(ref)
	return nil
}

// Parse reads records from r. The format is chosen by the extension of
// filename and, when that is unknown, by sniffing the content. Input that
// is neither JSON nor HTML fails with model.ErrImportFormat.
func Parse(filename string, r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ParseJSON(data)
	case ".html", ".htm":
		return ParseHTML(bytes.NewReader(data))
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("%w: empty file", model.ErrImportFormat)
	case trimmed[0] == '{' || trimmed[0] == '[':
		return ParseJSON(trimmed)
	case trimmed[0] == '<':
		return ParseHTML(bytes.NewReader(trimmed))
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrImportFormat, filepath.Base(filename))
	}
}

// ParseJSON reads an export document ({"bookmarks": [...]}) or a bare array
// of bookmark objects.
func ParseJSON(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrImportFormat, err)
		}
		return nonNil(records), nil
	}

	var doc struct {
		Bookmarks *[]Record `json:"bookmarks"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrImportFormat, err)
	}
	if doc.Bookmarks == nil {
		return nil, fmt.Errorf("%w: invalid JSON format", model.ErrImportFormat)
	}
	return nonNil(*doc.Bookmarks), nil
}

func nonNil(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	return records
}
