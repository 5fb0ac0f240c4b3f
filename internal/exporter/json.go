package exporter

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Version is the export document format version.
const Version = "1.0"

// Document is the JSON export of a user's bookmarks.
type Document struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Bookmarks  []ExportedBookmark `json:"bookmarks"`
}

// ExportedBookmark is a bookmark with its folder name and tags inlined.
type ExportedBookmark struct {
	model.Bookmark
	Folder *ExportedFolder `json:"folders"`
	Tags   []ExportedTag   `json:"tags"`
}

// ExportedFolder names the folder a bookmark lives in.
type ExportedFolder struct {
	Name string `json:"name"`
}

// ExportedTag is a tag without its id.
type ExportedTag struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// NewDocument builds an export document from bookmark reads.
func NewDocument(bookmarks []model.BookmarkWithRelations, exportedAt time.Time) Document {
	doc := Document{
		Version:    Version,
		ExportedAt: exportedAt.UTC(),
		Bookmarks:  make([]ExportedBookmark, 0, len(bookmarks)),
	}
	for _, b := range bookmarks {
		e := ExportedBookmark{Bookmark: b.Bookmark, Tags: make([]ExportedTag, 0, len(b.Tags))}
		if b.Folder != nil {
			e.Folder = &ExportedFolder{Name: b.Folder.Name}
		}
		for _, t := range b.Tags {
			e.Tags = append(e.Tags, ExportedTag{Name: t.Name, Color: t.Color})
		}
		doc.Bookmarks = append(doc.Bookmarks, e)
	}
	return doc
}

// WriteJSON writes doc as indented UTF-8 JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
