// Package exporter writes a user's bookmarks as a JSON export document or
// as a Netscape bookmark file.
package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// DefaultExportPath returns the default export file path for format.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.<format>
func DefaultExportPath(format string, now time.Time) (string, error) {
	if format != FormatJSON && format != FormatHTML {
		return "", fmt.Errorf("unknown export format %q", format)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.%s", now.Format("2006-01-02"), format)
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML exports a snapshot to Netscape bookmark HTML format. Folders
// become headings; tags are written to the TAGS attribute and descriptions
// to a DD line.
func ExportHTML(snap *model.Snapshot) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	writeItems(&b, snap, nil, 1, map[string]bool{})

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeItems recursively writes folders and bookmarks for a given parent.
// visited stops the walk if the parent references loop.
func writeItems(b *strings.Builder, snap *model.Snapshot, parentID *string, indent int, visited map[string]bool) {
	prefix := strings.Repeat("    ", indent)

	for _, folder := range snap.GetFoldersInFolder(parentID) {
		if visited[folder.ID] {
			continue
		}
		visited[folder.ID] = true

		fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n", prefix, folder.CreatedAt.Unix(), html.EscapeString(folder.Name))
		fmt.Fprintf(b, "%s<DL><p>\n", prefix)

		folderID := folder.ID
		writeItems(b, snap, &folderID, indent+1, visited)

		fmt.Fprintf(b, "%s</DL><p>\n", prefix)
	}

	for _, bookmark := range snap.GetBookmarksInFolder(parentID) {
		fmt.Fprintf(b, "%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"",
			prefix, html.EscapeString(bookmark.URL), bookmark.CreatedAt.Unix())
		if tags := snap.TagsForBookmark(bookmark.ID); len(tags) > 0 {
			names := make([]string, len(tags))
			for i, t := range tags {
				names[i] = t.Name
			}
			fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(names, ",")))
		}
		fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(bookmark.Title))
		if bookmark.Description != nil {
			fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(*bookmark.Description))
		}
	}
}
