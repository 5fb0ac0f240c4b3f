package exporter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/model"
)

func strPtr(s string) *string { return &s }

func TestExportHTML_EmptySnapshot(t *testing.T) {
	out := ExportHTML(model.NewSnapshot())

	assert.Contains(t, out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>")
	assert.Contains(t, out, "<TITLE>Bookmarks</TITLE>")
	assert.Contains(t, out, "<H1>Bookmarks</H1>")
	assert.True(t, strings.HasSuffix(out, "</DL><p>\n"))
}

func TestExportHTML_SingleBookmark(t *testing.T) {
	snap := model.NewSnapshot()
	snap.Bookmarks = append(snap.Bookmarks, model.Bookmark{
		ID:          "b1",
		Title:       "GitHub",
		URL:         "https://github.com",
		Description: strPtr("Where code lives"),
		CreatedAt:   time.Unix(1700000000, 0),
	})

	out := ExportHTML(snap)

	assert.Contains(t, out, `<DT><A HREF="https://github.com" ADD_DATE="1700000000">GitHub</A>`)
	assert.Contains(t, out, "<DD>Where code lives\n")
}

func TestExportHTML_Tags(t *testing.T) {
	snap := model.NewSnapshot()
	snap.Bookmarks = append(snap.Bookmarks, model.Bookmark{ID: "b1", Title: "Go", URL: "https://go.dev", CreatedAt: time.Unix(1700000000, 0)})
	snap.Tags = append(snap.Tags, model.Tag{ID: "t1", Name: "go"}, model.Tag{ID: "t2", Name: "docs"})
	snap.BookmarkTags = append(snap.BookmarkTags,
		model.BookmarkTag{BookmarkID: "b1", TagID: "t2"},
		model.BookmarkTag{BookmarkID: "b1", TagID: "t1"})

	out := ExportHTML(snap)

	assert.Contains(t, out, `ADD_DATE="1700000000" TAGS="go,docs">Go</A>`)
}

func TestExportHTML_NestedFolders(t *testing.T) {
	snap := model.NewSnapshot()
	parentID := "f1"
	childID := "f2"
	snap.Folders = append(snap.Folders,
		model.Folder{ID: parentID, Name: "Development"},
		model.Folder{ID: childID, Name: "React", ParentID: &parentID})
	snap.Bookmarks = append(snap.Bookmarks, model.Bookmark{
		ID:        "b1",
		Title:     "TanStack Router",
		URL:       "https://tanstack.com/router",
		FolderID:  &childID,
		CreatedAt: time.Unix(1700000000, 0),
	})

	out := ExportHTML(snap)

	devIdx := strings.Index(out, "Development</H3>")
	reactIdx := strings.Index(out, "React</H3>")
	routerIdx := strings.Index(out, "TanStack Router</A>")
	require.NotEqual(t, -1, devIdx)
	require.NotEqual(t, -1, reactIdx)
	require.NotEqual(t, -1, routerIdx)
	assert.Less(t, devIdx, reactIdx)
	assert.Less(t, reactIdx, routerIdx)
	assert.Contains(t, out, "        <DT><A HREF=\"https://tanstack.com/router\"", "child items are indented twice")
}

func TestExportHTML_ParentLoopTerminates(t *testing.T) {
	snap := model.NewSnapshot()
	a, b := "fa", "fb"
	snap.Folders = append(snap.Folders,
		model.Folder{ID: a, Name: "A", ParentID: &b},
		model.Folder{ID: b, Name: "B", ParentID: &a})

	out := ExportHTML(snap)

	assert.NotContains(t, out, "<H3", "folders unreachable from the root are not written")
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	snap := model.NewSnapshot()
	snap.Bookmarks = append(snap.Bookmarks, model.Bookmark{
		ID:        "b1",
		Title:     "Test <script>alert('xss')</script>",
		URL:       "https://example.com?foo=bar&baz=qux",
		CreatedAt: time.Now(),
	})

	out := ExportHTML(snap)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "foo=bar&baz")
	assert.Contains(t, out, "foo=bar&amp;baz")
}

func TestDefaultExportPath(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	p, err := DefaultExportPath(FormatJSON, now)
	require.NoError(t, err)
	assert.Equal(t, "bookmarks-export-2024-03-01.json", filepath.Base(p))
	assert.Equal(t, "Downloads", filepath.Base(filepath.Dir(p)))

	p, err = DefaultExportPath(FormatHTML, now)
	require.NoError(t, err)
	assert.Equal(t, "bookmarks-export-2024-03-01.html", filepath.Base(p))

	_, err = DefaultExportPath("csv", now)
	assert.Error(t, err)
}
