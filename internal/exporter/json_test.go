package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

func exportFixture() []model.BookmarkWithRelations {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.BookmarkWithRelations{
		{
			Bookmark: model.Bookmark{
				ID:          "b1",
				URL:         "https://go.dev/doc/?a=1&b=2",
				Title:       "Go <docs>",
				Description: strPtr("Docs"),
				FolderID:    strPtr("f1"),
				UserID:      "u1",
				CreatedAt:   created,
				UpdatedAt:   created,
			},
			Folder: &model.FolderRef{ID: "f1", Name: "Dev"},
			Tags: []model.Tag{
				{ID: "t1", Name: "go", Color: strPtr("#00ADD8"), UserID: "u1"},
				{ID: "t2", Name: "docs", UserID: "u1"},
			},
		},
		{
			Bookmark: model.Bookmark{
				ID:        "b2",
				URL:       "https://example.com",
				Title:     "Example",
				UserID:    "u1",
				CreatedAt: older,
				UpdatedAt: older,
			},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	doc := NewDocument(exportFixture(), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))

	golden.Assert(t, buf.String(), "golden/export.golden")
}

func TestWriteJSON_ImportsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewDocument(exportFixture(), time.Now())))

	records, err := importer.Parse("bookmarks-export.json", &buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "https://go.dev/doc/?a=1&b=2", records[0].URL)
	require.Equal(t, []importer.TagRef{{Name: "go", Color: strPtr("#00ADD8")}, {Name: "docs"}}, records[0].Tags)
	require.Empty(t, records[1].Tags)
}
