package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

func TestParseJSON_ExportDocument(t *testing.T) {
	doc := `{
  "version": "1.0",
  "exported_at": "2024-03-01T10:00:00Z",
  "bookmarks": [
    {
      "id": "7d0b0a52-4a4f-4a0e-9a44-2d6c1a8e0c11",
      "url": "https://go.dev",
      "title": "Go",
      "description": "The Go language",
      "notes": null,
      "favicon": "https://go.dev/favicon.ico",
      "folder_id": "f1",
      "user_id": "someone-else",
      "created_at": "2024-01-01T00:00:00Z",
      "folders": {"name": "Dev"},
      "tags": [{"name": "go", "color": "#00ADD8"}, {"name": "docs", "color": null}]
    }
  ]
}`

	records, err := importer.ParseJSON([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "https://go.dev", r.URL)
	assert.Equal(t, "Go", r.Title)
	require.NotNil(t, r.Description)
	assert.Equal(t, "The Go language", *r.Description)
	assert.Nil(t, r.Notes)
	require.Len(t, r.Tags, 2)
	assert.Equal(t, "go", r.Tags[0].Name)
	require.NotNil(t, r.Tags[0].Color)
	assert.Equal(t, "#00ADD8", *r.Tags[0].Color)
	assert.Nil(t, r.Tags[1].Color)
}

func TestParseJSON_BareArray(t *testing.T) {
	records, err := importer.ParseJSON([]byte(`[
		{"url": "https://a.dev", "title": "A", "tags": ["x", {"name": "y"}]},
		{"url": "https://b.dev", "title": "B"}
	]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []importer.TagRef{{Name: "x"}, {Name: "y"}}, records[0].Tags)
	assert.Nil(t, records[1].Tags)
}

func TestParseJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"object without bookmarks": `{"items": []}`,
		"scalar":                   `"bookmarks"`,
		"malformed":                `{"bookmarks": [`,
		"bookmarks not an array":   `{"bookmarks": {"url": "https://a.dev"}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := importer.ParseJSON([]byte(input))
			assert.ErrorIs(t, err, model.ErrImportFormat)
		})
	}
}
