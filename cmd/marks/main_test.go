package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/model"
)

// run executes the root command with a config file and database in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	flagJSON = false
	full := append([]string{"--config", filepath.Join(dir, "config.json")}, args...)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MARKS_BACKEND", "sqlite")
	t.Setenv("MARKS_DATABASE_PATH", filepath.Join(dir, "marks.db"))
	t.Setenv("MARKS_LOG_LEVEL", "error")
	return dir
}

func TestCLI_BookmarkWorkflow(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "folder", "add", "Work")
	require.NoError(t, err)
	assert.Contains(t, out, `Created folder "Work"`)

	out, err = run(t, dir, "tags", "add", "go", "--color", "#00ADD8")
	require.NoError(t, err)
	assert.Contains(t, out, `Created tag "go"`)

	_, err = run(t, dir, "prefs", "--auto-fetch", "false")
	require.NoError(t, err)

	out, err = run(t, dir, "add", "https://go.dev", "--title", "Go", "--folder", "work", "--tag", "go")
	require.NoError(t, err)
	assert.Contains(t, out, `Added "Go"`)

	out, err = run(t, dir, "list", "--json")
	require.NoError(t, err)
	var list []model.BookmarkWithRelations
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Folder)
	assert.Equal(t, "Work", list[0].Folder.Name)
	require.Len(t, list[0].Tags, 1)

	out, err = run(t, dir, "search", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "https://go.dev")

	_, err = run(t, dir, "folder", "rm", "Work")
	assert.ErrorIs(t, err, model.ErrFolderNotEmpty)

	_, err = run(t, dir, "mv", list[0].ID)
	require.NoError(t, err)
	_, err = run(t, dir, "folder", "rm", "Work")
	require.NoError(t, err)

	_, err = run(t, dir, "rm", list[0].ID)
	require.NoError(t, err)
	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No bookmarks.")
}

func TestCLI_PersistsUserID(t *testing.T) {
	dir := setup(t)

	_, err := run(t, dir, "tags", "ls")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(data, &saved))
	id, _ := saved["user_id"].(string)
	assert.True(t, model.IsUUID(id))

	out, err := run(t, dir, "token", "--json")
	require.NoError(t, err)
	var tok map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.Equal(t, id, tok["user_id"])
	assert.NotEmpty(t, tok["token"])
}

func TestCLI_ImportExport(t *testing.T) {
	dir := setup(t)

	src := filepath.Join(dir, "in.html")
	require.NoError(t, os.WriteFile(src, []byte(`<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://go.dev">Go</A>
    <DT><A HREF="https://pkg.go.dev">Packages</A>
</DL><p>`), 0644))

	out, err := run(t, dir, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 bookmarks")

	dst := filepath.Join(dir, "out.json")
	out, err = run(t, dir, "export", dst, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 bookmarks")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0"`)

	_, err = run(t, dir, "import", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
