package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/model"
)

func strPtr(s string) *string { return &s }

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Go documentation", "Go documentation"},
		{"trims whitespace", "  padded  ", "padded"},
		{"script block removed", `hello <script>alert("x")</script>world`, "hello world"},
		{"multiline script", "a<SCRIPT type=\"text/javascript\">\nvar x;\n</SCRIPT>b", "ab"},
		{"iframe removed", `x<iframe src="evil"></iframe>y`, "xy"},
		{"object removed", `x<object data="a.swf"></object>y`, "xy"},
		{"embed removed", `x<embed src="a.swf">y`, "xy"},
		{"javascript scheme", "javascript:alert(1)", "alert(1)"},
		{"vbscript scheme", "VBScript:msgbox", "msgbox"},
		{"event handler", `<img onerror="x">`, `<img "x">`},
		{"word containing on kept", "Donkey=1", "Donkey=1"},
		{"nested javascript scheme", "javajavascript:script:alert(1)", "alert(1)"},
		{"nested vbscript scheme", "vbsvbscript:cript:x", "x"},
		{"nested script tag", "<scr<script>ipt>alert(1)", "alert(1)"},
		{"scheme spliced by later removal", "java<embed src=x>script:alert(1)", "alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.Sanitize(tt.input))
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://go.dev", true},
		{"http://localhost:8080/path?q=1", true},
		{"  https://example.com  ", true},
		{"", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"example.com", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := model.ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrValidation)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	assert.NoError(t, model.ValidateColor(""))
	assert.NoError(t, model.ValidateColor("#3B82F6"))
	assert.NoError(t, model.ValidateColor("#3b82f6"))
	assert.Error(t, model.ValidateColor("3B82F6"))
	assert.Error(t, model.ValidateColor("#3B82F"))
	assert.Error(t, model.ValidateColor("#GGGGGG"))
}

func TestValidateNewBookmark(t *testing.T) {
	t.Run("valid params are sanitized", func(t *testing.T) {
		got, err := model.ValidateNewBookmark(model.NewBookmarkParams{
			URL:         " https://go.dev ",
			Title:       "  Go <script>x</script>",
			Description: strPtr("   "),
			Notes:       strPtr("read later"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://go.dev", got.URL)
		assert.Equal(t, "Go", got.Title)
		assert.Nil(t, got.Description)
		assert.Equal(t, "read later", *got.Notes)
	})

	t.Run("collects every failing field", func(t *testing.T) {
		_, err := model.ValidateNewBookmark(model.NewBookmarkParams{
			URL:      "not a url",
			Title:    "",
			Notes:    strPtr(strings.Repeat("n", model.MaxNotesLength+1)),
			FolderID: strPtr("folder-1"),
			TagIDs:   []string{"nope"},
		})
		require.Error(t, err)

		var verr *model.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "url")
		assert.Contains(t, verr.Fields, "title")
		assert.Contains(t, verr.Fields, "notes")
		assert.Contains(t, verr.Fields, "folder_id")
		assert.Contains(t, verr.Fields, "tag_ids")
	})

	t.Run("title length counts characters", func(t *testing.T) {
		_, err := model.ValidateNewBookmark(model.NewBookmarkParams{
			URL:   "https://go.dev",
			Title: strings.Repeat("ü", model.MaxTitleLength),
		})
		assert.NoError(t, err)

		_, err = model.ValidateNewBookmark(model.NewBookmarkParams{
			URL:   "https://go.dev",
			Title: strings.Repeat("ü", model.MaxTitleLength+1),
		})
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestValidateBookmarkPatch(t *testing.T) {
	got, err := model.ValidateBookmarkPatch(model.BookmarkPatch{Description: strPtr("  ")})
	require.NoError(t, err)
	require.NotNil(t, got.Description, "cleared field must stay present")
	assert.Equal(t, "", *got.Description)
	assert.Nil(t, got.Title)

	_, err = model.ValidateBookmarkPatch(model.BookmarkPatch{Title: strPtr("   ")})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestValidateFolderAndTag(t *testing.T) {
	_, err := model.ValidateNewFolder(model.NewFolderParams{Name: strings.Repeat("x", model.MaxNameLength+1)})
	assert.ErrorIs(t, err, model.ErrValidation)

	f, err := model.ValidateNewFolder(model.NewFolderParams{Name: " Reading ", ParentID: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Reading", f.Name)
	assert.Nil(t, f.ParentID)

	_, err = model.ValidateNewTag(model.NewTagParams{Name: "go", Color: strPtr("red")})
	assert.ErrorIs(t, err, model.ErrValidation)

	tag, err := model.ValidateNewTag(model.NewTagParams{Name: "go", Color: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, tag.Color)
}

func TestValidationError_Message(t *testing.T) {
	var verr model.ValidationError
	verr.Add("url", "bad")
	verr.Add("title", "missing")
	verr.Add("url", "ignored")

	assert.Equal(t, "validation failed: title: missing; url: bad", verr.Error())
	assert.Nil(t, (&model.ValidationError{}).OrNil())
}

func TestFolderNotEmpty(t *testing.T) {
	tests := []struct {
		bookmarks, subfolders int
		want                  string
	}{
		{0, 2, "contains subfolders"},
		{3, 0, "contains bookmarks"},
		{3, 2, "contains 3 bookmarks and 2 subfolders"},
	}
	for _, tt := range tests {
		err := model.FolderNotEmpty(tt.bookmarks, tt.subfolders)
		assert.ErrorIs(t, err, model.ErrFolderNotEmpty)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestBookmark_Apply(t *testing.T) {
	b := model.NewBookmark("user-1", model.NewBookmarkParams{
		URL:      "https://go.dev",
		Title:    "Go",
		Notes:    strPtr("notes"),
		FolderID: strPtr("f1"),
	})
	require.True(t, model.IsUUID(b.ID))
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)

	later := b.UpdatedAt.Add(time.Minute)
	got := b.Apply(model.BookmarkPatch{Title: strPtr("Go Home"), Notes: strPtr(""), ClearFolder: true}, later)

	assert.Equal(t, "Go Home", got.Title)
	assert.Nil(t, got.Notes)
	assert.Nil(t, got.FolderID)
	assert.Equal(t, later, got.UpdatedAt)
	assert.Equal(t, "Go", b.Title, "original must be unchanged")
}

func TestBookmarkPatch_Empty(t *testing.T) {
	assert.True(t, model.BookmarkPatch{}.Empty())
	assert.False(t, model.BookmarkPatch{ClearFolder: true}.Empty())
	assert.False(t, model.BookmarkPatch{Title: strPtr("x")}.Empty())
}

func TestFolder_Apply(t *testing.T) {
	f := model.NewFolder("user-1", model.NewFolderParams{Name: "Dev", ParentID: strPtr("p1")})
	got := f.Apply(model.FolderPatch{ParentID: strPtr("p2")}, time.Now())
	assert.Equal(t, "p2", *got.ParentID)

	got = got.Apply(model.FolderPatch{ClearParent: true}, time.Now())
	assert.Nil(t, got.ParentID)
}

func TestTag_Apply(t *testing.T) {
	tag := model.NewTag("user-1", model.NewTagParams{Name: "go", Color: strPtr("#00ADD8")})
	got := tag.Apply(model.TagPatch{Color: strPtr("")})
	assert.Nil(t, got.Color)
	assert.Equal(t, "go", got.Name)
}

func TestDefaultPreferences(t *testing.T) {
	p := model.DefaultPreferences("user-1")
	assert.True(t, p.AutoFetchMetadata)
	assert.False(t, p.EmailNotifications)

	off := false
	got := p.Apply(model.PreferencesPatch{AutoFetchMetadata: &off}, time.Now())
	assert.False(t, got.AutoFetchMetadata)
	assert.False(t, got.EmailNotifications)
}

func TestSnapshot_Tree(t *testing.T) {
	s := model.NewSnapshot()
	s.Folders = []model.Folder{
		{ID: "f1", Name: "Dev"},
		{ID: "f2", Name: "Go", ParentID: strPtr("f1")},
	}
	s.Bookmarks = []model.Bookmark{
		{ID: "b1", Title: "Root"},
		{ID: "b2", Title: "Go", FolderID: strPtr("f2")},
	}
	s.Tags = []model.Tag{{ID: "t1", Name: "go"}, {ID: "t2", Name: "web"}}
	s.BookmarkTags = []model.BookmarkTag{{BookmarkID: "b2", TagID: "t2"}, {BookmarkID: "b2", TagID: "t1"}}

	assert.Len(t, s.GetFoldersInFolder(nil), 1)
	assert.Len(t, s.GetFoldersInFolder(strPtr("f1")), 1)
	assert.Len(t, s.GetBookmarksInFolder(nil), 1)
	assert.Equal(t, "b2", s.GetBookmarksInFolder(strPtr("f2"))[0].ID)
	assert.Nil(t, s.GetFolderByID("missing"))
	assert.Equal(t, "Go", s.GetFolderByID("f2").Name)

	tags := s.TagsForBookmark("b2")
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
}

func TestBookmarkWithRelations_HasTag(t *testing.T) {
	b := model.BookmarkWithRelations{Tags: []model.Tag{{Name: "go"}}}
	assert.True(t, b.HasTag("go"))
	assert.False(t, b.HasTag("rust"))
}

func TestProfile_Apply(t *testing.T) {
	patch, err := model.ValidateProfilePatch(model.ProfilePatch{FullName: strPtr("  Ada <script>x</script> ")})
	require.NoError(t, err)

	p := model.NewProfile("user-1").Apply(patch, time.Now())
	require.NotNil(t, p.FullName)
	assert.Equal(t, "Ada", *p.FullName)

	cleared := p.Apply(model.ProfilePatch{FullName: strPtr("")}, time.Now())
	assert.Nil(t, cleared.FullName)

	_, err = model.ValidateProfilePatch(model.ProfilePatch{FullName: strPtr(strings.Repeat("a", model.MaxNameLength+1))})
	assert.ErrorIs(t, err, model.ErrValidation)
}
