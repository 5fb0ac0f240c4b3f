package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/session"
	"github.com/nikbrunner/marks/internal/storage"
)

func strPtr(s string) *string { return &s }

// backends returns a fresh instance of every locally runnable backend.
func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()

	sqlite, err := storage.NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "marks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]storage.Backend{
		"sqlite": sqlite,
		"memory": storage.NewMemoryStorage(),
	}
}

func newBookmark(title, url string, created time.Time) model.Bookmark {
	b := model.NewBookmark("", model.NewBookmarkParams{URL: url, Title: title})
	b.CreatedAt = created
	b.UpdatedAt = created
	return b
}

func TestBackend_BookmarkLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scope := storage.NewScope(backend, session.Static("alice"))

			base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
			older := newBookmark("Go", "https://go.dev", base)
			older.Notes = strPtr("Language HOME")
			newer := newBookmark("Rust", "https://rust-lang.org", base.Add(time.Hour))
			require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{older, newer}))

			list, err := scope.ListBookmarks(ctx, storage.BookmarkQuery{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, newer.ID, list[0].ID, "newest first")
			assert.Equal(t, "alice", list[0].UserID, "scope stamps user")
			assert.True(t, base.Equal(list[1].CreatedAt))

			got, err := scope.GetBookmark(ctx, older.ID)
			require.NoError(t, err)
			assert.Equal(t, "Language HOME", *got.Notes)

			later := base.Add(2 * time.Hour)
			updated, err := scope.UpdateBookmark(ctx, older.ID, model.BookmarkPatch{Title: strPtr("Go!")}, later)
			require.NoError(t, err)
			assert.Equal(t, "Go!", updated.Title)
			assert.True(t, later.Equal(updated.UpdatedAt))

			require.NoError(t, scope.DeleteBookmark(ctx, older.ID))
			_, err = scope.GetBookmark(ctx, older.ID)
			assert.ErrorIs(t, err, model.ErrNotFound)

			err = scope.DeleteBookmark(ctx, older.ID)
			assert.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestBackend_Search(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scope := storage.NewScope(backend, session.Static("alice"))
			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

			a := newBookmark("Go Docs", "https://go.dev/doc", base)
			b := newBookmark("News", "https://news.ycombinator.com", base.Add(time.Minute))
			b.Description = strPtr("tech GOSSIP")
			c := newBookmark("Rust", "https://rust-lang.org", base.Add(2*time.Minute))
			d := newBookmark("Percent", "https://example.com/100%25", base.Add(3*time.Minute))
			d.Notes = strPtr("100% done")
			require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{a, b, c, d}))

			got, err := scope.ListBookmarks(ctx, storage.BookmarkQuery{Search: "go"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, b.ID, got[0].ID)
			assert.Equal(t, a.ID, got[1].ID)

			got, err = scope.ListBookmarks(ctx, storage.BookmarkQuery{Search: "0%"})
			require.NoError(t, err)
			require.Len(t, got, 1, "wildcards are matched literally")
			assert.Equal(t, d.ID, got[0].ID)

			e := newBookmark("ÜBER Café", "https://example.org/cafe", base.Add(4*time.Minute))
			require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{e}))
			for _, q := range []string{"über café", "ÜBER CAFÉ", "Über"} {
				got, err = scope.ListBookmarks(ctx, storage.BookmarkQuery{Search: q})
				require.NoError(t, err)
				require.Len(t, got, 1, "query %q", q)
				assert.Equal(t, e.ID, got[0].ID)
			}

			got, err = scope.ListBookmarks(ctx, storage.BookmarkQuery{IDs: []string{c.ID, a.ID}})
			require.NoError(t, err)
			assert.Len(t, got, 2)

			got, err = scope.ListBookmarks(ctx, storage.BookmarkQuery{IDs: []string{}})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestBackend_FolderFilters(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scope := storage.NewScope(backend, session.Static("alice"))

			work := model.NewFolder("", model.NewFolderParams{Name: "Work"})
			require.NoError(t, scope.InsertFolder(ctx, work))
			q1 := model.NewFolder("", model.NewFolderParams{Name: "Q1", ParentID: &work.ID})
			require.NoError(t, scope.InsertFolder(ctx, q1))

			inWork := newBookmark("In work", "https://a.example", time.Now())
			inWork.FolderID = &work.ID
			root := newBookmark("Root", "https://b.example", time.Now())
			require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{inWork, root}))

			got, err := scope.ListBookmarks(ctx, storage.BookmarkQuery{FolderID: &work.ID})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, inWork.ID, got[0].ID)

			got, err = scope.ListBookmarks(ctx, storage.BookmarkQuery{RootOnly: true})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, root.ID, got[0].ID)

			n, err := scope.CountBookmarksInFolder(ctx, work.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			n, err = scope.CountChildFolders(ctx, work.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			folders, err := scope.ListFolders(ctx)
			require.NoError(t, err)
			require.Len(t, folders, 2)
			assert.Equal(t, "Q1", folders[0].Name)

			moved, err := scope.UpdateFolder(ctx, q1.ID, model.FolderPatch{ClearParent: true}, time.Now())
			require.NoError(t, err)
			assert.Nil(t, moved.ParentID)

			require.NoError(t, scope.DeleteFolder(ctx, q1.ID))
			_, err = scope.GetFolder(ctx, q1.ID)
			assert.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestBackend_TagsAndAssociations(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scope := storage.NewScope(backend, session.Static("alice"))

			dev := model.NewTag("", model.NewTagParams{Name: "dev", Color: strPtr("#3B82F6")})
			ops := model.NewTag("", model.NewTagParams{Name: "ops"})
			require.NoError(t, scope.InsertTag(ctx, dev))
			require.NoError(t, scope.InsertTag(ctx, ops))

			found, err := scope.FindTagByName(ctx, "dev")
			require.NoError(t, err)
			assert.Equal(t, dev.ID, found.ID)
			assert.Equal(t, "#3B82F6", *found.Color)

			_, err = scope.FindTagByName(ctx, "Dev")
			assert.ErrorIs(t, err, model.ErrNotFound, "names match exactly")

			b := newBookmark("Go", "https://go.dev", time.Now())
			require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{b}))
			require.NoError(t, scope.InsertBookmarkTags(ctx, []model.BookmarkTag{
				{BookmarkID: b.ID, TagID: dev.ID},
				{BookmarkID: b.ID, TagID: ops.ID},
			}))

			links, err := scope.ListBookmarkTags(ctx, []string{b.ID})
			require.NoError(t, err)
			assert.Len(t, links, 2)

			require.NoError(t, scope.DeleteBookmarkTagsByTag(ctx, ops.ID))
			require.NoError(t, scope.DeleteTag(ctx, ops.ID))

			links, err = scope.ListBookmarkTags(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, []model.BookmarkTag{{BookmarkID: b.ID, TagID: dev.ID}}, links)

			renamed, err := scope.UpdateTag(ctx, dev.ID, model.TagPatch{Name: strPtr("go"), Color: strPtr("")})
			require.NoError(t, err)
			assert.Equal(t, "go", renamed.Name)
			assert.Nil(t, renamed.Color)

			require.NoError(t, scope.DeleteBookmarkTagsByBookmark(ctx, b.ID))
			require.NoError(t, scope.DeleteBookmark(ctx, b.ID))
		})
	}
}

func TestScope_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			alice := storage.NewScope(backend, session.Static("alice"))
			bob := storage.NewScope(backend, session.Static("bob"))

			b := newBookmark("Private", "https://alice.example", time.Now())
			require.NoError(t, alice.InsertBookmarks(ctx, []model.Bookmark{b}))
			f := model.NewFolder("", model.NewFolderParams{Name: "Alice"})
			require.NoError(t, alice.InsertFolder(ctx, f))
			tag := model.NewTag("", model.NewTagParams{Name: "secret"})
			require.NoError(t, alice.InsertTag(ctx, tag))

			list, err := bob.ListBookmarks(ctx, storage.BookmarkQuery{})
			require.NoError(t, err)
			assert.Empty(t, list)

			_, err = bob.GetBookmark(ctx, b.ID)
			assert.ErrorIs(t, err, model.ErrNotFound)
			_, err = bob.UpdateBookmark(ctx, b.ID, model.BookmarkPatch{Title: strPtr("pwned")}, time.Now())
			assert.ErrorIs(t, err, model.ErrNotFound)
			assert.ErrorIs(t, bob.DeleteBookmark(ctx, b.ID), model.ErrNotFound)
			assert.ErrorIs(t, bob.DeleteFolder(ctx, f.ID), model.ErrNotFound)
			assert.ErrorIs(t, bob.DeleteTag(ctx, tag.ID), model.ErrNotFound)

			bobTag := model.NewTag("", model.NewTagParams{Name: "mine"})
			require.NoError(t, bob.InsertTag(ctx, bobTag))
			err = bob.InsertBookmarkTags(ctx, []model.BookmarkTag{{BookmarkID: b.ID, TagID: bobTag.ID}})
			assert.ErrorIs(t, err, model.ErrNotFound)

			got, err := alice.GetBookmark(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, "Private", got.Title)
		})
	}
}

func TestScope_NoSession(t *testing.T) {
	ctx := context.Background()
	scope := storage.NewScope(storage.NewMemoryStorage(), session.None)

	_, err := scope.ListBookmarks(ctx, storage.BookmarkQuery{})
	assert.ErrorIs(t, err, model.ErrAuthentication)
	assert.ErrorIs(t, scope.InsertBookmarks(ctx, nil), model.ErrAuthentication)
	_, err = scope.ListFolders(ctx)
	assert.ErrorIs(t, err, model.ErrAuthentication)
	_, err = scope.GetPreferences(ctx)
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

func TestBackend_ProfilesAndPreferences(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scope := storage.NewScope(backend, session.Static("alice"))

			_, err := scope.GetPreferences(ctx)
			assert.ErrorIs(t, err, model.ErrNotFound)

			prefs := model.DefaultPreferences("ignored")
			require.NoError(t, scope.UpsertPreferences(ctx, prefs))
			got, err := scope.GetPreferences(ctx)
			require.NoError(t, err)
			assert.Equal(t, "alice", got.UserID)
			assert.True(t, got.AutoFetchMetadata)

			prefs.AutoFetchMetadata = false
			require.NoError(t, scope.UpsertPreferences(ctx, prefs))
			got, err = scope.GetPreferences(ctx)
			require.NoError(t, err)
			assert.False(t, got.AutoFetchMetadata)

			p := model.NewProfile("ignored")
			p.FullName = strPtr("Alice")
			require.NoError(t, scope.UpsertProfile(ctx, p))
			profile, err := scope.GetProfile(ctx)
			require.NoError(t, err)
			assert.Equal(t, "alice", profile.ID)
			assert.Equal(t, "Alice", *profile.FullName)
		})
	}
}

func TestJSONStorage_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "marks.json")

	s, err := storage.NewJSONStorage(path)
	require.NoError(t, err)
	scope := storage.NewScope(s, session.Static("alice"))
	require.NoError(t, scope.InsertBookmarks(ctx, []model.Bookmark{newBookmark("Go", "https://go.dev", time.Now())}))

	_, err = os.Stat(path)
	require.NoError(t, err, "file written after mutation")

	reopened, err := storage.NewJSONStorage(path)
	require.NoError(t, err)
	list, err := storage.NewScope(reopened, session.Static("alice")).ListBookmarks(ctx, storage.BookmarkQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Go", list[0].Title)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "marks.json", entries[0].Name())
}

func TestJSONStorage_LoadNonexistent(t *testing.T) {
	s, err := storage.NewJSONStorage(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	list, err := s.ListBookmarks(context.Background(), "alice", storage.BookmarkQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJSONStorage_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := storage.NewJSONStorage(path)
	assert.Error(t, err)
}

func TestSQLiteStorage_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "marks.db")

	s, err := storage.NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	require.NoError(t, storage.NewScope(s, session.Static("alice")).InsertFolder(ctx,
		model.NewFolder("", model.NewFolderParams{Name: "Work"})))
	require.NoError(t, s.Close())

	s, err = storage.NewSQLiteStorage(ctx, path)
	require.NoError(t, err, "re-running migrations is a no-op")
	defer s.Close()

	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Ping(ctx))
	folders, err := s.ListFolders(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := storage.Open(ctx, storage.Options{Backend: storage.BackendJSON})
	require.NoError(t, err)
	assert.IsType(t, &storage.JSONStorage{}, b)

	b, err = storage.Open(ctx, storage.Options{Backend: storage.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLStorage{}, b)
	b.Close()

	_, err = storage.Open(ctx, storage.Options{Backend: "oracle"})
	assert.Error(t, err)

	_, err = storage.Open(ctx, storage.Options{Backend: storage.BackendPostgres})
	assert.Error(t, err, "postgres needs a DSN")
}
