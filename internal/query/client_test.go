package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/service"
	"github.com/nikbrunner/marks/internal/session"
	"github.com/nikbrunner/marks/internal/storage"
)

const userID = "0b6f3a5e-7c1d-4a55-9a1e-3f0c2d4b5a61"

// flakyBackend fails deletes or tag links on demand and lets a test look
// at the cache while a delete is in progress.
type flakyBackend struct {
	storage.Backend
	failDeletes  bool
	failTagLinks bool
	duringDelete func()
}

func (b *flakyBackend) InsertBookmarkTags(ctx context.Context, uid string, links []model.BookmarkTag) error {
	if b.failTagLinks {
		return errStoreDown
	}
	return b.Backend.InsertBookmarkTags(ctx, uid, links)
}

var errStoreDown = errors.New("store unavailable")

func (b *flakyBackend) DeleteBookmark(ctx context.Context, uid, id string) error {
	if b.duringDelete != nil {
		b.duringDelete()
	}
	if b.failDeletes {
		return errStoreDown
	}
	return b.Backend.DeleteBookmark(ctx, uid, id)
}

func (b *flakyBackend) DeleteTag(ctx context.Context, uid, id string) error {
	if b.duringDelete != nil {
		b.duringDelete()
	}
	if b.failDeletes {
		return errStoreDown
	}
	return b.Backend.DeleteTag(ctx, uid, id)
}

func newClient(t *testing.T, backend storage.Backend, sess session.Session) *query.Client {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := service.New(storage.NewScope(backend, sess), logger, service.Options{})
	return query.NewClient(svc, query.NewCache(query.CacheOptions{Logger: logger}), logger)
}

func ids(list []model.BookmarkWithRelations) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}

func TestClient_CreateInvalidatesLists(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, storage.NewMemoryStorage(), session.Static(userID))

	list, err := c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	b, err := c.CreateBookmark(ctx, model.NewBookmarkParams{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)

	list, err = c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(list))

	root, err := c.BookmarksInFolder(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, root, 1)
}

func TestClient_CreateWithFailedTagsStillRefreshesLists(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{Backend: storage.NewMemoryStorage()}
	c := newClient(t, backend, session.Static(userID))

	tag, err := c.CreateTag(ctx, model.NewTagParams{Name: "go"})
	require.NoError(t, err)
	list, err := c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	backend.failTagLinks = true
	b, err := c.CreateBookmark(ctx, model.NewBookmarkParams{
		URL: "https://go.dev", Title: "Go", TagIDs: []string{tag.ID},
	})
	require.ErrorIs(t, err, model.ErrPartialWrite)
	assert.NotEmpty(t, b.ID)

	list, err = c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(list), "saved bookmark is listed")
	assert.Empty(t, list[0].Tags)
}

func TestClient_UpdateRefreshesDetailAndSearch(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, storage.NewMemoryStorage(), session.Static(userID))

	b, err := c.CreateBookmark(ctx, model.NewBookmarkParams{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)

	found, err := c.Search(ctx, "gopher")
	require.NoError(t, err)
	assert.Empty(t, found)
	_, err = c.Bookmark(ctx, b.ID)
	require.NoError(t, err)

	title := "Gopher home"
	_, err = c.UpdateBookmark(ctx, b.ID, model.BookmarkPatch{Title: &title})
	require.NoError(t, err)

	found, err = c.Search(ctx, "gopher")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	detail, err := c.Bookmark(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, title, detail.Title)
}

func TestClient_DeleteBookmarkIsOptimistic(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{Backend: storage.NewMemoryStorage()}
	c := newClient(t, backend, session.Static(userID))

	keep, err := c.CreateBookmark(ctx, model.NewBookmarkParams{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)
	gone, err := c.CreateBookmark(ctx, model.NewBookmarkParams{URL: "https://rust-lang.org", Title: "Rust"})
	require.NoError(t, err)
	_, err = c.Bookmarks(ctx)
	require.NoError(t, err)

	var seen []string
	backend.duringDelete = func() {
		list, _ := query.GetData[[]model.BookmarkWithRelations](c.Cache(), query.BookmarkList())
		seen = ids(list)
	}

	require.NoError(t, c.DeleteBookmark(ctx, gone.ID))
	assert.Equal(t, []string{keep.ID}, seen, "removed from the cache before the store call")

	list, err := c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(list))
}

func TestClient_DeleteBookmarkRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{Backend: storage.NewMemoryStorage()}
	c := newClient(t, backend, session.Static(userID))

	b, err := c.CreateBookmark(ctx, model.NewBookmarkParams{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)
	_, err = c.Bookmarks(ctx)
	require.NoError(t, err)

	var during []string
	backend.failDeletes = true
	backend.duringDelete = func() {
		list, _ := query.GetData[[]model.BookmarkWithRelations](c.Cache(), query.BookmarkList())
		during = ids(list)
	}

	err = c.DeleteBookmark(ctx, b.ID)
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, during)

	list, ok := query.GetData[[]model.BookmarkWithRelations](c.Cache(), query.BookmarkList())
	require.True(t, ok)
	assert.Equal(t, []string{b.ID}, ids(list), "cache matches what is persisted")
}

func TestClient_DeleteTagRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{Backend: storage.NewMemoryStorage(), failDeletes: true}
	c := newClient(t, backend, session.Static(userID))

	tag, err := c.CreateTag(ctx, model.NewTagParams{Name: "go"})
	require.NoError(t, err)
	_, err = c.Tags(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, c.DeleteTag(ctx, tag.ID), errStoreDown)

	tags, ok := query.GetData[[]model.Tag](c.Cache(), query.Tags())
	require.True(t, ok)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)
}

func TestClient_DeleteFolderNotEmpty(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, storage.NewMemoryStorage(), session.Static(userID))

	work, err := c.CreateFolder(ctx, model.NewFolderParams{Name: "Work"})
	require.NoError(t, err)
	_, err = c.CreateFolder(ctx, model.NewFolderParams{Name: "Q1", ParentID: &work.ID})
	require.NoError(t, err)
	_, err = c.Folders(ctx)
	require.NoError(t, err)

	err = c.DeleteFolder(ctx, work.ID)
	require.ErrorIs(t, err, model.ErrFolderNotEmpty)

	folders, ok := query.GetData[[]model.Folder](c.Cache(), query.Folders())
	require.True(t, ok)
	assert.Len(t, folders, 2, "rolled back after the refused delete")
}

func TestClient_PreferencesWriteThrough(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, storage.NewMemoryStorage(), session.Static(userID))

	prefs, err := c.Preferences(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.AutoFetchMetadata)

	off := false
	_, err = c.UpdatePreferences(ctx, model.PreferencesPatch{AutoFetchMetadata: &off})
	require.NoError(t, err)

	cached, ok := query.GetData[model.UserPreferences](c.Cache(), query.Preferences())
	require.True(t, ok)
	assert.False(t, cached.AutoFetchMetadata)
}

func TestClient_RequiresSession(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStorage()
	cache := query.NewCache(query.CacheOptions{})
	cache.SetData(query.BookmarkList(), []model.BookmarkWithRelations{{Bookmark: model.Bookmark{ID: "cached"}}})

	svc := service.New(storage.NewScope(backend, session.None), nil, service.Options{})
	c := query.NewClient(svc, cache, nil)

	_, err := c.Bookmarks(ctx)
	assert.ErrorIs(t, err, model.ErrAuthentication, "cached data is not served without a session")
	assert.ErrorIs(t, c.DeleteBookmark(ctx, "cached"), model.ErrAuthentication)
}
