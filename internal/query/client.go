package query

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/exporter"
	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/service"
)

// Client serves one session's reads from a Cache and routes its writes
// through the service, invalidating the views each write affects.
type Client struct {
	svc   *service.Service
	cache *Cache
	log   *zap.Logger
}

// NewClient wraps svc with cache.
func NewClient(svc *service.Service, cache *Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{svc: svc, cache: cache, log: logger.With(zap.String("component", "query"))}
}

// Cache returns the client's cache.
func (c *Client) Cache() *Cache { return c.cache }

// Service returns the wrapped service.
func (c *Client) Service() *service.Service { return c.svc }

// --- reads ---

// Bookmarks returns all bookmarks.
func (c *Client) Bookmarks(ctx context.Context) ([]model.BookmarkWithRelations, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, BookmarkList(), c.svc.ListBookmarks)
}

// BookmarksInFolder returns the bookmarks of a folder, or of the root level
// when folderID is nil.
func (c *Client) BookmarksInFolder(ctx context.Context, folderID *string) ([]model.BookmarkWithRelations, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, BookmarksByFolder(folderID), func(ctx context.Context) ([]model.BookmarkWithRelations, error) {
		return c.svc.BookmarksInFolder(ctx, folderID)
	})
}

// Bookmark returns one bookmark.
func (c *Client) Bookmark(ctx context.Context, id string) (model.BookmarkWithRelations, error) {
	if _, err := c.svc.UserID(); err != nil {
		return model.BookmarkWithRelations{}, err
	}
	return Fetch(ctx, c.cache, BookmarkDetail(id), func(ctx context.Context) (model.BookmarkWithRelations, error) {
		return c.svc.GetBookmark(ctx, id)
	})
}

// Search returns the bookmarks matching q.
func (c *Client) Search(ctx context.Context, q string) ([]model.BookmarkWithRelations, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, SearchBookmarks(q), func(ctx context.Context) ([]model.BookmarkWithRelations, error) {
		return c.svc.SearchBookmarks(ctx, q)
	})
}

// BookmarksForTag returns the bookmarks carrying a tag.
func (c *Client) BookmarksForTag(ctx context.Context, tagID string) ([]model.BookmarkWithRelations, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, BookmarksByTag(tagID), func(ctx context.Context) ([]model.BookmarkWithRelations, error) {
		return c.svc.BookmarksForTag(ctx, tagID)
	})
}

// Folders returns all folders.
func (c *Client) Folders(ctx context.Context) ([]model.Folder, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, Folders(), c.svc.ListFolders)
}

// Folder returns one folder.
func (c *Client) Folder(ctx context.Context, id string) (model.Folder, error) {
	if _, err := c.svc.UserID(); err != nil {
		return model.Folder{}, err
	}
	return Fetch(ctx, c.cache, Folder(id), func(ctx context.Context) (model.Folder, error) {
		return c.svc.GetFolder(ctx, id)
	})
}

// ParentCandidates returns the folders id may be moved under.
func (c *Client) ParentCandidates(ctx context.Context, id string) ([]model.Folder, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, ParentCandidates(id), func(ctx context.Context) ([]model.Folder, error) {
		return c.svc.ParentCandidates(ctx, id)
	})
}

// Tags returns all tags.
func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	if _, err := c.svc.UserID(); err != nil {
		return nil, err
	}
	return Fetch(ctx, c.cache, Tags(), c.svc.ListTags)
}

// Tag returns one tag.
func (c *Client) Tag(ctx context.Context, id string) (model.Tag, error) {
	if _, err := c.svc.UserID(); err != nil {
		return model.Tag{}, err
	}
	return Fetch(ctx, c.cache, Tag(id), func(ctx context.Context) (model.Tag, error) {
		return c.svc.GetTag(ctx, id)
	})
}

// Profile returns the user's profile.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	if _, err := c.svc.UserID(); err != nil {
		return model.Profile{}, err
	}
	return Fetch(ctx, c.cache, Profile(), c.svc.Profile)
}

// Preferences returns the user's preferences.
func (c *Client) Preferences(ctx context.Context) (model.UserPreferences, error) {
	if _, err := c.svc.UserID(); err != nil {
		return model.UserPreferences{}, err
	}
	return Fetch(ctx, c.cache, Preferences(), c.svc.Preferences)
}

// Export builds an export document from the store, bypassing the cache.
func (c *Client) Export(ctx context.Context) (exporter.Document, error) {
	return c.svc.Export(ctx)
}

// Snapshot copies the user's data from the store, bypassing the cache.
func (c *Client) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	return c.svc.Snapshot(ctx)
}

// --- bookmark writes ---

// CreateBookmark creates a bookmark and invalidates the unfiltered list,
// its folder's list and cached searches. A partial write saved the
// bookmark, so the views are invalidated for it as well.
func (c *Client) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	b, err := c.svc.CreateBookmark(ctx, params)
	if err != nil && !errors.Is(err, model.ErrPartialWrite) {
		return b, err
	}
	c.cache.Invalidate(BookmarkList())
	c.cache.Invalidate(BookmarksByFolder(b.FolderID))
	c.cache.Invalidate(BookmarkSearches())
	if len(params.TagIDs) > 0 {
		c.cache.Invalidate(TaggedBookmarks())
	}
	return b, err
}

// UpdateBookmark updates a bookmark. The detail view is invalidated along
// with every list the bookmark may appear in.
func (c *Client) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	b, err := c.svc.UpdateBookmark(ctx, id, patch)
	if err != nil {
		return b, err
	}
	c.invalidateBookmark(id)
	return b, nil
}

// MoveBookmark moves a bookmark into folderID, or to the root level.
func (c *Client) MoveBookmark(ctx context.Context, id string, folderID *string) (model.Bookmark, error) {
	b, err := c.svc.MoveBookmark(ctx, id, folderID)
	if err != nil {
		return b, err
	}
	c.invalidateBookmark(id)
	return b, nil
}

// SetBookmarkTags replaces a bookmark's tags. Views are invalidated even on
// failure, since a failed replacement may have removed the old tags.
func (c *Client) SetBookmarkTags(ctx context.Context, id string, tagIDs []string) error {
	err := c.svc.SetBookmarkTags(ctx, id, tagIDs)
	c.invalidateBookmark(id)
	return err
}

func (c *Client) invalidateBookmark(id string) {
	c.cache.Invalidate(BookmarkDetail(id))
	c.cache.Invalidate(BookmarkList())
	c.cache.Invalidate(BookmarkFolders())
	c.cache.Invalidate(BookmarkSearches())
	c.cache.Invalidate(TaggedBookmarks())
}

// DeleteBookmark removes the bookmark from every cached list before
// deleting it. If the delete fails the cache is rolled back. Either way all
// bookmark views are invalidated and refetched.
func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	if _, err := c.svc.UserID(); err != nil {
		return err
	}

	snap := c.cache.Snapshot(BookmarksAll())
	Update(c.cache, BookmarksAll(), func(list []model.BookmarkWithRelations) []model.BookmarkWithRelations {
		return slices.DeleteFunc(slices.Clone(list), func(b model.BookmarkWithRelations) bool { return b.ID == id })
	})
	c.cache.Remove(BookmarkDetail(id))

	err := c.svc.DeleteBookmark(ctx, id)
	if err != nil {
		c.cache.Restore(snap)
		c.log.Debug("optimistic delete rolled back", zap.String("bookmark", id), zap.Error(err))
	}

	c.cache.Invalidate(BookmarksAll())
	c.cache.Refetch(ctx, BookmarksAll())
	return err
}

// --- folder writes ---

// CreateFolder creates a folder and invalidates the folder views.
func (c *Client) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	f, err := c.svc.CreateFolder(ctx, params)
	if err != nil {
		return f, err
	}
	c.cache.Invalidate(Folders())
	return f, nil
}

// UpdateFolder updates a folder. Bookmark reads embed the folder name, so
// they are invalidated too.
func (c *Client) UpdateFolder(ctx context.Context, id string, patch model.FolderPatch) (model.Folder, error) {
	f, err := c.svc.UpdateFolder(ctx, id, patch)
	if err != nil {
		return f, err
	}
	c.cache.Invalidate(Folders())
	c.cache.Invalidate(BookmarksAll())
	return f, nil
}

// DeleteFolder optimistically removes the folder from the cached folder
// list, then deletes it. Folder and bookmark views are refetched afterwards.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	if _, err := c.svc.UserID(); err != nil {
		return err
	}

	snap := c.cache.Snapshot(Folders())
	Update(c.cache, Folders(), func(list []model.Folder) []model.Folder {
		return slices.DeleteFunc(slices.Clone(list), func(f model.Folder) bool { return f.ID == id })
	})
	c.cache.Remove(Folder(id))

	err := c.svc.DeleteFolder(ctx, id)
	if err != nil {
		c.cache.Restore(snap)
		c.log.Debug("optimistic delete rolled back", zap.String("folder", id), zap.Error(err))
	}

	c.cache.Invalidate(Folders())
	c.cache.Invalidate(BookmarksAll())
	c.cache.Refetch(ctx, Folders())
	c.cache.Refetch(ctx, BookmarksAll())
	return err
}

// --- tag writes ---

// CreateTag creates a tag and invalidates the tag views.
func (c *Client) CreateTag(ctx context.Context, params model.NewTagParams) (model.Tag, error) {
	t, err := c.svc.CreateTag(ctx, params)
	if err != nil {
		return t, err
	}
	c.cache.Invalidate(Tags())
	return t, nil
}

// UpdateTag updates a tag. Bookmark reads embed tags, so they are
// invalidated too.
func (c *Client) UpdateTag(ctx context.Context, id string, patch model.TagPatch) (model.Tag, error) {
	t, err := c.svc.UpdateTag(ctx, id, patch)
	if err != nil {
		return t, err
	}
	c.cache.Invalidate(Tags())
	c.cache.Invalidate(BookmarksAll())
	return t, nil
}

// DeleteTag optimistically removes the tag from the cached tag list, then
// deletes it. Tag and bookmark views are refetched afterwards.
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	if _, err := c.svc.UserID(); err != nil {
		return err
	}

	snap := c.cache.Snapshot(Tags())
	Update(c.cache, Tags(), func(list []model.Tag) []model.Tag {
		return slices.DeleteFunc(slices.Clone(list), func(t model.Tag) bool { return t.ID == id })
	})
	c.cache.Remove(Tag(id))

	err := c.svc.DeleteTag(ctx, id)
	if err != nil {
		c.cache.Restore(snap)
		c.log.Debug("optimistic delete rolled back", zap.String("tag", id), zap.Error(err))
	}

	c.cache.Invalidate(Tags())
	c.cache.Invalidate(BookmarksAll())
	c.cache.Refetch(ctx, Tags())
	c.cache.Refetch(ctx, BookmarksAll())
	return err
}

// --- user writes ---

// UpdateProfile updates the profile and caches the result.
func (c *Client) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (model.Profile, error) {
	p, err := c.svc.UpdateProfile(ctx, patch)
	if err != nil {
		return p, err
	}
	c.cache.SetData(Profile(), p)
	return p, nil
}

// UpdatePreferences updates the preferences and caches the result.
func (c *Client) UpdatePreferences(ctx context.Context, patch model.PreferencesPatch) (model.UserPreferences, error) {
	p, err := c.svc.UpdatePreferences(ctx, patch)
	if err != nil {
		return p, err
	}
	c.cache.SetData(Preferences(), p)
	return p, nil
}

// Import imports records and invalidates all bookmark and tag views.
func (c *Client) Import(ctx context.Context, records []importer.Record) (service.ImportResult, error) {
	result, err := c.svc.Import(ctx, records)
	if err != nil {
		return result, err
	}
	c.cache.Invalidate(BookmarksAll())
	c.cache.Invalidate(Tags())
	return result, nil
}
