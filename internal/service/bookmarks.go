package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// CreateBookmark validates params and inserts a new bookmark for the user.
// Tag associations, if any, are written after the bookmark row.
func (s *Service) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	if _, err := s.UserID(); err != nil {
		return model.Bookmark{}, err
	}

	params = s.fillMetadata(ctx, params)

	params, err := model.ValidateNewBookmark(params)
	if err != nil {
		return model.Bookmark{}, s.fail("create bookmark", err)
	}

	if params.FolderID != nil {
		if _, err := s.scope.GetFolder(ctx, *params.FolderID); err != nil {
			return model.Bookmark{}, s.fail("create bookmark", err)
		}
	}
	tagIDs := dedupe(params.TagIDs)
	for _, id := range tagIDs {
		if _, err := s.scope.GetTag(ctx, id); err != nil {
			return model.Bookmark{}, s.fail("create bookmark", err)
		}
	}

	b := model.NewBookmark("", params)
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	if err := s.scope.InsertBookmarks(ctx, []model.Bookmark{b}); err != nil {
		return model.Bookmark{}, s.fail("create bookmark", err)
	}
	b.UserID, _ = s.UserID()

	if len(tagIDs) > 0 {
		if err := s.scope.InsertBookmarkTags(ctx, links(b.ID, tagIDs)); err != nil {
			return b, s.fail("create bookmark", fmt.Errorf("%w: bookmark %s saved without tags: %w",
				model.ErrPartialWrite, b.ID, err))
		}
	}

	s.log.Debug("bookmark created", zap.String("id", b.ID))
	return b, nil
}

// fillMetadata completes a missing title, description or favicon from the
// page itself when the user has auto_fetch_metadata enabled. Fetch failures
// only cost the extra detail; an empty title falls back to the host name.
func (s *Service) fillMetadata(ctx context.Context, p model.NewBookmarkParams) model.NewBookmarkParams {
	if s.fetcher == nil {
		return p
	}
	missingTitle := strings.TrimSpace(p.Title) == ""
	if !missingTitle && p.Description != nil && p.Favicon != nil {
		return p
	}
	rawURL, err := model.ValidateURL(p.URL)
	if err != nil {
		return p
	}

	prefs, err := s.Preferences(ctx)
	if err != nil || !prefs.AutoFetchMetadata {
		return p
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.log.Warn("metadata fetch failed", zap.String("url", rawURL), zap.Error(err))
		if missingTitle {
			if u, perr := url.Parse(rawURL); perr == nil {
				p.Title = u.Hostname()
			}
		}
		return p
	}

	if missingTitle {
		p.Title = page.Title
	}
	if p.Description == nil && page.Description != "" {
		d := page.Description
		p.Description = &d
	}
	if p.Favicon == nil && page.Favicon != "" {
		f := page.Favicon
		p.Favicon = &f
	}
	return p
}

// UpdateBookmark applies the present fields of patch to one of the user's
// bookmarks and re-stamps updated_at.
func (s *Service) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	if _, err := s.UserID(); err != nil {
		return model.Bookmark{}, err
	}

	patch, err := model.ValidateBookmarkPatch(patch)
	if err != nil {
		return model.Bookmark{}, s.fail("update bookmark", err, zap.String("id", id))
	}
	if patch.FolderID != nil && !patch.ClearFolder {
		if _, err := s.scope.GetFolder(ctx, *patch.FolderID); err != nil {
			return model.Bookmark{}, s.fail("update bookmark", err, zap.String("id", id))
		}
	}

	b, err := s.scope.UpdateBookmark(ctx, id, patch, s.now())
	if err != nil {
		return model.Bookmark{}, s.fail("update bookmark", err, zap.String("id", id))
	}
	return b, nil
}

// MoveBookmark puts a bookmark into folderID, or at the root level when
// folderID is nil.
func (s *Service) MoveBookmark(ctx context.Context, id string, folderID *string) (model.Bookmark, error) {
	if folderID == nil || *folderID == "" {
		return s.UpdateBookmark(ctx, id, model.BookmarkPatch{ClearFolder: true})
	}
	return s.UpdateBookmark(ctx, id, model.BookmarkPatch{FolderID: folderID})
}

// DeleteBookmark removes a bookmark's tag associations, then the bookmark.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	if _, err := s.UserID(); err != nil {
		return err
	}
	if _, err := s.scope.GetBookmark(ctx, id); err != nil {
		return s.fail("delete bookmark", err, zap.String("id", id))
	}
	if err := s.scope.DeleteBookmarkTagsByBookmark(ctx, id); err != nil {
		return s.fail("delete bookmark", err, zap.String("id", id))
	}
	if err := s.scope.DeleteBookmark(ctx, id); err != nil {
		return s.fail("delete bookmark", err, zap.String("id", id))
	}
	return nil
}

// SetBookmarkTags replaces the bookmark's tag set with tagIDs. The old
// associations are deleted before the new ones are inserted; if the insert
// fails the bookmark is left without tags and the error wraps
// model.ErrPartialWrite.
func (s *Service) SetBookmarkTags(ctx context.Context, bookmarkID string, tagIDs []string) error {
	if _, err := s.UserID(); err != nil {
		return err
	}

	var verr model.ValidationError
	for _, id := range tagIDs {
		if !model.IsUUID(id) {
			verr.Add("tag_ids", "invalid ID format")
		}
	}
	if err := verr.OrNil(); err != nil {
		return s.fail("set bookmark tags", err, zap.String("id", bookmarkID))
	}

	if _, err := s.scope.GetBookmark(ctx, bookmarkID); err != nil {
		return s.fail("set bookmark tags", err, zap.String("id", bookmarkID))
	}
	tagIDs = dedupe(tagIDs)
	for _, id := range tagIDs {
		if _, err := s.scope.GetTag(ctx, id); err != nil {
			return s.fail("set bookmark tags", err, zap.String("id", bookmarkID))
		}
	}

	if err := s.scope.DeleteBookmarkTagsByBookmark(ctx, bookmarkID); err != nil {
		return s.fail("set bookmark tags", err, zap.String("id", bookmarkID))
	}
	if len(tagIDs) == 0 {
		return nil
	}
	if err := s.scope.InsertBookmarkTags(ctx, links(bookmarkID, tagIDs)); err != nil {
		return s.fail("set bookmark tags", fmt.Errorf("%w: bookmark %s left without tags: %w",
			model.ErrPartialWrite, bookmarkID, err), zap.String("id", bookmarkID))
	}
	return nil
}

// GetBookmark returns one of the user's bookmarks with its folder and tags.
func (s *Service) GetBookmark(ctx context.Context, id string) (model.BookmarkWithRelations, error) {
	if _, err := s.UserID(); err != nil {
		return model.BookmarkWithRelations{}, err
	}
	b, err := s.scope.GetBookmark(ctx, id)
	if err != nil {
		return model.BookmarkWithRelations{}, s.fail("get bookmark", err, zap.String("id", id))
	}
	rel, err := s.withRelations(ctx, []model.Bookmark{b})
	if err != nil {
		return model.BookmarkWithRelations{}, s.fail("get bookmark", err, zap.String("id", id))
	}
	return rel[0], nil
}

// ListBookmarks returns all of the user's bookmarks, newest first.
func (s *Service) ListBookmarks(ctx context.Context) ([]model.BookmarkWithRelations, error) {
	return s.listBookmarks(ctx, "list bookmarks", storage.BookmarkQuery{})
}

// BookmarksInFolder returns the bookmarks of one folder, or of the root
// level when folderID is nil.
func (s *Service) BookmarksInFolder(ctx context.Context, folderID *string) ([]model.BookmarkWithRelations, error) {
	if folderID == nil {
		return s.listBookmarks(ctx, "list folder bookmarks", storage.BookmarkQuery{RootOnly: true})
	}
	return s.listBookmarks(ctx, "list folder bookmarks", storage.BookmarkQuery{FolderID: folderID})
}

// SearchBookmarks returns bookmarks whose title, description, url or notes
// contain query, case-insensitively, newest first. A blank query matches
// nothing.
func (s *Service) SearchBookmarks(ctx context.Context, query string) ([]model.BookmarkWithRelations, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.BookmarkWithRelations{}, nil
	}
	return s.listBookmarks(ctx, "search bookmarks", storage.BookmarkQuery{Search: query})
}

func (s *Service) listBookmarks(ctx context.Context, op string, q storage.BookmarkQuery) ([]model.BookmarkWithRelations, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	bookmarks, err := s.scope.ListBookmarks(ctx, q)
	if err != nil {
		return nil, s.fail(op, err)
	}
	rel, err := s.withRelations(ctx, bookmarks)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return rel, nil
}

func links(bookmarkID string, tagIDs []string) []model.BookmarkTag {
	out := make([]model.BookmarkTag, len(tagIDs))
	for i, id := range tagIDs {
		out[i] = model.BookmarkTag{BookmarkID: bookmarkID, TagID: id}
	}
	return out
}
