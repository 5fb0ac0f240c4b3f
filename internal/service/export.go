package service

import (
	"context"

	"github.com/nikbrunner/marks/internal/exporter"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// Export returns the user's bookmarks as an export document.
func (s *Service) Export(ctx context.Context) (exporter.Document, error) {
	bookmarks, err := s.ListBookmarks(ctx)
	if err != nil {
		return exporter.Document{}, err
	}
	return exporter.NewDocument(bookmarks, s.now()), nil
}

// Snapshot copies all of the user's folders, bookmarks, tags and
// associations.
func (s *Service) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}

	snap := model.NewSnapshot()
	var err error
	if snap.Folders, err = s.scope.ListFolders(ctx); err != nil {
		return nil, s.fail("snapshot", err)
	}
	if snap.Bookmarks, err = s.scope.ListBookmarks(ctx, storage.BookmarkQuery{}); err != nil {
		return nil, s.fail("snapshot", err)
	}
	if snap.Tags, err = s.scope.ListTags(ctx); err != nil {
		return nil, s.fail("snapshot", err)
	}
	if snap.BookmarkTags, err = s.scope.ListBookmarkTags(ctx, nil); err != nil {
		return nil, s.fail("snapshot", err)
	}
	return snap, nil
}
