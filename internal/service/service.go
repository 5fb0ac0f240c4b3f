// Package service is the mutation layer: it validates input, enforces the
// folder and tag invariants, and writes through a storage.Scope so every
// operation is bound to the current user.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// Options configures optional collaborators.
type Options struct {
	// Fetcher fills in missing bookmark details when the user has
	// auto_fetch_metadata enabled. Nil disables fetching.
	Fetcher metadata.Fetcher
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service implements bookmark, folder, tag, profile and import operations
// for one session.
type Service struct {
	scope   *storage.Scope
	log     *zap.Logger
	fetcher metadata.Fetcher
	now     func() time.Time
}

// New creates a Service over scope.
func New(scope *storage.Scope, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		scope:   scope,
		log:     logger.With(zap.String("component", "service")),
		fetcher: opts.Fetcher,
		now:     now,
	}
}

// UserID returns the current user, or model.ErrAuthentication.
func (s *Service) UserID() (string, error) {
	return s.scope.UserID()
}

// fail logs err and returns it unchanged. Rejections caused by the caller
// are logged at debug level, everything else as an error.
func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if expected(err) {
		s.log.Debug("operation rejected", fields...)
	} else {
		s.log.Error("operation failed", fields...)
	}
	return err
}

func expected(err error) bool {
	for _, target := range []error{
		model.ErrValidation, model.ErrAuthentication, model.ErrNotFound,
		model.ErrConflict, model.ErrImportFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// withRelations joins bookmarks with their folder summary and tags.
func (s *Service) withRelations(ctx context.Context, bookmarks []model.Bookmark) ([]model.BookmarkWithRelations, error) {
	result := make([]model.BookmarkWithRelations, 0, len(bookmarks))
	if len(bookmarks) == 0 {
		return result, nil
	}

	ids := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		ids[i] = b.ID
	}

	links, err := s.scope.ListBookmarkTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := s.scope.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := s.scope.ListFolders(ctx)
	if err != nil {
		return nil, err
	}

	tagByID := make(map[string]model.Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}
	folderByID := make(map[string]model.Folder, len(folders))
	for _, f := range folders {
		folderByID[f.ID] = f
	}
	tagsByBookmark := make(map[string][]model.Tag)
	for _, l := range links {
		if t, ok := tagByID[l.TagID]; ok {
			tagsByBookmark[l.BookmarkID] = append(tagsByBookmark[l.BookmarkID], t)
		}
	}

	for _, b := range bookmarks {
		r := model.BookmarkWithRelations{Bookmark: b, Tags: tagsByBookmark[b.ID]}
		if r.Tags == nil {
			r.Tags = []model.Tag{}
		}
		if b.FolderID != nil {
			if f, ok := folderByID[*b.FolderID]; ok {
				r.Folder = &model.FolderRef{ID: f.ID, Name: f.Name}
			}
		}
		result = append(result, r)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
