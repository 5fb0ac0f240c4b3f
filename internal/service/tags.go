package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// CreateTag validates params and inserts a tag. Tag names are unique per
// user; a taken name fails with model.ErrConflict.
func (s *Service) CreateTag(ctx context.Context, params model.NewTagParams) (model.Tag, error) {
	if _, err := s.UserID(); err != nil {
		return model.Tag{}, err
	}

	params, err := model.ValidateNewTag(params)
	if err != nil {
		return model.Tag{}, s.fail("create tag", err)
	}
	if err := s.nameFree(ctx, params.Name, ""); err != nil {
		return model.Tag{}, s.fail("create tag", err)
	}

	t := model.NewTag("", params)
	t.CreatedAt = s.now()
	if err := s.scope.InsertTag(ctx, t); err != nil {
		return model.Tag{}, s.fail("create tag", err)
	}
	t.UserID, _ = s.UserID()
	return t, nil
}

// nameFree reports a conflict when another of the user's tags, other than
// exceptID, already carries name.
func (s *Service) nameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.scope.FindTagByName(ctx, name)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == exceptID:
		return nil
	default:
		return fmt.Errorf("%w: tag %q already exists", model.ErrConflict, name)
	}
}

// UpdateTag renames or recolors one of the user's tags.
func (s *Service) UpdateTag(ctx context.Context, id string, patch model.TagPatch) (model.Tag, error) {
	if _, err := s.UserID(); err != nil {
		return model.Tag{}, err
	}

	patch, err := model.ValidateTagPatch(patch)
	if err != nil {
		return model.Tag{}, s.fail("update tag", err, zap.String("id", id))
	}
	if patch.Name != nil {
		if err := s.nameFree(ctx, *patch.Name, id); err != nil {
			return model.Tag{}, s.fail("update tag", err, zap.String("id", id))
		}
	}

	t, err := s.scope.UpdateTag(ctx, id, patch)
	if err != nil {
		return model.Tag{}, s.fail("update tag", err, zap.String("id", id))
	}
	return t, nil
}

// DeleteTag unlinks the tag from every bookmark, then deletes it.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	if _, err := s.UserID(); err != nil {
		return err
	}
	if _, err := s.scope.GetTag(ctx, id); err != nil {
		return s.fail("delete tag", err, zap.String("id", id))
	}
	if err := s.scope.DeleteBookmarkTagsByTag(ctx, id); err != nil {
		return s.fail("delete tag", err, zap.String("id", id))
	}
	if err := s.scope.DeleteTag(ctx, id); err != nil {
		return s.fail("delete tag", err, zap.String("id", id))
	}
	return nil
}

// ListTags returns the user's tags ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]model.Tag, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	tags, err := s.scope.ListTags(ctx)
	if err != nil {
		return nil, s.fail("list tags", err)
	}
	return tags, nil
}

// GetTag returns one of the user's tags.
func (s *Service) GetTag(ctx context.Context, id string) (model.Tag, error) {
	if _, err := s.UserID(); err != nil {
		return model.Tag{}, err
	}
	t, err := s.scope.GetTag(ctx, id)
	if err != nil {
		return model.Tag{}, s.fail("get tag", err, zap.String("id", id))
	}
	return t, nil
}

// BookmarksForTag returns the user's bookmarks carrying the tag, newest first.
func (s *Service) BookmarksForTag(ctx context.Context, tagID string) ([]model.BookmarkWithRelations, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	if _, err := s.scope.GetTag(ctx, tagID); err != nil {
		return nil, s.fail("list tag bookmarks", err, zap.String("id", tagID))
	}

	links, err := s.scope.ListBookmarkTags(ctx, nil)
	if err != nil {
		return nil, s.fail("list tag bookmarks", err, zap.String("id", tagID))
	}
	ids := []string{}
	for _, l := range links {
		if l.TagID == tagID {
			ids = append(ids, l.BookmarkID)
		}
	}
	if len(ids) == 0 {
		return []model.BookmarkWithRelations{}, nil
	}
	return s.listBookmarks(ctx, "list tag bookmarks", storage.BookmarkQuery{IDs: ids})
}
