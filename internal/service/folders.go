package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/model"
)

// CreateFolder validates params and inserts a folder. A parent, when given,
// must be one of the user's folders.
func (s *Service) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	if _, err := s.UserID(); err != nil {
		return model.Folder{}, err
	}

	params, err := model.ValidateNewFolder(params)
	if err != nil {
		return model.Folder{}, s.fail("create folder", err)
	}
	if params.ParentID != nil {
		if _, err := s.scope.GetFolder(ctx, *params.ParentID); err != nil {
			return model.Folder{}, s.fail("create folder", err)
		}
	}

	f := model.NewFolder("", params)
	f.CreatedAt = s.now()
	f.UpdatedAt = f.CreatedAt
	if err := s.scope.InsertFolder(ctx, f); err != nil {
		return model.Folder{}, s.fail("create folder", err)
	}
	f.UserID, _ = s.UserID()

	s.log.Debug("folder created", zap.String("id", f.ID), zap.String("name", f.Name))
	return f, nil
}

// ParentCandidates returns the folders that folderID may be moved under:
// every folder of the user except folderID itself and its direct children.
//
// The exclusion is one level deep. Folders are organized in two tiers, so a
// direct child is the only descendant that can exist.
func (s *Service) ParentCandidates(ctx context.Context, folderID string) ([]model.Folder, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	folders, err := s.scope.ListFolders(ctx)
	if err != nil {
		return nil, s.fail("list parent candidates", err, zap.String("id", folderID))
	}
	return parentCandidates(folders, folderID), nil
}

func parentCandidates(folders []model.Folder, folderID string) []model.Folder {
	out := make([]model.Folder, 0, len(folders))
	for _, f := range folders {
		if f.ID == folderID {
			continue
		}
		if f.ParentID != nil && *f.ParentID == folderID {
			continue
		}
		out = append(out, f)
	}
	return out
}

// UpdateFolder applies patch to one of the user's folders. Moving a folder
// under itself or under one of its direct children fails with
// model.ErrFolderCycle.
func (s *Service) UpdateFolder(ctx context.Context, id string, patch model.FolderPatch) (model.Folder, error) {
	if _, err := s.UserID(); err != nil {
		return model.Folder{}, err
	}

	patch, err := model.ValidateFolderPatch(patch)
	if err != nil {
		return model.Folder{}, s.fail("update folder", err, zap.String("id", id))
	}

	if patch.ParentID != nil && !patch.ClearParent {
		if _, err := s.scope.GetFolder(ctx, id); err != nil {
			return model.Folder{}, s.fail("update folder", err, zap.String("id", id))
		}
		if *patch.ParentID == id {
			return model.Folder{}, s.fail("update folder", model.ErrFolderCycle, zap.String("id", id))
		}
		parent, err := s.scope.GetFolder(ctx, *patch.ParentID)
		if err != nil {
			return model.Folder{}, s.fail("update folder", err, zap.String("id", id))
		}
		if parent.ParentID != nil && *parent.ParentID == id {
			return model.Folder{}, s.fail("update folder", model.ErrFolderCycle, zap.String("id", id))
		}
	}

	f, err := s.scope.UpdateFolder(ctx, id, patch, s.now())
	if err != nil {
		return model.Folder{}, s.fail("update folder", err, zap.String("id", id))
	}
	return f, nil
}

// DeleteFolder removes an empty folder. A folder still holding bookmarks or
// subfolders is left untouched and model.ErrFolderNotEmpty is returned.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if _, err := s.UserID(); err != nil {
		return err
	}
	if _, err := s.scope.GetFolder(ctx, id); err != nil {
		return s.fail("delete folder", err, zap.String("id", id))
	}

	bookmarks, err := s.scope.CountBookmarksInFolder(ctx, id)
	if err != nil {
		return s.fail("delete folder", err, zap.String("id", id))
	}
	subfolders, err := s.scope.CountChildFolders(ctx, id)
	if err != nil {
		return s.fail("delete folder", err, zap.String("id", id))
	}
	if bookmarks > 0 || subfolders > 0 {
		return s.fail("delete folder", model.FolderNotEmpty(bookmarks, subfolders), zap.String("id", id))
	}

	if err := s.scope.DeleteFolder(ctx, id); err != nil {
		return s.fail("delete folder", err, zap.String("id", id))
	}
	return nil
}

// ListFolders returns the user's folders ordered by name.
func (s *Service) ListFolders(ctx context.Context) ([]model.Folder, error) {
	if _, err := s.UserID(); err != nil {
		return nil, err
	}
	folders, err := s.scope.ListFolders(ctx)
	if err != nil {
		return nil, s.fail("list folders", err)
	}
	return folders, nil
}

// GetFolder returns one of the user's folders.
func (s *Service) GetFolder(ctx context.Context, id string) (model.Folder, error) {
	if _, err := s.UserID(); err != nil {
		return model.Folder{}, err
	}
	f, err := s.scope.GetFolder(ctx, id)
	if err != nil {
		return model.Folder{}, s.fail("get folder", err, zap.String("id", id))
	}
	return f, nil
}
