package storage

import (
	"context"
	"time"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/session"
)

// Scope binds a Backend to the current session. Every call first resolves
// the session's user and fails with model.ErrAuthentication when there is
// none; inserts are stamped with that user and all other calls filter by it.
type Scope struct {
	backend Backend
	session session.Session
}

// NewScope returns a Scope over backend for sess.
func NewScope(backend Backend, sess session.Session) *Scope {
	return &Scope{backend: backend, session: sess}
}

// UserID returns the current user, or model.ErrAuthentication.
func (s *Scope) UserID() (string, error) {
	return session.Require(s.session)
}

// ListBookmarks lists the user's bookmarks matching q.
func (s *Scope) ListBookmarks(ctx context.Context, q BookmarkQuery) ([]model.Bookmark, error) {
	uid, err := s.UserID()
	if err != nil {
		return nil, err
	}
	return s.backend.ListBookmarks(ctx, uid, q)
}

// GetBookmark returns a bookmark owned by the user.
func (s *Scope) GetBookmark(ctx context.Context, id string) (model.Bookmark, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Bookmark{}, err
	}
	return s.backend.GetBookmark(ctx, uid, id)
}

// InsertBookmarks stamps every row with the user and inserts them as one batch.
func (s *Scope) InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	stamped := make([]model.Bookmark, len(bookmarks))
	for i, b := range bookmarks {
		b.UserID = uid
		stamped[i] = b
	}
	return s.backend.InsertBookmarks(ctx, stamped)
}

// UpdateBookmark patches a bookmark owned by the user.
func (s *Scope) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch, updatedAt time.Time) (model.Bookmark, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Bookmark{}, err
	}
	return s.backend.UpdateBookmark(ctx, uid, id, patch, updatedAt)
}

// DeleteBookmark deletes a bookmark owned by the user.
func (s *Scope) DeleteBookmark(ctx context.Context, id string) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	return s.backend.DeleteBookmark(ctx, uid, id)
}

// CountBookmarksInFolder counts the user's bookmarks in a folder.
func (s *Scope) CountBookmarksInFolder(ctx context.Context, folderID string) (int, error) {
	uid, err := s.UserID()
	if err != nil {
		return 0, err
	}
	return s.backend.CountBookmarksInFolder(ctx, uid, folderID)
}

// ListFolders lists the user's folders.
func (s *Scope) ListFolders(ctx context.Context) ([]model.Folder, error) {
	uid, err := s.UserID()
	if err != nil {
		return nil, err
	}
	return s.backend.ListFolders(ctx, uid)
}

// GetFolder returns a folder owned by the user.
func (s *Scope) GetFolder(ctx context.Context, id string) (model.Folder, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Folder{}, err
	}
	return s.backend.GetFolder(ctx, uid, id)
}

// InsertFolder stamps f with the user and inserts it.
func (s *Scope) InsertFolder(ctx context.Context, f model.Folder) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	f.UserID = uid
	return s.backend.InsertFolder(ctx, f)
}

// UpdateFolder patches a folder owned by the user.
func (s *Scope) UpdateFolder(ctx context.Context, id string, patch model.FolderPatch, updatedAt time.Time) (model.Folder, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Folder{}, err
	}
	return s.backend.UpdateFolder(ctx, uid, id, patch, updatedAt)
}

// DeleteFolder deletes a folder owned by the user.
func (s *Scope) DeleteFolder(ctx context.Context, id string) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	return s.backend.DeleteFolder(ctx, uid, id)
}

// CountChildFolders counts the user's folders directly under folderID.
func (s *Scope) CountChildFolders(ctx context.Context, folderID string) (int, error) {
	uid, err := s.UserID()
	if err != nil {
		return 0, err
	}
	return s.backend.CountChildFolders(ctx, uid, folderID)
}

// ListTags lists the user's tags.
func (s *Scope) ListTags(ctx context.Context) ([]model.Tag, error) {
	uid, err := s.UserID()
	if err != nil {
		return nil, err
	}
	return s.backend.ListTags(ctx, uid)
}

// GetTag returns a tag owned by the user.
func (s *Scope) GetTag(ctx context.Context, id string) (model.Tag, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Tag{}, err
	}
	return s.backend.GetTag(ctx, uid, id)
}

// FindTagByName looks up the user's tag with exactly this name.
func (s *Scope) FindTagByName(ctx context.Context, name string) (model.Tag, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Tag{}, err
	}
	return s.backend.FindTagByName(ctx, uid, name)
}

// InsertTag stamps t with the user and inserts it.
func (s *Scope) InsertTag(ctx context.Context, t model.Tag) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	t.UserID = uid
	return s.backend.InsertTag(ctx, t)
}

// UpdateTag patches a tag owned by the user.
func (s *Scope) UpdateTag(ctx context.Context, id string, patch model.TagPatch) (model.Tag, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Tag{}, err
	}
	return s.backend.UpdateTag(ctx, uid, id, patch)
}

// DeleteTag deletes a tag owned by the user.
func (s *Scope) DeleteTag(ctx context.Context, id string) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	return s.backend.DeleteTag(ctx, uid, id)
}

// ListBookmarkTags lists associations of the user's bookmarks. A nil
// bookmarkIDs lists all of them.
func (s *Scope) ListBookmarkTags(ctx context.Context, bookmarkIDs []string) ([]model.BookmarkTag, error) {
	uid, err := s.UserID()
	if err != nil {
		return nil, err
	}
	return s.backend.ListBookmarkTags(ctx, uid, bookmarkIDs)
}

// InsertBookmarkTags links bookmarks to tags after checking that both sides
// of every link belong to the user.
func (s *Scope) InsertBookmarkTags(ctx context.Context, links []model.BookmarkTag) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	for _, l := range links {
		if _, err := s.backend.GetBookmark(ctx, uid, l.BookmarkID); err != nil {
			return err
		}
		if _, err := s.backend.GetTag(ctx, uid, l.TagID); err != nil {
			return err
		}
	}
	return s.backend.InsertBookmarkTags(ctx, uid, links)
}

// DeleteBookmarkTagsByBookmark unlinks every tag from one of the user's bookmarks.
func (s *Scope) DeleteBookmarkTagsByBookmark(ctx context.Context, bookmarkID string) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	return s.backend.DeleteBookmarkTagsByBookmark(ctx, uid, bookmarkID)
}

// DeleteBookmarkTagsByTag unlinks one of the user's tags from every bookmark.
func (s *Scope) DeleteBookmarkTagsByTag(ctx context.Context, tagID string) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	return s.backend.DeleteBookmarkTagsByTag(ctx, uid, tagID)
}

// GetProfile returns the user's profile.
func (s *Scope) GetProfile(ctx context.Context) (model.Profile, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Profile{}, err
	}
	return s.backend.GetProfile(ctx, uid)
}

// UpsertProfile writes the user's profile.
func (s *Scope) UpsertProfile(ctx context.Context, p model.Profile) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	p.ID = uid
	return s.backend.UpsertProfile(ctx, p)
}

// GetPreferences returns the user's preferences.
func (s *Scope) GetPreferences(ctx context.Context) (model.UserPreferences, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.UserPreferences{}, err
	}
	return s.backend.GetPreferences(ctx, uid)
}

// UpsertPreferences writes the user's preferences.
func (s *Scope) UpsertPreferences(ctx context.Context, p model.UserPreferences) error {
	uid, err := s.UserID()
	if err != nil {
		return err
	}
	p.UserID = uid
	return s.backend.UpsertPreferences(ctx, p)
}
