package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// jsonDocument is the on-disk layout of a JSONStorage file.
type jsonDocument struct {
	model.Snapshot
	Profiles    []model.Profile         `json:"profiles"`
	Preferences []model.UserPreferences `json:"user_preferences"`
}

// JSONStorage implements Backend with all tables held in memory and the
// whole document rewritten after each mutation. An empty path keeps the
// data in memory only.
type JSONStorage struct {
	path string

	mu  sync.RWMutex
	doc jsonDocument
}

// NewJSONStorage loads the document at path. A missing file starts empty.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{path: path, doc: jsonDocument{Snapshot: *model.NewSnapshot()}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// NewMemoryStorage returns a JSONStorage that never touches disk.
func NewMemoryStorage() *JSONStorage {
	s, _ := NewJSONStorage("")
	return s
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Ping always succeeds.
func (s *JSONStorage) Ping(context.Context) error { return nil }

// Close flushes nothing; every mutation is already written.
func (s *JSONStorage) Close() error { return nil }

// save writes the document. Callers hold the write lock.
func (s *JSONStorage) save() error {
	if s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}

	// Write beside the target and rename, so a crash never leaves a
	// truncated document.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func matchesSearch(b model.Bookmark, q string) bool {
	q = strings.ToLower(q)
	fields := []string{b.Title, b.URL}
	if b.Description != nil {
		fields = append(fields, *b.Description)
	}
	if b.Notes != nil {
		fields = append(fields, *b.Notes)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ListBookmarks returns the user's bookmarks matching q, newest first.
func (s *JSONStorage) ListBookmarks(_ context.Context, userID string, q BookmarkQuery) ([]model.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Bookmark{}
	for _, b := range s.doc.Bookmarks {
		if b.UserID != userID {
			continue
		}
		if q.FolderID != nil && !ptrEqual(b.FolderID, q.FolderID) {
			continue
		}
		if q.FolderID == nil && q.RootOnly && b.FolderID != nil {
			continue
		}
		if q.Search != "" && !matchesSearch(b, q.Search) {
			continue
		}
		if q.IDs != nil && !slices.Contains(q.IDs, b.ID) {
			continue
		}
		result = append(result, b)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *JSONStorage) bookmarkIndex(userID, id string) int {
	return slices.IndexFunc(s.doc.Bookmarks, func(b model.Bookmark) bool {
		return b.ID == id && b.UserID == userID
	})
}

// GetBookmark returns one bookmark owned by userID.
func (s *JSONStorage) GetBookmark(_ context.Context, userID, id string) (model.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.bookmarkIndex(userID, id)
	if i < 0 {
		return model.Bookmark{}, model.NotFound("bookmark")
	}
	return s.doc.Bookmarks[i], nil
}

// InsertBookmarks appends all rows, rejecting duplicate ids.
func (s *JSONStorage) InsertBookmarks(_ context.Context, bookmarks []model.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bookmarks {
		if slices.ContainsFunc(s.doc.Bookmarks, func(x model.Bookmark) bool { return x.ID == b.ID }) {
			return fmt.Errorf("insert bookmark %s: duplicate id", b.ID)
		}
	}
	s.doc.Bookmarks = append(s.doc.Bookmarks, bookmarks...)
	return s.save()
}

// UpdateBookmark applies patch to a bookmark owned by userID.
func (s *JSONStorage) UpdateBookmark(_ context.Context, userID, id string, patch model.BookmarkPatch, updatedAt time.Time) (model.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookmarkIndex(userID, id)
	if i < 0 {
		return model.Bookmark{}, model.NotFound("bookmark")
	}
	s.doc.Bookmarks[i] = s.doc.Bookmarks[i].Apply(patch, updatedAt)
	return s.doc.Bookmarks[i], s.save()
}

// DeleteBookmark deletes a bookmark owned by userID. Associations must be
// removed first.
func (s *JSONStorage) DeleteBookmark(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookmarkIndex(userID, id)
	if i < 0 {
		return model.NotFound("bookmark")
	}
	if slices.ContainsFunc(s.doc.BookmarkTags, func(bt model.BookmarkTag) bool { return bt.BookmarkID == id }) {
		return fmt.Errorf("delete bookmark %s: still referenced by tags", id)
	}
	s.doc.Bookmarks = slices.Delete(s.doc.Bookmarks, i, i+1)
	return s.save()
}

// CountBookmarksInFolder counts the user's bookmarks in folderID.
func (s *JSONStorage) CountBookmarksInFolder(_ context.Context, userID, folderID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.doc.Bookmarks {
		if b.UserID == userID && b.FolderID != nil && *b.FolderID == folderID {
			n++
		}
	}
	return n, nil
}

func (s *JSONStorage) folderIndex(userID, id string) int {
	return slices.IndexFunc(s.doc.Folders, func(f model.Folder) bool {
		return f.ID == id && f.UserID == userID
	})
}

// ListFolders returns the user's folders ordered by name.
func (s *JSONStorage) ListFolders(_ context.Context, userID string) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Folder{}
	for _, f := range s.doc.Folders {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetFolder returns one folder owned by userID.
func (s *JSONStorage) GetFolder(_ context.Context, userID, id string) (model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.folderIndex(userID, id)
	if i < 0 {
		return model.Folder{}, model.NotFound("folder")
	}
	return s.doc.Folders[i], nil
}

// InsertFolder appends a folder row.
func (s *JSONStorage) InsertFolder(_ context.Context, f model.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Folders = append(s.doc.Folders, f)
	return s.save()
}

// UpdateFolder applies patch to a folder owned by userID.
func (s *JSONStorage) UpdateFolder(_ context.Context, userID, id string, patch model.FolderPatch, updatedAt time.Time) (model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.folderIndex(userID, id)
	if i < 0 {
		return model.Folder{}, model.NotFound("folder")
	}
	s.doc.Folders[i] = s.doc.Folders[i].Apply(patch, updatedAt)
	return s.doc.Folders[i], s.save()
}

// DeleteFolder deletes a folder owned by userID.
func (s *JSONStorage) DeleteFolder(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.folderIndex(userID, id)
	if i < 0 {
		return model.NotFound("folder")
	}
	s.doc.Folders = slices.Delete(s.doc.Folders, i, i+1)
	return s.save()
}

// CountChildFolders counts the user's folders whose parent is folderID.
func (s *JSONStorage) CountChildFolders(_ context.Context, userID, folderID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, f := range s.doc.Folders {
		if f.UserID == userID && f.ParentID != nil && *f.ParentID == folderID {
			n++
		}
	}
	return n, nil
}

func (s *JSONStorage) tagIndex(userID, id string) int {
	return slices.IndexFunc(s.doc.Tags, func(t model.Tag) bool {
		return t.ID == id && t.UserID == userID
	})
}

// ListTags returns the user's tags ordered by name.
func (s *JSONStorage) ListTags(_ context.Context, userID string) ([]model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Tag{}
	for _, t := range s.doc.Tags {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetTag returns one tag owned by userID.
func (s *JSONStorage) GetTag(_ context.Context, userID, id string) (model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.tagIndex(userID, id)
	if i < 0 {
		return model.Tag{}, model.NotFound("tag")
	}
	return s.doc.Tags[i], nil
}

// FindTagByName looks a tag up by exact name.
func (s *JSONStorage) FindTagByName(_ context.Context, userID, name string) (model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.doc.Tags {
		if t.UserID == userID && t.Name == name {
			return t, nil
		}
	}
	return model.Tag{}, model.NotFound("tag")
}

// InsertTag appends a tag row. Names are unique per user.
func (s *JSONStorage) InsertTag(_ context.Context, t model.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.doc.Tags, func(x model.Tag) bool { return x.UserID == t.UserID && x.Name == t.Name }) {
		return fmt.Errorf("insert tag %q: duplicate name", t.Name)
	}
	s.doc.Tags = append(s.doc.Tags, t)
	return s.save()
}

// UpdateTag applies patch to a tag owned by userID.
func (s *JSONStorage) UpdateTag(_ context.Context, userID, id string, patch model.TagPatch) (model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tagIndex(userID, id)
	if i < 0 {
		return model.Tag{}, model.NotFound("tag")
	}
	s.doc.Tags[i] = s.doc.Tags[i].Apply(patch)
	return s.doc.Tags[i], s.save()
}

// DeleteTag deletes a tag owned by userID. Associations must be removed first.
func (s *JSONStorage) DeleteTag(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tagIndex(userID, id)
	if i < 0 {
		return model.NotFound("tag")
	}
	if slices.ContainsFunc(s.doc.BookmarkTags, func(bt model.BookmarkTag) bool { return bt.TagID == id }) {
		return fmt.Errorf("delete tag %s: still referenced by bookmarks", id)
	}
	s.doc.Tags = slices.Delete(s.doc.Tags, i, i+1)
	return s.save()
}

// ListBookmarkTags returns associations whose bookmark belongs to userID.
func (s *JSONStorage) ListBookmarkTags(_ context.Context, userID string, bookmarkIDs []string) ([]model.BookmarkTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.BookmarkTag{}
	for _, bt := range s.doc.BookmarkTags {
		if bookmarkIDs != nil && !slices.Contains(bookmarkIDs, bt.BookmarkID) {
			continue
		}
		if s.bookmarkIndex(userID, bt.BookmarkID) < 0 {
			continue
		}
		result = append(result, bt)
	}
	return result, nil
}

// InsertBookmarkTags appends association rows, rejecting duplicates and
// dangling references.
func (s *JSONStorage) InsertBookmarkTags(_ context.Context, userID string, links []model.BookmarkTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range links {
		if s.bookmarkIndex(userID, l.BookmarkID) < 0 || s.tagIndex(userID, l.TagID) < 0 {
			return fmt.Errorf("link bookmark %s to tag %s: missing row", l.BookmarkID, l.TagID)
		}
		if slices.Contains(s.doc.BookmarkTags, l) {
			return fmt.Errorf("link bookmark %s to tag %s: already linked", l.BookmarkID, l.TagID)
		}
		s.doc.BookmarkTags = append(s.doc.BookmarkTags, l)
	}
	return s.save()
}

// DeleteBookmarkTagsByBookmark removes every association of a bookmark.
func (s *JSONStorage) DeleteBookmarkTagsByBookmark(_ context.Context, userID, bookmarkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bookmarkIndex(userID, bookmarkID) < 0 {
		return nil
	}
	s.doc.BookmarkTags = slices.DeleteFunc(s.doc.BookmarkTags, func(bt model.BookmarkTag) bool {
		return bt.BookmarkID == bookmarkID
	})
	return s.save()
}

// DeleteBookmarkTagsByTag removes every association of a tag.
func (s *JSONStorage) DeleteBookmarkTagsByTag(_ context.Context, userID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tagIndex(userID, tagID) < 0 {
		return nil
	}
	s.doc.BookmarkTags = slices.DeleteFunc(s.doc.BookmarkTags, func(bt model.BookmarkTag) bool {
		return bt.TagID == tagID
	})
	return s.save()
}

// GetProfile returns the user's profile.
func (s *JSONStorage) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.doc.Profiles {
		if p.ID == userID {
			return p, nil
		}
	}
	return model.Profile{}, model.NotFound("profile")
}

// UpsertProfile inserts or replaces the profile row.
func (s *JSONStorage) UpsertProfile(_ context.Context, p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.doc.Profiles, func(x model.Profile) bool { return x.ID == p.ID })
	if i < 0 {
		s.doc.Profiles = append(s.doc.Profiles, p)
	} else {
		p.CreatedAt = s.doc.Profiles[i].CreatedAt
		s.doc.Profiles[i] = p
	}
	return s.save()
}

// GetPreferences returns the user's preferences.
func (s *JSONStorage) GetPreferences(_ context.Context, userID string) (model.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.doc.Preferences {
		if p.UserID == userID {
			return p, nil
		}
	}
	return model.UserPreferences{}, model.NotFound("preferences")
}

// UpsertPreferences inserts or replaces the preferences row.
func (s *JSONStorage) UpsertPreferences(_ context.Context, p model.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.doc.Preferences, func(x model.UserPreferences) bool { return x.UserID == p.UserID })
	if i < 0 {
		s.doc.Preferences = append(s.doc.Preferences, p)
	} else {
		s.doc.Preferences[i] = p
	}
	return s.save()
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
