// Package storage persists bookmarks, folders, tags and per-user settings.
//
// A Backend is the raw row store: every call names the user whose rows it
// touches. Application code never holds a Backend directly; it goes through
// a Scope, which binds the calls to the current session.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSON     = "json"
)

// BookmarkQuery filters ListBookmarks. Zero value lists everything.
type BookmarkQuery struct {
	// FolderID restricts results to one folder. RootOnly restricts them to
	// bookmarks without a folder. Both unset means any folder.
	FolderID *string
	RootOnly bool
	// Search is a case-insensitive substring matched against title,
	// description, url and notes.
	Search string
	IDs    []string
}

// Backend is the raw entity store. Rows not owned by userID are invisible:
// reads skip them and single-row operations return model.ErrNotFound.
type Backend interface {
	ListBookmarks(ctx context.Context, userID string, q BookmarkQuery) ([]model.Bookmark, error)
	GetBookmark(ctx context.Context, userID, id string) (model.Bookmark, error)
	InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error
	UpdateBookmark(ctx context.Context, userID, id string, patch model.BookmarkPatch, updatedAt time.Time) (model.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, id string) error
	CountBookmarksInFolder(ctx context.Context, userID, folderID string) (int, error)

	ListFolders(ctx context.Context, userID string) ([]model.Folder, error)
	GetFolder(ctx context.Context, userID, id string) (model.Folder, error)
	InsertFolder(ctx context.Context, f model.Folder) error
	UpdateFolder(ctx context.Context, userID, id string, patch model.FolderPatch, updatedAt time.Time) (model.Folder, error)
	DeleteFolder(ctx context.Context, userID, id string) error
	CountChildFolders(ctx context.Context, userID, folderID string) (int, error)

	ListTags(ctx context.Context, userID string) ([]model.Tag, error)
	GetTag(ctx context.Context, userID, id string) (model.Tag, error)
	FindTagByName(ctx context.Context, userID, name string) (model.Tag, error)
	InsertTag(ctx context.Context, t model.Tag) error
	UpdateTag(ctx context.Context, userID, id string, patch model.TagPatch) (model.Tag, error)
	DeleteTag(ctx context.Context, userID, id string) error

	// ListBookmarkTags returns the associations of the given bookmarks, or of
	// all the user's bookmarks when bookmarkIDs is nil.
	ListBookmarkTags(ctx context.Context, userID string, bookmarkIDs []string) ([]model.BookmarkTag, error)
	InsertBookmarkTags(ctx context.Context, userID string, links []model.BookmarkTag) error
	DeleteBookmarkTagsByBookmark(ctx context.Context, userID, bookmarkID string) error
	DeleteBookmarkTagsByTag(ctx context.Context, userID, tagID string) error

	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpsertProfile(ctx context.Context, p model.Profile) error
	GetPreferences(ctx context.Context, userID string) (model.UserPreferences, error)
	UpsertPreferences(ctx context.Context, p model.UserPreferences) error

	Ping(ctx context.Context) error
	Close() error
}

// Options selects and locates a backend.
type Options struct {
	Backend    string
	SQLitePath string
	DSN        string
	JSONPath   string
}

// Open opens the backend named by opts.Backend, running migrations for SQL
// backends.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(ctx, opts.SQLitePath)
	case BackendPostgres:
		return NewPostgresStorage(ctx, opts.DSN)
	case BackendJSON:
		return NewJSONStorage(opts.JSONPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// DefaultDataDir returns the default data directory: ~/.config/marks
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "marks"), nil
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/marks/marks.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "marks.db"), nil
}

// DefaultJSONPath returns the default JSON store path: ~/.config/marks/marks.json
func DefaultJSONPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "marks.json"), nil
}
