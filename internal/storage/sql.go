package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"

	"github.com/nikbrunner/marks/internal/model"
)

// timeLayout is fixed width in UTC, so text ordering equals time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// foldFunc lowercases text with Unicode rules. SQLite's LOWER folds ASCII only.
const foldFunc = "marks_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// SQLStorage implements Backend on database/sql, for SQLite or Postgres.
type SQLStorage struct {
	db       *sql.DB
	postgres bool
	path     string
}

// NewSQLiteStorage opens (creating if needed) the SQLite database at path
// and migrates it to the current schema.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas below in force for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStorage{db: db, path: path}, nil
}

// NewPostgresStorage connects to Postgres through the pgx stdlib driver and
// migrates the schema.
func NewPostgresStorage(ctx context.Context, dsn string) (*SQLStorage, error) {
	if dsn == "" {
		return nil, errors.New("postgres backend requires a DSN")
	}
	if err := migratePostgres(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStorage{db: db, postgres: true}, nil
}

// Path returns the database file path, empty for Postgres.
func (s *SQLStorage) Path() string {
	return s.path
}

// Ping checks the connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStorage) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// execOne runs a single-row statement and maps "no row affected" to
// a not-found error for resource.
func (s *SQLStorage) execOne(ctx context.Context, resource, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound(resource)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// likePattern builds a LIKE pattern for a case-insensitive substring match,
// escaping wildcards with '!'.
// lower wraps col in the dialect's Unicode-aware lowercase function.
func (s *SQLStorage) lower(col string) string {
	if s.postgres {
		return "LOWER(" + col + ")"
	}
	return foldFunc + "(" + col + ")"
}

func likePattern(q string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// --- bookmarks ---

const bookmarkColumns = `id, url, title, description, notes, favicon, folder_id, user_id, created_at, updated_at`

func scanBookmark(row interface{ Scan(...any) error }) (model.Bookmark, error) {
	var b model.Bookmark
	var description, notes, favicon, folderID sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&b.ID, &b.URL, &b.Title, &description, &notes, &favicon,
		&folderID, &b.UserID, &createdAt, &updatedAt); err != nil {
		return b, err
	}
	b.Description = nullString(description)
	b.Notes = nullString(notes)
	b.Favicon = nullString(favicon)
	b.FolderID = nullString(folderID)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// ListBookmarks returns the user's bookmarks matching q, newest first.
func (s *SQLStorage) ListBookmarks(ctx context.Context, userID string, q BookmarkQuery) ([]model.Bookmark, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	switch {
	case q.FolderID != nil:
		where = append(where, "folder_id = ?")
		args = append(args, *q.FolderID)
	case q.RootOnly:
		where = append(where, "folder_id IS NULL")
	}

	if q.Search != "" {
		var fields []string
		p := likePattern(q.Search)
		for _, col := range []string{"title", "description", "url", "notes"} {
			fields = append(fields, s.lower(col)+` LIKE ? ESCAPE '!'`)
			args = append(args, p)
		}
		where = append(where, "("+strings.Join(fields, " OR ")+")")
	}

	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return []model.Bookmark{}, nil
		}
		where = append(where, "id IN ("+placeholders(len(q.IDs))+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}

	rows, err := s.query(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE `+
		strings.Join(where, " AND ")+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// GetBookmark returns one bookmark owned by userID.
func (s *SQLStorage) GetBookmark(ctx context.Context, userID, id string) (model.Bookmark, error) {
	b, err := scanBookmark(s.queryRow(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return b, model.NotFound("bookmark")
	}
	return b, err
}

// InsertBookmarks inserts all rows in one transaction.
func (s *SQLStorage) InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO bookmarks (`+bookmarkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bookmarks {
		if _, err := stmt.ExecContext(ctx, b.ID, b.URL, b.Title, b.Description, b.Notes,
			b.Favicon, b.FolderID, b.UserID, formatTime(b.CreatedAt), formatTime(b.UpdatedAt)); err != nil {
			return fmt.Errorf("insert bookmark %s: %w", b.URL, err)
		}
	}

	return tx.Commit()
}

// UpdateBookmark applies patch to a bookmark owned by userID.
func (s *SQLStorage) UpdateBookmark(ctx context.Context, userID, id string, patch model.BookmarkPatch, updatedAt time.Time) (model.Bookmark, error) {
	current, err := s.GetBookmark(ctx, userID, id)
	if err != nil {
		return current, err
	}
	b := current.Apply(patch, updatedAt)

	err = s.execOne(ctx, "bookmark", `UPDATE bookmarks
		SET url = ?, title = ?, description = ?, notes = ?, favicon = ?, folder_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.URL, b.Title, b.Description, b.Notes, b.Favicon, b.FolderID, formatTime(b.UpdatedAt), id, userID)
	return b, err
}

// DeleteBookmark deletes a bookmark owned by userID.
func (s *SQLStorage) DeleteBookmark(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "bookmark", `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID)
}

// CountBookmarksInFolder counts the user's bookmarks in folderID.
func (s *SQLStorage) CountBookmarksInFolder(ctx context.Context, userID, folderID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM bookmarks WHERE user_id = ? AND folder_id = ?`,
		userID, folderID).Scan(&n)
	return n, err
}

// --- folders ---

const folderColumns = `id, name, description, parent_id, user_id, created_at, updated_at`

func scanFolder(row interface{ Scan(...any) error }) (model.Folder, error) {
	var f model.Folder
	var description, parentID sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&f.ID, &f.Name, &description, &parentID, &f.UserID, &createdAt, &updatedAt); err != nil {
		return f, err
	}
	f.Description = nullString(description)
	f.ParentID = nullString(parentID)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}

// ListFolders returns the user's folders ordered by name.
func (s *SQLStorage) ListFolders(ctx context.Context, userID string) ([]model.Folder, error) {
	rows, err := s.query(ctx, `SELECT `+folderColumns+` FROM folders WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetFolder returns one folder owned by userID.
func (s *SQLStorage) GetFolder(ctx context.Context, userID, id string) (model.Folder, error) {
	f, err := scanFolder(s.queryRow(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return f, model.NotFound("folder")
	}
	return f, err
}

// InsertFolder inserts a folder row.
func (s *SQLStorage) InsertFolder(ctx context.Context, f model.Folder) error {
	_, err := s.exec(ctx, `INSERT INTO folders (`+folderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Description, f.ParentID, f.UserID, formatTime(f.CreatedAt), formatTime(f.UpdatedAt))
	return err
}

// UpdateFolder applies patch to a folder owned by userID.
func (s *SQLStorage) UpdateFolder(ctx context.Context, userID, id string, patch model.FolderPatch, updatedAt time.Time) (model.Folder, error) {
	current, err := s.GetFolder(ctx, userID, id)
	if err != nil {
		return current, err
	}
	f := current.Apply(patch, updatedAt)

	err = s.execOne(ctx, "folder", `UPDATE folders
		SET name = ?, description = ?, parent_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		f.Name, f.Description, f.ParentID, formatTime(f.UpdatedAt), id, userID)
	return f, err
}

// DeleteFolder deletes a folder owned by userID. Contents are not checked here.
func (s *SQLStorage) DeleteFolder(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "folder", `DELETE FROM folders WHERE id = ? AND user_id = ?`, id, userID)
}

// CountChildFolders counts the user's folders whose parent is folderID.
func (s *SQLStorage) CountChildFolders(ctx context.Context, userID, folderID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM folders WHERE user_id = ? AND parent_id = ?`,
		userID, folderID).Scan(&n)
	return n, err
}

// --- tags ---

const tagColumns = `id, name, color, user_id, created_at`

func scanTag(row interface{ Scan(...any) error }) (model.Tag, error) {
	var t model.Tag
	var color sql.NullString
	var createdAt string
	if err := row.Scan(&t.ID, &t.Name, &color, &t.UserID, &createdAt); err != nil {
		return t, err
	}
	t.Color = nullString(color)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// ListTags returns the user's tags ordered by name.
func (s *SQLStorage) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	rows, err := s.query(ctx, `SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetTag returns one tag owned by userID.
func (s *SQLStorage) GetTag(ctx context.Context, userID, id string) (model.Tag, error) {
	t, err := scanTag(s.queryRow(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return t, model.NotFound("tag")
	}
	return t, err
}

// FindTagByName looks a tag up by exact name.
func (s *SQLStorage) FindTagByName(ctx context.Context, userID, name string) (model.Tag, error) {
	t, err := scanTag(s.queryRow(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`, userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return t, model.NotFound("tag")
	}
	return t, err
}

// InsertTag inserts a tag row.
func (s *SQLStorage) InsertTag(ctx context.Context, t model.Tag) error {
	_, err := s.exec(ctx, `INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Color, t.UserID, formatTime(t.CreatedAt))
	return err
}

// UpdateTag applies patch to a tag owned by userID.
func (s *SQLStorage) UpdateTag(ctx context.Context, userID, id string, patch model.TagPatch) (model.Tag, error) {
	current, err := s.GetTag(ctx, userID, id)
	if err != nil {
		return current, err
	}
	t := current.Apply(patch)

	err = s.execOne(ctx, "tag", `UPDATE tags SET name = ?, color = ? WHERE id = ? AND user_id = ?`,
		t.Name, t.Color, id, userID)
	return t, err
}

// DeleteTag deletes a tag owned by userID.
func (s *SQLStorage) DeleteTag(ctx context.Context, userID, id string) error {
	return s.execOne(ctx, "tag", `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
}

// --- associations ---

// ListBookmarkTags returns associations whose bookmark belongs to userID.
func (s *SQLStorage) ListBookmarkTags(ctx context.Context, userID string, bookmarkIDs []string) ([]model.BookmarkTag, error) {
	query := `SELECT bt.bookmark_id, bt.tag_id FROM bookmark_tags bt
		JOIN bookmarks b ON b.id = bt.bookmark_id
		WHERE b.user_id = ?`
	args := []any{userID}

	if bookmarkIDs != nil {
		if len(bookmarkIDs) == 0 {
			return []model.BookmarkTag{}, nil
		}
		query += ` AND bt.bookmark_id IN (` + placeholders(len(bookmarkIDs)) + `)`
		for _, id := range bookmarkIDs {
			args = append(args, id)
		}
	}

	rows, err := s.query(ctx, query+` ORDER BY bt.bookmark_id, bt.tag_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.BookmarkTag{}
	for rows.Next() {
		var bt model.BookmarkTag
		if err := rows.Scan(&bt.BookmarkID, &bt.TagID); err != nil {
			return nil, err
		}
		result = append(result, bt)
	}
	return result, rows.Err()
}

// InsertBookmarkTags inserts association rows. Ownership of both sides is
// checked by the caller.
func (s *SQLStorage) InsertBookmarkTags(ctx context.Context, userID string, links []model.BookmarkTag) error {
	for _, l := range links {
		if _, err := s.exec(ctx, `INSERT INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)`,
			l.BookmarkID, l.TagID); err != nil {
			return fmt.Errorf("link bookmark %s to tag %s: %w", l.BookmarkID, l.TagID, err)
		}
	}
	return nil
}

// DeleteBookmarkTagsByBookmark removes every association of a bookmark.
func (s *SQLStorage) DeleteBookmarkTagsByBookmark(ctx context.Context, userID, bookmarkID string) error {
	_, err := s.exec(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = ?
		AND bookmark_id IN (SELECT id FROM bookmarks WHERE user_id = ?)`, bookmarkID, userID)
	return err
}

// DeleteBookmarkTagsByTag removes every association of a tag.
func (s *SQLStorage) DeleteBookmarkTagsByTag(ctx context.Context, userID, tagID string) error {
	_, err := s.exec(ctx, `DELETE FROM bookmark_tags WHERE tag_id = ?
		AND tag_id IN (SELECT id FROM tags WHERE user_id = ?)`, tagID, userID)
	return err
}

// --- profiles and preferences ---

// GetProfile returns the user's profile.
func (s *SQLStorage) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	var fullName sql.NullString
	var createdAt, updatedAt string
	err := s.queryRow(ctx, `SELECT id, full_name, created_at, updated_at FROM profiles WHERE id = ?`, userID).
		Scan(&p.ID, &fullName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.NotFound("profile")
	}
	if err != nil {
		return p, err
	}
	p.FullName = nullString(fullName)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// UpsertProfile inserts or replaces the profile row.
func (s *SQLStorage) UpsertProfile(ctx context.Context, p model.Profile) error {
	_, err := s.exec(ctx, `INSERT INTO profiles (id, full_name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET full_name = excluded.full_name, updated_at = excluded.updated_at`,
		p.ID, p.FullName, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

// GetPreferences returns the user's preferences.
func (s *SQLStorage) GetPreferences(ctx context.Context, userID string) (model.UserPreferences, error) {
	var p model.UserPreferences
	var updatedAt string
	err := s.queryRow(ctx, `SELECT user_id, auto_fetch_metadata, email_notifications, updated_at
		FROM user_preferences WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.AutoFetchMetadata, &p.EmailNotifications, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.NotFound("preferences")
	}
	if err != nil {
		return p, err
	}
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// UpsertPreferences inserts or replaces the preferences row.
func (s *SQLStorage) UpsertPreferences(ctx context.Context, p model.UserPreferences) error {
	_, err := s.exec(ctx, `INSERT INTO user_preferences (user_id, auto_fetch_metadata, email_notifications, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET auto_fetch_metadata = excluded.auto_fetch_metadata,
			email_notifications = excluded.email_notifications, updated_at = excluded.updated_at`,
		p.UserID, p.AutoFetchMetadata, p.EmailNotifications, formatTime(p.UpdatedAt))
	return err
}
