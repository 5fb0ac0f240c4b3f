package model

import "time"

// Bookmark represents a saved URL owned by a single user.
type Bookmark struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Notes       *string   `json:"notes"`
	Favicon     *string   `json:"favicon"`
	FolderID    *string   `json:"folder_id"` // nil = root level
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FolderRef is the denormalized folder summary embedded in bookmark reads.
type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookmarkWithRelations is a bookmark joined with its folder and tags.
type BookmarkWithRelations struct {
	Bookmark
	Folder *FolderRef `json:"folders"`
	Tags   []Tag      `json:"tags"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	URL         string
	Title       string
	Description *string
	Notes       *string
	Favicon     *string
	FolderID    *string
	TagIDs      []string
}

// BookmarkPatch holds the fields of a bookmark update. Nil fields are left
// untouched. ClearFolder moves the bookmark to the root level.
type BookmarkPatch struct {
	URL         *string
	Title       *string
	Description *string
	Notes       *string
	Favicon     *string
	FolderID    *string
	ClearFolder bool
}

// Empty reports whether the patch changes nothing.
func (p BookmarkPatch) Empty() bool {
	return p.URL == nil && p.Title == nil && p.Description == nil &&
		p.Notes == nil && p.Favicon == nil && p.FolderID == nil && !p.ClearFolder
}

// NewBookmark creates a Bookmark with generated UUID and timestamps.
// Params are expected to be validated already.
func NewBookmark(userID string, params NewBookmarkParams) Bookmark {
	now := time.Now().UTC()
	return Bookmark{
		ID:          GenerateUUID(),
		URL:         params.URL,
		Title:       params.Title,
		Description: params.Description,
		Notes:       params.Notes,
		Favicon:     params.Favicon,
		FolderID:    params.FolderID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply returns a copy of b with the patch applied.
func (b Bookmark) Apply(p BookmarkPatch, updatedAt time.Time) Bookmark {
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = nilIfEmpty(*p.Description)
	}
	if p.Notes != nil {
		b.Notes = nilIfEmpty(*p.Notes)
	}
	if p.Favicon != nil {
		b.Favicon = nilIfEmpty(*p.Favicon)
	}
	if p.ClearFolder {
		b.FolderID = nil
	} else if p.FolderID != nil {
		id := *p.FolderID
		b.FolderID = &id
	}
	b.UpdatedAt = updatedAt
	return b
}

// HasTag reports whether the bookmark carries a tag with the given name.
func (b BookmarkWithRelations) HasTag(name string) bool {
	for _, t := range b.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}
