package model

import "time"

// Tag is a user-defined label that cross-cuts folders.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkTag associates a bookmark with a tag.
type BookmarkTag struct {
	BookmarkID string `json:"bookmark_id"`
	TagID      string `json:"tag_id"`
}

// NewTagParams holds parameters for creating a new Tag.
type NewTagParams struct {
	Name  string
	Color *string
}

// TagPatch holds the fields of a tag update. An empty Color clears it.
type TagPatch struct {
	Name  *string
	Color *string
}

// NewTag creates a Tag with generated UUID.
func NewTag(userID string, params NewTagParams) Tag {
	return Tag{
		ID:        GenerateUUID(),
		Name:      params.Name,
		Color:     params.Color,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

// Apply returns a copy of t with the patch applied.
func (t Tag) Apply(p TagPatch) Tag {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Color != nil {
		t.Color = nilIfEmpty(*p.Color)
	}
	return t
}
