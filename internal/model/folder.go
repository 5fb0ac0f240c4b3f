package model

import "time"

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ParentID    *string   `json:"parent_id"` // nil = root level
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name        string
	Description *string
	ParentID    *string
}

// FolderPatch holds the fields of a folder update. ClearParent moves the
// folder to the root level.
type FolderPatch struct {
	Name        *string
	Description *string
	ParentID    *string
	ClearParent bool
}

// NewFolder creates a Folder with generated UUID.
func NewFolder(userID string, params NewFolderParams) Folder {
	now := time.Now().UTC()
	return Folder{
		ID:          GenerateUUID(),
		Name:        params.Name,
		Description: params.Description,
		ParentID:    params.ParentID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply returns a copy of f with the patch applied.
func (f Folder) Apply(p FolderPatch, updatedAt time.Time) Folder {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = nilIfEmpty(*p.Description)
	}
	if p.ClearParent {
		f.ParentID = nil
	} else if p.ParentID != nil {
		id := *p.ParentID
		f.ParentID = &id
	}
	f.UpdatedAt = updatedAt
	return f
}
