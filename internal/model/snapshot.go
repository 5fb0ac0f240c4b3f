package model

// Snapshot is a point-in-time copy of one user's bookmark data.
// It backs the JSON store and the HTML export tree walk.
type Snapshot struct {
	Folders      []Folder      `json:"folders"`
	Bookmarks    []Bookmark    `json:"bookmarks"`
	Tags         []Tag         `json:"tags"`
	BookmarkTags []BookmarkTag `json:"bookmark_tags"`
}

// NewSnapshot creates an empty Snapshot with initialized slices.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Folders:      []Folder{},
		Bookmarks:    []Bookmark{},
		Tags:         []Tag{},
		BookmarkTags: []BookmarkTag{},
	}
}

// GetFoldersInFolder returns folders with the given parent ID.
// Pass nil for root level folders.
func (s *Snapshot) GetFoldersInFolder(parentID *string) []Folder {
	var result []Folder
	for _, f := range s.Folders {
		if ptrEqual(f.ParentID, parentID) {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks in the given folder.
// Pass nil for root level bookmarks.
func (s *Snapshot) GetBookmarksInFolder(folderID *string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if ptrEqual(b.FolderID, folderID) {
			result = append(result, b)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Snapshot) GetFolderByID(id string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// TagsForBookmark returns the tags attached to a bookmark, in tag order.
func (s *Snapshot) TagsForBookmark(bookmarkID string) []Tag {
	attached := make(map[string]bool)
	for _, bt := range s.BookmarkTags {
		if bt.BookmarkID == bookmarkID {
			attached[bt.TagID] = true
		}
	}
	var result []Tag
	for _, t := range s.Tags {
		if attached[t.ID] {
			result = append(result, t)
		}
	}
	return result
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
