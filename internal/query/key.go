// Package query caches reads of the service layer per session and keeps the
// cache in step with mutations: successful writes mark the related views
// stale, and deletes are applied optimistically with rollback on failure.
package query

import "strings"

// Key addresses a cached view. Keys are hierarchical: a key matches every
// key it is a prefix of, so Key{"bookmarks"} covers all bookmark views.
type Key []string

// HasPrefix reports whether prefix is a leading part of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// String joins the parts with slashes, for logs.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// id is the map key of k. Parts may contain slashes, so a control character
// separates them.
func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

func (k Key) clone() Key {
	return append(Key(nil), k...)
}

// BookmarksAll covers every bookmark view.
func BookmarksAll() Key { return Key{"bookmarks"} }

// BookmarkList is the unfiltered bookmark list.
func BookmarkList() Key { return Key{"bookmarks", "list"} }

// BookmarkDetail is a single bookmark.
func BookmarkDetail(id string) Key { return Key{"bookmarks", "detail", id} }

// BookmarkFolders covers the per-folder bookmark lists.
func BookmarkFolders() Key { return Key{"bookmarks", "folder"} }

// BookmarksByFolder is the bookmark list of one folder. A nil folderID is
// the root level.
func BookmarksByFolder(folderID *string) Key {
	if folderID == nil {
		return Key{"bookmarks", "folder", ""}
	}
	return Key{"bookmarks", "folder", *folderID}
}

// BookmarkSearches covers every cached search.
func BookmarkSearches() Key { return Key{"bookmarks", "search"} }

// SearchBookmarks is the result of one search query.
func SearchBookmarks(q string) Key { return Key{"bookmarks", "search", q} }

// TaggedBookmarks covers the per-tag bookmark lists.
func TaggedBookmarks() Key { return Key{"bookmarks", "tag"} }

// BookmarksByTag is the bookmark list of one tag.
func BookmarksByTag(tagID string) Key { return Key{"bookmarks", "tag", tagID} }

// Folders is the folder list; it also prefixes single-folder views.
func Folders() Key { return Key{"folders"} }

// Folder is a single folder.
func Folder(id string) Key { return Key{"folders", id} }

// ParentCandidates lists the folders a folder may be moved under.
func ParentCandidates(id string) Key { return Key{"folders", id, "parents"} }

// Tags is the tag list; it also prefixes single-tag views.
func Tags() Key { return Key{"tags"} }

// Tag is a single tag.
func Tag(id string) Key { return Key{"tags", id} }

// Profile is the current user's profile.
func Profile() Key { return Key{"user", "profile"} }

// Preferences is the current user's preferences.
func Preferences() Key { return Key{"user", "preferences"} }
