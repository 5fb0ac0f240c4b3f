package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/marks/internal/model"
)

// Match is a bookmark ranked against a query.
type Match struct {
	Bookmark       model.BookmarkWithRelations
	Score          int
	MatchedIndexes []int
}

// bookmarkTitles implements fuzzy.Source.
type bookmarkTitles []model.BookmarkWithRelations

func (b bookmarkTitles) String(i int) string { return b[i].Title }
func (b bookmarkTitles) Len() int            { return len(b) }

// Rank orders bookmarks by how well their titles fuzzy-match query. Bookmarks
// that do not match are dropped. An empty query keeps the input order.
func Rank(query string, bookmarks []model.BookmarkWithRelations) []Match {
	if query == "" {
		out := make([]Match, len(bookmarks))
		for i, b := range bookmarks {
			out[i] = Match{Bookmark: b}
		}
		return out
	}

	matches := fuzzy.FindFrom(query, bookmarkTitles(bookmarks))
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{
			Bookmark:       bookmarks[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return out
}

// Highlight returns the indexes of title's characters matched by query, or
// nil if the title does not match.
func Highlight(query, title string) []int {
	if query == "" {
		return nil
	}
	matches := fuzzy.Find(query, []string{title})
	if len(matches) == 0 {
		return nil
	}
	return matches[0].MatchedIndexes
}
