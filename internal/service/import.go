package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

// ImportResult summarizes an import. TagErrors counts tag lookups, creations
// or links that failed and were skipped; the bookmarks themselves were still
// imported.
type ImportResult struct {
	Bookmarks   []model.Bookmark `json:"bookmarks"`
	TagsCreated int              `json:"tags_created"`
	TagErrors   int              `json:"tag_errors"`
}

// Import inserts records as new bookmarks of the current user, in one batch,
// then attaches their tags by name. A tag name the user does not have yet is
// created with the record's color.
//
// Every record is validated before anything is written; one invalid record
// rejects the whole import with a ValidationError whose fields are prefixed
// with the record index, e.g. "bookmarks[3].url".
func (s *Service) Import(ctx context.Context, records []importer.Record) (ImportResult, error) {
	if _, err := s.UserID(); err != nil {
		return ImportResult{}, err
	}

	now := s.now()
	bookmarks := make([]model.Bookmark, 0, len(records))
	var verr model.ValidationError
	for i, r := range records {
		title := r.Title
		if strings.TrimSpace(title) == "" {
			title = r.URL
		}
		params, err := model.ValidateNewBookmark(model.NewBookmarkParams{
			URL:         r.URL,
			Title:       title,
			Description: r.Description,
			Notes:       r.Notes,
			Favicon:     r.Favicon,
		})
		if err != nil {
			var fields *model.ValidationError
			if errors.As(err, &fields) {
				for f, msg := range fields.Fields {
					verr.Add(fmt.Sprintf("bookmarks[%d].%s", i, f), msg)
				}
				continue
			}
			return ImportResult{}, s.fail("import", err)
		}

		b := model.NewBookmark("", params)
		b.CreatedAt = now
		b.UpdatedAt = now
		bookmarks = append(bookmarks, b)
	}
	if err := verr.OrNil(); err != nil {
		return ImportResult{}, s.fail("import", err, zap.Int("records", len(records)))
	}

	result := ImportResult{Bookmarks: bookmarks}
	if len(bookmarks) == 0 {
		return result, nil
	}
	if err := s.scope.InsertBookmarks(ctx, bookmarks); err != nil {
		return ImportResult{}, s.fail("import", err, zap.Int("records", len(records)))
	}
	uid, _ := s.UserID()
	for i := range result.Bookmarks {
		result.Bookmarks[i].UserID = uid
	}

	known := make(map[string]string)
	for i, r := range records {
		bookmarkID := bookmarks[i].ID
		for _, name := range tagNames(r.Tags) {
			tagID, created, err := s.resolveTag(ctx, known, name, colorFor(r.Tags, name))
			if err != nil {
				result.TagErrors++
				s.log.Warn("import tag skipped", zap.String("tag", name), zap.Error(err))
				continue
			}
			if created {
				result.TagsCreated++
			}
			err = s.scope.InsertBookmarkTags(ctx, []model.BookmarkTag{{BookmarkID: bookmarkID, TagID: tagID}})
			if err != nil {
				result.TagErrors++
				s.log.Warn("import tag link skipped", zap.String("tag", name), zap.Error(err))
			}
		}
	}

	s.log.Info("bookmarks imported",
		zap.Int("bookmarks", len(result.Bookmarks)),
		zap.Int("tags_created", result.TagsCreated),
		zap.Int("tag_errors", result.TagErrors))
	return result, nil
}

// resolveTag finds the user's tag called name, or creates it. known caches
// names already resolved during this import.
func (s *Service) resolveTag(ctx context.Context, known map[string]string, name string, color *string) (string, bool, error) {
	if id, ok := known[name]; ok {
		return id, false, nil
	}
	params, err := model.ValidateNewTag(model.NewTagParams{Name: name, Color: color})
	if err != nil {
		return "", false, err
	}

	existing, err := s.scope.FindTagByName(ctx, params.Name)
	if err == nil {
		known[name] = existing.ID
		return existing.ID, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return "", false, err
	}

	t := model.NewTag("", params)
	t.CreatedAt = s.now()
	if err := s.scope.InsertTag(ctx, t); err != nil {
		return "", false, err
	}
	known[name] = t.ID
	return t.ID, true, nil
}

// tagNames returns the distinct non-blank names of refs in order.
func tagNames(refs []importer.TagRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name != "" {
			names = append(names, name)
		}
	}
	return dedupe(names)
}

func colorFor(refs []importer.TagRef, name string) *string {
	for _, ref := range refs {
		if strings.TrimSpace(ref.Name) == name && ref.Color != nil {
			return ref.Color
		}
	}
	return nil
}
