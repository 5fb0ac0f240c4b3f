package model

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field limits, in characters.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
	MaxNotesLength       = 2000
	MaxNameLength        = 100
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidateURL checks that raw is an absolute http or https URL and returns
// it trimmed.
func ValidateURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", fieldError("url", "URL is required")
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", fieldError("url", "must be a valid HTTP/HTTPS URL")
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", fieldError("url", "invalid URL format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fieldError("url", "only HTTP and HTTPS protocols are allowed")
	}
	return u, nil
}

// ValidateColor checks an optional hex color. Empty means "no color".
func ValidateColor(c string) error {
	if c == "" || hexColor.MatchString(c) {
		return nil
	}
	return fieldError("color", "must be a hex color like #3B82F6")
}

// ValidateNewBookmark validates and sanitizes bookmark creation params.
func ValidateNewBookmark(p NewBookmarkParams) (NewBookmarkParams, error) {
	var verr ValidationError

	if u, err := ValidateURL(p.URL); err != nil {
		verr.Add("url", err.(*ValidationError).Fields["url"])
	} else {
		p.URL = u
	}

	p.Title = requiredText(&verr, "title", p.Title, MaxTitleLength)
	p.Description = optionalText(&verr, "description", p.Description, MaxDescriptionLength)
	p.Notes = optionalText(&verr, "notes", p.Notes, MaxNotesLength)
	p.Favicon = optionalURL(&verr, "favicon", p.Favicon)
	p.FolderID = optionalID(&verr, "folder_id", p.FolderID)

	for _, id := range p.TagIDs {
		if !IsUUID(id) {
			verr.Add("tag_ids", "invalid ID format")
		}
	}

	return p, verr.OrNil()
}

// ValidateBookmarkPatch validates the present fields of a bookmark update.
func ValidateBookmarkPatch(p BookmarkPatch) (BookmarkPatch, error) {
	var verr ValidationError

	if p.URL != nil {
		if u, err := ValidateURL(*p.URL); err != nil {
			verr.Add("url", err.(*ValidationError).Fields["url"])
		} else {
			p.URL = &u
		}
	}
	if p.Title != nil {
		t := requiredText(&verr, "title", *p.Title, MaxTitleLength)
		p.Title = &t
	}
	if p.Description != nil {
		p.Description = emptyIfNil(optionalText(&verr, "description", p.Description, MaxDescriptionLength))
	}
	if p.Notes != nil {
		p.Notes = emptyIfNil(optionalText(&verr, "notes", p.Notes, MaxNotesLength))
	}
	if p.Favicon != nil {
		p.Favicon = emptyIfNil(optionalURL(&verr, "favicon", p.Favicon))
	}
	if p.FolderID != nil {
		p.FolderID = optionalID(&verr, "folder_id", p.FolderID)
	}

	return p, verr.OrNil()
}

// ValidateNewFolder validates and sanitizes folder creation params.
func ValidateNewFolder(p NewFolderParams) (NewFolderParams, error) {
	var verr ValidationError
	p.Name = requiredText(&verr, "name", p.Name, MaxNameLength)
	p.Description = optionalText(&verr, "description", p.Description, MaxDescriptionLength)
	p.ParentID = optionalID(&verr, "parent_id", p.ParentID)
	return p, verr.OrNil()
}

// ValidateFolderPatch validates the present fields of a folder update.
func ValidateFolderPatch(p FolderPatch) (FolderPatch, error) {
	var verr ValidationError
	if p.Name != nil {
		n := requiredText(&verr, "name", *p.Name, MaxNameLength)
		p.Name = &n
	}
	if p.Description != nil {
		p.Description = emptyIfNil(optionalText(&verr, "description", p.Description, MaxDescriptionLength))
	}
	if p.ParentID != nil {
		p.ParentID = optionalID(&verr, "parent_id", p.ParentID)
	}
	return p, verr.OrNil()
}

// ValidateNewTag validates and sanitizes tag creation params.
func ValidateNewTag(p NewTagParams) (NewTagParams, error) {
	var verr ValidationError
	p.Name = requiredText(&verr, "name", p.Name, MaxNameLength)
	if p.Color != nil {
		c := strings.TrimSpace(*p.Color)
		if err := ValidateColor(c); err != nil {
			verr.Add("color", err.(*ValidationError).Fields["color"])
		}
		p.Color = nilIfEmpty(c)
	}
	return p, verr.OrNil()
}

// ValidateTagPatch validates the present fields of a tag update.
func ValidateTagPatch(p TagPatch) (TagPatch, error) {
	var verr ValidationError
	if p.Name != nil {
		n := requiredText(&verr, "name", *p.Name, MaxNameLength)
		p.Name = &n
	}
	if p.Color != nil {
		c := strings.TrimSpace(*p.Color)
		if err := ValidateColor(c); err != nil {
			verr.Add("color", err.(*ValidationError).Fields["color"])
		}
		p.Color = &c
	}
	return p, verr.OrNil()
}

// ValidateProfilePatch validates and sanitizes a profile update.
func ValidateProfilePatch(p ProfilePatch) (ProfilePatch, error) {
	var verr ValidationError
	if p.FullName != nil {
		p.FullName = emptyIfNil(optionalText(&verr, "full_name", p.FullName, MaxNameLength))
	}
	return p, verr.OrNil()
}

func fieldError(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

func requiredText(verr *ValidationError, field, s string, max int) string {
	s = Sanitize(s)
	switch {
	case s == "":
		verr.Add(field, field+" is required")
	case utf8.RuneCountInString(s) > max:
		verr.Add(field, field+" must be at most "+strconv.Itoa(max)+" characters")
	}
	return s
}

func optionalText(verr *ValidationError, field string, s *string, max int) *string {
	if s == nil {
		return nil
	}
	v := Sanitize(*s)
	if utf8.RuneCountInString(v) > max {
		verr.Add(field, field+" must be at most "+strconv.Itoa(max)+" characters")
	}
	return nilIfEmpty(v)
}

func optionalURL(verr *ValidationError, field string, s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	u, err := ValidateURL(*s)
	if err != nil {
		verr.Add(field, err.(*ValidationError).Fields["url"])
		return nil
	}
	return &u
}

func optionalID(verr *ValidationError, field string, s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	if !IsUUID(*s) {
		verr.Add(field, "invalid ID format")
	}
	return s
}

// emptyIfNil keeps "present but cleared" distinguishable from "absent" in patches.
func emptyIfNil(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}
