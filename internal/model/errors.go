package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication required")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrImportFormat   = errors.New("unsupported import format")

	// ErrPartialWrite marks a multi-step mutation that failed after its first
	// step committed. The entity is left in the documented partial state.
	ErrPartialWrite = errors.New("partial write")

	ErrFolderNotEmpty = fmt.Errorf("%w: folder not empty", ErrConflict)
	ErrFolderCycle    = fmt.Errorf("%w: folder cannot be moved into itself or its subfolder", ErrConflict)
)

// ValidationError carries field-level messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

// Error implements error.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFound wraps ErrNotFound with the resource name.
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// FolderNotEmpty describes what blocks a folder deletion.
func FolderNotEmpty(bookmarks, subfolders int) error {
	switch {
	case subfolders > 0 && bookmarks > 0:
		return fmt.Errorf("%w: contains %d bookmarks and %d subfolders", ErrFolderNotEmpty, bookmarks, subfolders)
	case subfolders > 0:
		return fmt.Errorf("%w: contains subfolders", ErrFolderNotEmpty)
	default:
		return fmt.Errorf("%w: contains bookmarks", ErrFolderNotEmpty)
	}
}
