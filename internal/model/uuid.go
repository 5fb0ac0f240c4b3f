package model

import "github.com/google/uuid"

// GenerateUUID creates a new UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}

// IsUUID reports whether s is a well-formed UUID.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
