package model

import (
	"regexp"
	"strings"
)

// Denylist of markup that must never reach storage. Order matters: whole
// blocks go first so their bodies are removed with them.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b.*?</script\s*>`),
	regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`),
	regexp.MustCompile(`(?is)<object\b.*?</object\s*>`),
	regexp.MustCompile(`(?i)</?script\b[^>]*>`),
	regexp.MustCompile(`(?i)<embed\b[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

// Sanitize strips script blocks, script-bearing URL schemes and inline
// event handlers from free text, then trims surrounding whitespace.
// Removal repeats until nothing matches, so a removal cannot splice the
// remaining text into a new match.
func Sanitize(s string) string {
	for {
		before := s
		for _, re := range dangerousPatterns {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			return strings.TrimSpace(s)
		}
	}
}

// nilIfEmpty returns nil for empty strings so optional columns store NULL.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
