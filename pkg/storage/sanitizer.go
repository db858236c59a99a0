package storage

import (
	"html"
	"strings"
)

const (
	// MaxNameLength is the maximum allowed length for display names and tags
	MaxNameLength = 256
)

// SanitizeName cleans a display string before it is stored.
// It removes null bytes, HTML-escapes the value and enforces MaxNameLength.
func SanitizeName(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)
	s = html.EscapeString(s)
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}

// SanitizeTags cleans each tag and drops empty ones.
func SanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = SanitizeName(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
