package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

const maxFileNameLen = 100

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens an uploaded file name into one safe path segment.
// Separators and whitespace become underscores, control characters are dropped
// and long names are shortened with the extension kept.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			b.WriteByte('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "", errInvalidFileName
	}
	if runes := []rune(s); len(runes) > maxFileNameLen {
		ext := []rune(filepath.Ext(s))
		if len(ext) >= maxFileNameLen {
			ext = nil
		}
		s = string(runes[:maxFileNameLen-len(ext)]) + string(ext)
	}
	return s, nil
}
