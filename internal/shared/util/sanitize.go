package util

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// maxFileNameLen bounds stored names; uploaded spreadsheet names feed into
// object store keys and must stay within common key length limits.
const maxFileNameLen = 200

// SanitizeFileName removes path separators and control characters and
// rejects traversal patterns. Returns an error for names that are empty
// after cleaning.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		// Keep the tail so the extension survives; skip any partial rune.
		s = s[len(s)-maxFileNameLen:]
		for len(s) > 0 && !utf8.RuneStart(s[0]) {
			s = s[1:]
		}
	}
	return s, nil
}
