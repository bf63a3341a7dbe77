// Package security holds helpers for turning dataset identifiers into
// safe file names.
package security

import "strings"

// maxFilenameLen bounds sanitised names so deep scene/agent IDs do not
// produce overlong paths.
const maxFilenameLen = 128

// SanitizeFilename makes a safe filename from an arbitrary string. Any
// character that is not an ASCII letter, digit, dot, underscore or dash
// becomes an underscore; runs of underscores collapse; leading and
// trailing dots and underscores are trimmed. An empty result is
// "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// JoinFilename sanitises each part and joins them with underscores, so
// that IDs containing separators cannot merge into one another.
func JoinFilename(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		clean = append(clean, SanitizeFilename(p))
	}
	return SanitizeFilename(strings.Join(clean, "_"))
}
