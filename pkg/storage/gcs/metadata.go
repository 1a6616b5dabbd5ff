package gcs

import "strings"

// SanitizeMetadata maps arbitrary metadata onto the character set the blob
// store accepts: keys become [A-Za-z_][A-Za-z0-9_]* and values single-line
// printable ASCII. The transformation is deterministic and idempotent, so
// re-sanitizing an already-sanitized map is a no-op.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	clean := make(map[string]string, len(metadata))
	for key, value := range metadata {
		clean[SanitizeKey(key)] = SanitizeValue(value)
	}
	return clean
}

// SanitizeKey rewrites key into [A-Za-z_][A-Za-z0-9_]*. Illegal characters
// become underscores, runs of underscores collapse, and a leading digit is
// prefixed with an underscore.
func SanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 1)

	lastUnderscore := false
	for _, r := range key {
		legal := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !legal {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}

// SanitizeValue restricts value to single-line printable ASCII: control
// characters become spaces and non-ASCII runes are dropped.
func SanitizeValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r < 32 || r == 127:
			b.WriteRune(' ')
		case r > 126:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
