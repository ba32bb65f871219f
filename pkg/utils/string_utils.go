package utils

import "strings"

// TrimSpaceSlice trims whitespace from all strings in a slice and filters out empty strings
func TrimSpaceSlice(items []string) []string {
	var result []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseClasspath splits a classpath on ':' or ';' into trimmed, non-empty entries
func ParseClasspath(input string) []string {
	if input == "" {
		return nil
	}

	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ':' || r == ';'
	})
	return TrimSpaceSlice(parts)
}

// ParseListFile parses the content of a list file: one entry per line,
// blank lines and lines starting with '#' are ignored
func ParseListFile(content string) []string {
	var result []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result = append(result, line)
	}
	return result
}

// SanitizeIdentifier replaces every character that is not a letter, digit or underscore with '_'
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
