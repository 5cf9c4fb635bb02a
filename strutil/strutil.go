package strutil

import "strings"

// NormalizeLower trims surrounding whitespace and converts to lower case.
// Use for config enums and other tokens where case is not significant.
func NormalizeLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// TruncateRunes shortens value to at most width runes, marking the cut with
// an ellipsis. Widths below one yield "".
func TruncateRunes(value string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(value)
	if len(r) <= width {
		return value
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
