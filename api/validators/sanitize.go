package validators

import "strings"

// SanitizeString trims surrounding whitespace from path and query inputs such
// as product ids and slugs, capping them at maxLen bytes when maxLen is
// positive.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
