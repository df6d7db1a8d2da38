package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxValueLogLength is the maximum length of a cell value or column name in a log line
	MaxValueLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match credentials embedded in URLs (user:pass@host format)
	urlCredentialsPattern = regexp.MustCompile(`://[^:/@\s]+:[^@/\s]+@`)

	// Pattern to match tokens or keys passed as query parameters
	queryTokenPattern = regexp.MustCompile(`(?i)([?&](?:token|access_token|api[_-]?key|key|sig|signature)=)[^&\s]+`)
)

// SanitizeURL removes credentials from a model download URL.
// Use this before logging any artifact URL.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	sanitized := urlCredentialsPattern.ReplaceAllString(rawURL, "://"+RedactedText+"@")
	sanitized = queryTokenPattern.ReplaceAllString(sanitized, "${1}"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might embed a download URL.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeURL(err.Error())
}

// Truncate shortens a value for logging to MaxValueLogLength runes.
func Truncate(s string) string {
	return TruncateString(s, MaxValueLogLength)
}

// TruncateString truncates a string to maxLen runes and adds ellipsis if needed.
// It never splits a multi-byte character.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
