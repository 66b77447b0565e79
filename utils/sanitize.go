package utils

import "github.com/microcosm-cc/bluemonday"

// Streak titles and check-in notes are plain text; strip all markup
// rather than allowing a UGC subset.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize removes any HTML from user supplied text to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
