package notes

import (
	"regexp"
	"strings"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// wordCount counts whitespace-separated tokens after stripping HTML tags.
func wordCount(htmlContent string) int {
	if htmlContent == "" {
		return 0
	}
	text := htmlTagPattern.ReplaceAllString(htmlContent, " ")
	return len(strings.Fields(text))
}

// characterCount counts the characters remaining after stripping HTML tags.
func characterCount(htmlContent string) int {
	if htmlContent == "" {
		return 0
	}
	return len(htmlTagPattern.ReplaceAllString(htmlContent, ""))
}
