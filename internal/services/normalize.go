package services

import (
	"regexp"
	"strings"
)

var (
	titleAnnotation = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	titleSuffix     = regexp.MustCompile(`(?i)\s+-\s+(single|ep|album)\s*$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// NormalizeTitle folds a release title for cross-provider comparison.
//
// Lowercases, drops parenthesised/bracketed annotations such as "(Remastered)" and a trailing
// "- Single", "- EP" or "- Album" marker, and collapses whitespace.
func NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = titleAnnotation.ReplaceAllString(t, "")
	t = titleSuffix.ReplaceAllString(t, "")
	t = whitespace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
