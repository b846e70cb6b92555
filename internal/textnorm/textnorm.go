// Package textnorm normalizes OCR and form text ahead of keyword matching.
// Scanned tax documents mix full-width and half-width alphanumerics, so
// both sides of every comparison go through the same folding.
package textnorm

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// FoldWidth maps full-width digits and latin letters to their ASCII forms.
func FoldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r >= 'Ａ' && r <= 'Ｚ':
			return 'A' + (r - 'Ａ')
		case r >= 'ａ' && r <= 'ｚ':
			return 'a' + (r - 'ａ')
		case r == '　':
			return ' '
		}
		return r
	}, s)
}

// Normalize folds character widths and collapses whitespace runs.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = FoldWidth(s)
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
