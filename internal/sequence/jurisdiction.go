package sequence

import (
	"regexp"

	"github.com/taxkit/tax-document-renamer/internal/textnorm"
)

// Lightweight jurisdiction-name heuristic. This deliberately is not the
// full classifier: it only has to find a candidate name for slot lookup,
// and the slot match tolerates surrounding office-name noise.
var (
	prefecturePattern   = regexp.MustCompile(`(東京都|北海道|京都府|大阪府|[\p{Han}]{2,3}県)`)
	municipalityPattern = regexp.MustCompile(`([\p{Han}]{1,4}[市区町村])`)
)

// extractJurisdiction pulls the first prefecture-like and municipality-like
// name out of the unit's own text.
func extractJurisdiction(text string) (prefecture, municipality string) {
	normalized := textnorm.Normalize(text)
	if m := prefecturePattern.FindString(normalized); m != "" {
		prefecture = m
	}
	if m := municipalityPattern.FindString(normalized); m != "" {
		municipality = m
	}
	return prefecture, municipality
}
