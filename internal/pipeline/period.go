package pipeline

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/textnorm"
)

var (
	eraPeriodPattern     = regexp.MustCompile(`令和\s*(\d{1,2})年\s*(\d{1,2})月`)
	westernPeriodPattern = regexp.MustCompile(`(20\d{2})年\s*(\d{1,2})月`)
	slashPeriodPattern   = regexp.MustCompile(`\b(20\d{2})[/.-](\d{1,2})\b`)
)

// detectPeriod scans document text for an accounting period and returns it
// as YYMM, or "" when nothing usable is found. Reiwa era years offset by
// 2018.
func detectPeriod(text string) string {
	s := textnorm.Normalize(text)

	if m := eraPeriodPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return formatPeriod(year+18, month)
	}
	if m := westernPeriodPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return formatPeriod(year%100, month)
	}
	if m := slashPeriodPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return formatPeriod(year%100, month)
	}
	return ""
}

func formatPeriod(yy, mm int) string {
	candidate := fmt.Sprintf("%02d%02d", yy, mm)
	if normalized, ok := jobctx.NormalizePeriod(candidate); ok {
		return normalized
	}
	return ""
}
