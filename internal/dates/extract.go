// Package dates extracts expiry dates from noisy OCR text.
//
// Packaging photos usually contain several date-like substrings (expiry,
// manufacture, lot codes). All candidates matching the grammar are
// collected, implausible ones are rejected against a ±10 year window, and
// the chronologically latest survivor is returned: expiry dates sit after
// manufacture dates.
package dates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NotFound is the terminal value when no plausible month/year is present.
const NotFound = "No encontrada"

// yearWindow bounds accepted years to now ± this many years.
const yearWindow = 10

type patternKind int

const (
	kindMonthYear4   patternKind = iota // MM sep YYYY
	kindMonthYear2                      // MM sep YY, not followed by a digit
	kindNameYear                        // month name + YYYY
	kindDayMonthYear                    // DD sep MM sep YYYY
	kindYearMonth                       // YYYY sep MM
)

// The separator class matches slash, backslash, ASCII hyphen, en/em dash.
// The two-digit-year guards consume one trailing non-digit (or the end of
// input) in place of a lookahead.
var patterns = []struct {
	re   *regexp.Regexp
	kind patternKind
}{
	{regexp.MustCompile(`(0[1-9]|1[0-2])[/\\\-–—](20\d{2})`), kindMonthYear4},
	{regexp.MustCompile(`(0[1-9]|1[0-2])[/\\\-–—](\d{2})(?:[^0-9]|$)`), kindMonthYear2},
	{regexp.MustCompile(`(ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic|jan|apr|aug|dec)[a-z]*[\s\-–—/\\]*(\d{4})`), kindNameYear},
	{regexp.MustCompile(`(\d{1,2})[/\\\-–—](0[1-9]|1[0-2])[/\\\-–—](20\d{2})`), kindDayMonthYear},
	{regexp.MustCompile(`(20\d{2})[\-–—/\\](0[1-9]|1[0-2])`), kindYearMonth},
	{regexp.MustCompile(`(0[1-9]|1[0-2])(20\d{2})`), kindMonthYear4},
	{regexp.MustCompile(`(0[1-9]|1[0-2])(\d{2})(?:[^0-9]|$)`), kindMonthYear2},
}

var fullDate = regexp.MustCompile(`\b(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/(20\d{2})\b`)

// noise keeps word characters, whitespace and the separator symbols the
// grammar understands; everything else is stripped before matching.
var noise = regexp.MustCompile(`[^\w\s/\\\-–—.:]`)

var monthNames = map[string]int{
	"ene": 1, "feb": 2, "mar": 3, "abr": 4,
	"may": 5, "jun": 6, "jul": 7, "ago": 8,
	"sep": 9, "oct": 10, "nov": 11, "dic": 12,
	"jan": 1, "apr": 4, "aug": 8, "dec": 12,
}

type candidate struct {
	month, year int
}

// MonthNumber maps a month-name token to 1..12 by its 3-letter prefix
// (Spanish primary, English aliases). Unrecognized prefixes map to 0.
func MonthNumber(name string) int {
	name = strings.ToLower(name)
	if len(name) > 3 {
		name = name[:3]
	}
	return monthNames[name]
}

// ExtractMonthYear scans text for month/year candidates and returns the
// chronologically latest plausible one as "MM_YYYY". It returns NotFound
// when nothing plausible matches and "" for blank input.
func ExtractMonthYear(text string, now time.Time) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	txt := strings.ToLower(text)
	txt = strings.ReplaceAll(txt, "\n", " ")
	txt = strings.ReplaceAll(txt, "\r", " ")
	txt = noise.ReplaceAllString(txt, "")

	minYear := now.Year() - yearWindow
	maxYear := now.Year() + yearWindow

	var valid []candidate
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(txt, -1) {
			c, ok := parseMatch(p.kind, m)
			if !ok {
				continue
			}
			if c.year >= minYear && c.year <= maxYear && c.month >= 1 && c.month <= 12 {
				valid = append(valid, c)
			}
		}
	}
	if len(valid) == 0 {
		return NotFound
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].year != valid[j].year {
			return valid[i].year > valid[j].year
		}
		return valid[i].month > valid[j].month
	})
	best := valid[0]
	return fmt.Sprintf("%02d_%d", best.month, best.year)
}

// ExtractFullDate returns the first DD/MM/YYYY literal in text, verbatim,
// or "" when none is present.
func ExtractFullDate(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return fullDate.FindString(text)
}

func parseMatch(kind patternKind, groups []string) (candidate, bool) {
	switch kind {
	case kindMonthYear4:
		return numericCandidate(groups[1], groups[2])
	case kindMonthYear2:
		return numericCandidate(groups[1], "20"+groups[2])
	case kindNameYear:
		year, err := strconv.Atoi(groups[2])
		if err != nil {
			return candidate{}, false
		}
		month := MonthNumber(groups[1])
		if month == 0 {
			return candidate{}, false
		}
		return candidate{month: month, year: year}, true
	case kindDayMonthYear:
		// Day is matched but not validated beyond its digit count.
		return numericCandidate(groups[2], groups[3])
	case kindYearMonth:
		return numericCandidate(groups[2], groups[1])
	}
	return candidate{}, false
}

func numericCandidate(monthStr, yearStr string) (candidate, bool) {
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return candidate{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return candidate{}, false
	}
	return candidate{month: month, year: year}, true
}
