package dates

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestExtractMonthYear(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"slash separator", "VTO 05/2026", "05_2026"},
		{"hyphen separator", "vence 11-2027", "11_2027"},
		{"two digit year", "VENC: 08/27 LOTE 123", "08_2027"},
		{"spanish month name", "VTO ENE 2027", "01_2027"},
		{"full month name", "Vence diciembre 2026", "12_2026"},
		{"english month alias", "EXP AUG 2026", "08_2026"},
		{"year then month", "2026-11", "11_2026"},
		{"concatenated month year", "EXP 052026", "05_2026"},
		{"concatenated two digit", "EXP 0527", "05_2027"},
		{"latest wins across candidates", "ELAB 03/2025 VTO 11/2026", "11_2026"},
		{"latest wins within same year", "04/2026 y 09/2026", "09_2026"},
		{"full date contributes month year", "15/08/2026", "08_2026"},
		{"noisy ocr text", "LOTE: A-123\nVence:\r05/2026", "05_2026"},
		{"no date", "No visible text found.", NotFound},
		{"unrecognized month name", "xyz 2026", NotFound},
		{"empty", "", ""},
		{"whitespace only", "  \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMonthYear(tt.text, testNow); got != tt.want {
				t.Errorf("ExtractMonthYear(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractMonthYearRejectsOutOfWindowYears(t *testing.T) {
	// testNow is 2026: accepted years are 2016..2036.
	for _, text := range []string{"VTO 05/2037", "VTO 05/2015", "ENE 2037", "2037-05"} {
		if got := ExtractMonthYear(text, testNow); got != NotFound {
			t.Errorf("ExtractMonthYear(%q) = %q, want %q (year outside ±10 window)", text, got, NotFound)
		}
	}
	// Window edges are inclusive.
	if got := ExtractMonthYear("VTO 05/2036", testNow); got != "05_2036" {
		t.Errorf("upper edge rejected: %q", got)
	}
	if got := ExtractMonthYear("VTO 05/2016", testNow); got != "05_2016" {
		t.Errorf("lower edge rejected: %q", got)
	}
}

func TestExtractMonthYearTwoDigitYearNotFollowedByDigit(t *testing.T) {
	// "05/203" must not be read as month 05 year 20.
	if got := ExtractMonthYear("lote 05/203", testNow); got != NotFound {
		t.Errorf("ExtractMonthYear(05/203) = %q, want %q", got, NotFound)
	}
}

func TestExtractFullDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Vence 15/08/2026 Lote A1", "15/08/2026"},
		{"first match wins", "01/02/2026 y 15/08/2026", "01/02/2026"},
		{"rejects day 32", "32/08/2026", ""},
		{"rejects month 13", "15/13/2026", ""},
		{"rejects 19xx year", "15/08/1999", ""},
		{"no boundary inside digits", "915/08/20267", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFullDate(tt.text); got != tt.want {
				t.Errorf("ExtractFullDate(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestMonthNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"ene", 1}, {"ENERO", 1}, {"dic", 12}, {"diciembre", 12},
		{"jan", 1}, {"apr", 4}, {"aug", 8}, {"dec", 12},
		{"xyz", 0}, {"", 0},
	}
	for _, tt := range tests {
		if got := MonthNumber(tt.in); got != tt.want {
			t.Errorf("MonthNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
