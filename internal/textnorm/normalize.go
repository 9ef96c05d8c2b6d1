// Package textnorm canonicalizes OCR output for dictionary comparison.
//
// Extracted text and dictionary entries are normalized with the same
// function, so comparisons between them are symmetric.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes characters and drops combining marks,
// mapping accented letters to their closest ASCII equivalent.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize returns the canonical comparison form of text: accents
// transliterated, uppercased, punctuation stripped, whitespace collapsed
// to single spaces and trimmed. It is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	ascii, _, err := transform.String(stripAccents, text)
	if err != nil {
		ascii = text
	}
	out := strings.ToUpper(ascii)
	out = nonWord.ReplaceAllString(out, "")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
