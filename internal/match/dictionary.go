// Package match reconciles OCR-extracted text against the reference
// dictionary of known medication labels.
package match

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"medocr/internal/logger"
	"medocr/internal/textnorm"
)

// NotFound is the terminal value for text that matches no dictionary entry.
const NotFound = "No encontrado"

// Matcher weights and acceptance threshold. Empirical constants carried
// over unchanged; do not re-tune without re-validating against the
// labeled photo set.
const (
	overlapWeight    = 1.5
	similarityWeight = 5.0
	scoreThreshold   = 1.0
)

// Entry is one row of the reference dictionary.
type Entry struct {
	// InputNormalized is the known label in canonical form, produced by
	// textnorm.Normalize at load time.
	InputNormalized string
	DisplayName     string
	Dose            string
}

// Dictionary matches normalized extracted text against reference entries.
// It is immutable after construction and safe for concurrent use.
type Dictionary struct {
	entries []Entry
	scorer  Scorer
	log     zerolog.Logger
}

// NewDictionary builds a Dictionary over the given entries.
func NewDictionary(entries []Entry, scorer Scorer) *Dictionary {
	return &Dictionary{
		entries: entries,
		scorer:  scorer,
		log:     logger.WithComponent("dictionary"),
	}
}

// Entries returns the loaded reference entries in table order.
func (d *Dictionary) Entries() []Entry {
	return d.entries
}

// Match finds the best dictionary entry for the extracted text and returns
// its display name and dose, or (NotFound, "") when no entry scores above
// the acceptance threshold.
//
// An exact match on the normalized text wins immediately (first entry in
// table order). Otherwise every entry is ranked by
// word_overlap*1.5 + similarity*5.0 and the first strictly-best entry is
// kept.
func (d *Dictionary) Match(extractedText string) (string, string) {
	normalized := textnorm.Normalize(extractedText)
	extractedWords := tokenSet(normalized)

	for _, e := range d.entries {
		if e.InputNormalized == normalized {
			return e.DisplayName, e.Dose
		}
	}

	bestName := ""
	bestDose := ""
	bestScore := -1.0
	haveBest := false

	for _, e := range d.entries {
		overlap := overlapCount(extractedWords, tokenSet(e.InputNormalized))
		similarity := d.scorer.Score(normalized, e.InputNormalized)
		combined := float64(overlap)*overlapWeight + similarity*similarityWeight

		if !haveBest || combined > bestScore {
			haveBest = true
			bestScore = combined
			bestName = e.DisplayName
			bestDose = e.Dose
		}
	}

	if haveBest && bestScore > scoreThreshold {
		d.log.Debug().
			Str("matched", bestName).
			Float64("score", bestScore).
			Msg("Fuzzy dictionary match")
		return bestName, bestDose
	}
	return NotFound, ""
}

// LoadDictionary parses the reference table CSV. The table must carry an
// "Input" column; "Nombre del medicamento" and "Dosis" are read when
// present. Input values are normalized on load.
func LoadDictionary(data []byte) ([]Entry, error) {
	const op = "LoadDictionary"
	log := logger.WithComponent("dictionary")

	// Tables exported from spreadsheets often start with a UTF-8 BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", op, err)
	}

	inputCol, nameCol, doseCol := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Input":
			inputCol = i
		case "Nombre del medicamento":
			nameCol = i
		case "Dosis":
			doseCol = i
		}
	}
	if inputCol < 0 {
		return nil, fmt.Errorf("%s: reference table has no 'Input' column", op)
	}

	var entries []Entry
	rowNum := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			log.Warn().Err(err).Int("row", rowNum).Msg("Skipping malformed dictionary row")
			continue
		}
		if inputCol >= len(row) {
			log.Warn().Int("row", rowNum).Int("columns", len(row)).Msg("Skipping dictionary row with insufficient columns")
			continue
		}
		entries = append(entries, Entry{
			InputNormalized: textnorm.Normalize(row[inputCol]),
			DisplayName:     field(row, nameCol),
			Dose:            field(row, doseCol),
		})
	}

	log.Info().Int("entries", len(entries)).Msg("Reference dictionary loaded")
	return entries, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func overlapCount(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
