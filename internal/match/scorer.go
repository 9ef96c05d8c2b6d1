package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer computes a bounded similarity score in (0, 1] between two
// normalized strings. Identical strings score 1.0; the score decays as
// edit distance grows.
type Scorer interface {
	Score(a, b string) float64
}

// LevenshteinScorer scores with an exact edit distance
// (insert/delete/substitute, unit cost each).
type LevenshteinScorer struct{}

func (LevenshteinScorer) Score(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return 1.0 / (1.0 + float64(levenshtein.ComputeDistance(a, b)))
}

// SequenceRatioScorer approximates the edit distance from a
// common-subsequence similarity ratio: dist = (1 - ratio) * max(len(a), len(b), 1).
type SequenceRatioScorer struct{}

func (SequenceRatioScorer) Score(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	dist := (1.0 - m.Ratio()) * float64(max(len(a), max(len(b), 1)))
	if dist < 0 {
		dist = 0
	}
	return 1.0 / (1.0 + dist)
}

// DefaultScorer returns the scorer used throughout the pipeline. The
// strategy is fixed at startup, not per call.
func DefaultScorer() Scorer {
	return LevenshteinScorer{}
}
