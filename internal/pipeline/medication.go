package pipeline

import (
	"context"
	"fmt"
	"strings"

	"medocr/internal/match"
	"medocr/internal/results"
	"medocr/internal/textnorm"
	"medocr/internal/vision"
)

// ultradimTokens short-circuit dictionary matching: packaging variants
// of this product confuse the fuzzy matcher, so they are pinned to a
// fixed name.
var ultradimTokens = []string{"ULTRADIM", "ULTRADIN", "ULTRA DIM", "ULTRA DIN"}

const ultradimName = "Nopucid ULTRADIM"

// MedicationResult is the outcome of the medication flow.
type MedicationResult struct {
	Row       results.Row
	ResultKey string
}

// ProcessMedication extracts text from a medication photo, reconciles
// it against the reference dictionary, and uploads a single-row result
// table. Extraction and matching are retried together until a match is
// found or attempts run out; a final no-match still produces a result
// table carrying the not-found marker.
func (h *Handler) ProcessMedication(ctx context.Context, image []byte, baseName string) (MedicationResult, error) {
	const op = "Handler.ProcessMedication"

	entries, err := h.loadDictionary(ctx)
	if err != nil {
		return MedicationResult{}, fmt.Errorf("%s: %w", op, err)
	}
	dictionary := match.NewDictionary(entries, h.scorer)

	var row results.Row
	name := match.NotFound
	dose := ""
	attempts := 0

	for attempts < h.maxRetries {
		raw, err := h.extractor.ExtractText(ctx, image, vision.MedicationPrompt)
		if err != nil {
			h.log.Warn().Err(err).Int("attempt", attempts+1).Msg("Extraction failed")
			raw = ""
		}

		row.Extracted = flattenText(raw)
		row.RawUpper = strings.ToUpper(strings.TrimSpace(raw))
		row.Normalized = textnorm.Normalize(raw)

		if matched, ok := matchUltradim(row.RawUpper); ok {
			name = matched
			dose = ""
			h.log.Info().Msg("ULTRADIM rule matched")
			break
		}

		matchedName, matchedDose := dictionary.Match(row.Normalized)
		if matchedName != match.NotFound {
			name = matchedName
			dose = matchedDose
			h.log.Info().
				Int("attempt", attempts+1).
				Str("name", name).
				Str("dose", dose).
				Msg("Dictionary match found")
			break
		}

		attempts++
		if attempts < h.maxRetries {
			h.log.Info().Int("attempt", attempts).Msg("No match, retrying")
		} else {
			h.log.Info().Msg("Max attempts reached without a match")
		}
	}

	row.Name = name
	if name == match.NotFound {
		row.Dose = ""
	} else {
		row.Dose = dose
	}

	key, err := h.store.UploadMedicationRow(ctx, baseName, row)
	if err != nil {
		return MedicationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return MedicationResult{Row: row, ResultKey: key}, nil
}

func (h *Handler) loadDictionary(ctx context.Context) ([]match.Entry, error) {
	const op = "Handler.loadDictionary"

	h.log.Info().
		Str("bucket", h.dictBucket).
		Str("key", h.dictKey).
		Msg("Downloading reference dictionary")

	data, err := h.storage.GetObject(ctx, h.dictBucket, h.dictKey)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to download dictionary: %w", op, err)
	}
	entries, err := match.LoadDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

func matchUltradim(upperText string) (string, bool) {
	for _, token := range ultradimTokens {
		if strings.Contains(upperText, token) {
			return ultradimName, true
		}
	}
	return "", false
}

// flattenText folds a multi-line extraction into a single line for the
// result table.
func flattenText(s string) string {
	r := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	return strings.TrimSpace(r.Replace(s))
}
