package pipeline

import (
	"context"
	"strings"

	"medocr/internal/dates"
	"medocr/internal/vision"
)

// ExpiryResult is the outcome of the expiry-date flow.
type ExpiryResult struct {
	// Value is what was written to the result table: DD/MM/YYYY when a
	// full date was read, MM/YYYY otherwise, or a not-found marker.
	Value string
	// OCRText is the last non-empty model output.
	OCRText string
	// Attempts is how many model calls were made.
	Attempts int
	// UpdatedKey is the result table that received the value, empty when
	// the update failed.
	UpdatedKey string
}

// ProcessExpiry reads an expiry date off the photo and writes it into
// the first row of the most recent result table. A full DD/MM/YYYY date
// wins over a month/year reading. Failure to update the table is logged
// but not fatal.
func (h *Handler) ProcessExpiry(ctx context.Context, image []byte) ExpiryResult {
	ocrText := ""
	fullDate := ""
	monthYear := dates.NotFound
	attempts := 0

	for attempt := 0; attempt < h.maxRetries; attempt++ {
		attempts = attempt + 1
		raw := h.extractor.ExtractTextOnce(ctx, image, vision.DatePrompt)
		if raw == "" {
			continue
		}
		ocrText = raw
		fullDate = dates.ExtractFullDate(raw)
		monthYear = dates.ExtractMonthYear(raw, h.now())
		if fullDate != "" || (monthYear != "" && monthYear != dates.NotFound) {
			break
		}
	}

	var value string
	switch {
	case fullDate != "":
		value = fullDate
	case monthYear != "" && monthYear != dates.NotFound:
		value = strings.Replace(monthYear, "_", "/", 1)
	case ocrText == "" || strings.HasPrefix(strings.ToLower(strings.TrimSpace(ocrText)), "no visible text"):
		value = vision.NoVisibleText
	default:
		value = dates.NotFound
	}

	updatedKey := ""
	latest, err := h.store.LatestKey(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Could not locate latest result table")
	} else if err := h.store.UpdateExpiry(ctx, latest, value); err != nil {
		h.log.Warn().Err(err).Str("key", latest).Msg("Could not update latest result table")
	} else {
		updatedKey = latest
	}

	return ExpiryResult{
		Value:      value,
		OCRText:    ocrText,
		Attempts:   attempts,
		UpdatedKey: updatedKey,
	}
}
