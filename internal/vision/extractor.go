package vision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"medocr/internal/logger"
)

const (
	// DefaultMaxRetries bounds the retrying extraction variant.
	DefaultMaxRetries = 5

	// DefaultBackoffBase is the exponential backoff base between retries.
	DefaultBackoffBase = 1.6

	// maxBackoff caps the sleep between attempts.
	maxBackoff = 30 * time.Second
)

// Extractor drives OCR attempts against a Client.
//
// ExtractText retries with exponential backoff and fails hard once the
// budget is spent; ExtractTextOnce swallows the failure and returns empty
// text, for callers that run their own outer attempt loop.
type Extractor struct {
	client      Client
	maxRetries  int
	backoffBase float64
	sleep       func(time.Duration)
	log         zerolog.Logger
}

// NewExtractor builds an Extractor. Non-positive maxRetries and backoff
// base fall back to the defaults.
func NewExtractor(client Client, maxRetries int, backoffBase float64) *Extractor {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	return &Extractor{
		client:      client,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
		log:         logger.WithComponent("vision-extractor"),
	}
}

// ExtractText calls the model up to maxRetries times, sleeping
// base^attempt + 0.1*attempt seconds (capped at 30s) after each failure.
// Exhausting the budget returns an error carrying the last failure.
func (e *Extractor) ExtractText(ctx context.Context, image []byte, prompt string) (string, error) {
	const op = "ExtractText"

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		text, err := e.client.GenerateStreaming(ctx, image, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		e.log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", e.maxRetries).
			Msg("OCR attempt failed")

		if attempt < e.maxRetries-1 {
			e.sleep(e.backoff(attempt))
		}
	}
	return "", WrapError(op, ErrRetriesExhausted,
		fmt.Sprintf("after %d attempts, last error: %v", e.maxRetries, lastErr))
}

// ExtractTextOnce makes a single attempt and returns empty text on any
// failure.
func (e *Extractor) ExtractTextOnce(ctx context.Context, image []byte, prompt string) string {
	text, err := e.client.GenerateStreaming(ctx, image, prompt)
	if err != nil {
		e.log.Warn().Err(err).Msg("Single-shot OCR failed")
		return ""
	}
	return text
}

func (e *Extractor) backoff(attempt int) time.Duration {
	seconds := math.Pow(e.backoffBase, float64(attempt)) + 0.1*float64(attempt)
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
