package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no inference API key can be
	// resolved from the environment or the credentials file.
	ErrMissingAPIKey = errors.New("inference API key not found: set TOGETHER_API_KEY or provide a credentials file")

	// ErrMissingCredentials is returned when the Google Vision backend is
	// selected but no Google Cloud credentials are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrGenerationFailed is returned when the remote model call fails or
	// yields a malformed stream.
	ErrGenerationFailed = errors.New("vision model generation failed")

	// ErrRetriesExhausted is returned when every attempt of a retrying
	// extraction failed.
	ErrRetriesExhausted = errors.New("all OCR attempts failed")
)

// VisionError wraps errors with the failing operation and extra context.
type VisionError struct {
	Op      string
	Err     error
	Details string
}

func (e *VisionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("vision: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("vision: %s failed: %v", e.Op, e.Err)
}

func (e *VisionError) Unwrap() error {
	return e.Err
}

func (e *VisionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps err as a VisionError unless it already is one.
func WrapError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ve *VisionError
	if errors.As(err, &ve) {
		return err
	}
	return &VisionError{Op: op, Err: err, Details: details}
}
