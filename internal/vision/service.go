// Package vision wraps remote vision-language services that read text off
// medication packaging photos.
//
// The remote service is modeled as a single capability: given image bytes
// and a prompt, produce text. The default binding streams chat completions
// from an OpenAI-compatible inference endpoint; an alternate binding runs
// Google Cloud Vision document text detection. Tests substitute a
// deterministic fake.
package vision

import "context"

// MedicationPrompt asks the model for a verbatim transcription of the
// packaging text.
const MedicationPrompt = "Extract all visible text from the image exactly as written, do NOT generate descriptions, " +
	"interpretations, or summaries. Only output the raw text found in the image, maintaining original " +
	"formatting (e.g., line breaks, spacing). If no text is detectable, reply with 'No visible text found.'"

// DatePrompt is the transcription prompt biased toward dates, used by the
// expiry flow.
const DatePrompt = MedicationPrompt + "You should be finding dates."

// NoVisibleText is the model's own sentinel reply for images without
// readable text.
const NoVisibleText = "No visible text found"

// Client generates text from an image and a prompt.
type Client interface {
	// GenerateStreaming sends one generation request and returns the
	// accumulated response text, trimmed of surrounding whitespace.
	GenerateStreaming(ctx context.Context, image []byte, prompt string) (string, error)
}
