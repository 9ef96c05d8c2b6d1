package vision

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) GenerateStreaming(ctx context.Context, image []byte, prompt string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var text string
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return text, err
}

func newTestExtractor(c Client) (*Extractor, *[]time.Duration) {
	e := NewExtractor(c, 3, 1.6)
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestExtractTextFirstAttemptSucceeds(t *testing.T) {
	fc := &fakeClient{responses: []string{"IBUPROFENO 400"}}
	e, slept := newTestExtractor(fc)

	text, err := e.ExtractText(context.Background(), []byte("img"), MedicationPrompt)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "IBUPROFENO 400" {
		t.Errorf("text = %q", text)
	}
	if fc.calls != 1 || len(*slept) != 0 {
		t.Errorf("calls = %d, sleeps = %d; want 1 call, 0 sleeps", fc.calls, len(*slept))
	}
}

func TestExtractTextRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{
		responses: []string{"", "", "NEUMOTIDE"},
		errs:      []error{boom, boom, nil},
	}
	e, slept := newTestExtractor(fc)

	text, err := e.ExtractText(context.Background(), nil, MedicationPrompt)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "NEUMOTIDE" {
		t.Errorf("text = %q", text)
	}
	if fc.calls != 3 {
		t.Errorf("calls = %d, want 3", fc.calls)
	}
	// base^0 + 0 = 1s, then base^1 + 0.1 = 1.7s.
	if len(*slept) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(*slept))
	}
	if (*slept)[0] != time.Second {
		t.Errorf("first backoff = %v, want 1s", (*slept)[0])
	}
	if got := (*slept)[1]; got < 1600*time.Millisecond || got > 1800*time.Millisecond {
		t.Errorf("second backoff = %v, want ~1.7s", got)
	}
}

func TestExtractTextExhaustsRetries(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{errs: []error{boom, boom, boom}}
	e, _ := newTestExtractor(fc)

	_, err := e.ExtractText(context.Background(), nil, MedicationPrompt)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("err = %v, want ErrRetriesExhausted", err)
	}
	if fc.calls != 3 {
		t.Errorf("calls = %d, want 3", fc.calls)
	}
}

func TestBackoffCapped(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 20, 1.6)
	if d := e.backoff(19); d != maxBackoff {
		t.Errorf("backoff(19) = %v, want cap %v", d, maxBackoff)
	}
}

func TestExtractTextOnceSwallowsFailure(t *testing.T) {
	fc := &fakeClient{errs: []error{errors.New("boom")}}
	e, slept := newTestExtractor(fc)

	if text := e.ExtractTextOnce(context.Background(), nil, DatePrompt); text != "" {
		t.Errorf("text = %q, want empty on failure", text)
	}
	if fc.calls != 1 || len(*slept) != 0 {
		t.Errorf("single-shot must not retry or sleep: calls=%d sleeps=%d", fc.calls, len(*slept))
	}
}
