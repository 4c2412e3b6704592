// Package recognizer abstracts the speech-to-text service. The pipeline only
// sees the Recognizer interface; the HTTP client speaks the OpenAI-compatible
// audio transcription API so any conforming server works.
package recognizer

import "context"

// Request is one transcription call. Audio holds a complete WAV payload for
// the slice being transcribed, never a path: slicing happens upstream and the
// recognizer must not touch the filesystem.
type Request struct {
	Audio    []byte
	MIMEType string
	// Hint biases recognition with surrounding context. Optional.
	Hint string
	// Language is an ISO 639-1 code. Optional; empty lets the service detect.
	Language string
}

// Result is the service's answer. Confidence is 0 when the service reported
// none; callers apply their configured default in that case.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer converts an audio slice to text.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Transcribe(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
