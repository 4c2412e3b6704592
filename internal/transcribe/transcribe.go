// Package transcribe drives the recognizer over audio: fixed windows for the
// full-text pass and silence-derived spans for the caption pass. Both passes
// fan out over a bounded worker pool and write results into order-indexed
// slots, so output order never depends on scheduling. A failed unit degrades
// to an empty slot; only cancellation aborts a pass.
package transcribe

import (
	"fmt"
	"strings"

	"capstan/internal/media/wav"
)

// SegmentTranscript is the recognized text for one speech span.
type SegmentTranscript struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Duration reports the span length in seconds.
func (s SegmentTranscript) Duration() float64 {
	return s.End - s.Start
}

// Options tunes both passes. Zero values take the documented defaults.
type Options struct {
	// WindowSeconds sizes the full-transcript windows.
	WindowSeconds float64
	// Workers bounds concurrent recognizer calls.
	Workers int
	// Language optionally pins the recognizer language (ISO 639-1).
	Language string
	// DefaultConfidence is assigned when the service reports no score.
	DefaultConfidence float64
}

func (o Options) normalized() Options {
	if o.WindowSeconds <= 0 {
		o.WindowSeconds = 30
	}
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.DefaultConfidence <= 0 || o.DefaultConfidence > 1 {
		o.DefaultConfidence = 0.95
	}
	return o
}

// BuildHint frames the full transcript as recognition context for a slice.
// An empty transcript yields no hint.
func BuildHint(fullTranscript string) string {
	fullTranscript = strings.TrimSpace(fullTranscript)
	if fullTranscript == "" {
		return ""
	}
	return fmt.Sprintf("This is an excerpt of: %s. Transcribe only what is spoken in this slice.", fullTranscript)
}

// sliceAudio renders the [start, end] range as a standalone WAV payload.
func sliceAudio(audio *wav.Audio, start, end float64) ([]byte, error) {
	samples, err := audio.ReadRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("slice audio [%.3f, %.3f]: %w", start, end, err)
	}
	payload, err := wav.EncodeBytes(samples, audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode slice [%.3f, %.3f]: %w", start, end, err)
	}
	return payload, nil
}
