// Package silence finds the quiet stretches of an audio file and derives the
// speech spans between them. Spans size the per-segment recognizer calls, so
// the segmenter also caps span length by tiling long spans into fixed pieces.
// Detection prefers ffmpeg's silencedetect filter and falls back to a pure-Go
// scan over the PCM samples when the binary is missing.
package silence

import (
	"context"

	"capstan/internal/media/wav"
)

// Span is a half-open stretch of audio in seconds. The segmenter emits speech
// spans; detectors emit silence intervals using the same shape.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration reports the span length in seconds.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// Detector locates silence intervals in canonical audio.
type Detector interface {
	// Detect returns silence intervals ordered by start time. An interval
	// still open at the end of the audio closes at the total duration.
	Detect(ctx context.Context, audio *wav.Audio) ([]Span, error)
	// Name identifies the strategy in logs.
	Name() string
}

// tile cuts a span into consecutive pieces no longer than size. Piece
// boundaries are exact: each piece starts where the previous one ended and
// the last piece ends at the parent's end, so durations sum to the parent.
func tile(span Span, size float64) []Span {
	if size <= 0 || span.Duration() <= size {
		return []Span{span}
	}
	var pieces []Span
	for start := span.Start; start < span.End; start += size {
		end := start + size
		if end > span.End {
			end = span.End
		}
		pieces = append(pieces, Span{Start: start, End: end})
	}
	return pieces
}
