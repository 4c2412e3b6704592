package silence

import (
	"context"
	"log/slog"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
)

// Options tunes segmentation. Zero values fall back to the defaults used
// across the pipeline.
type Options struct {
	// MaxSpan caps speech span length; longer spans are tiled.
	MaxSpan float64
	// TileSize is the piece length used when a span is tiled and when no
	// silence is found at all.
	TileSize float64
}

func (o Options) normalized() Options {
	if o.MaxSpan <= 0 {
		o.MaxSpan = 8
	}
	if o.TileSize <= 0 {
		o.TileSize = 4
	}
	return o
}

// Segmenter derives speech spans from detected silences. It prefers the
// primary detector and falls back per strategy failure; with no detector
// able to run, it tiles the whole file uniformly so the pipeline always has
// spans to transcribe.
type Segmenter struct {
	primary  Detector
	fallback Detector
	opts     Options
	logger   *slog.Logger
}

// NewSegmenter builds a segmenter. primary may be nil when no external
// binary resolved; fallback may be nil in tests.
func NewSegmenter(primary, fallback Detector, opts Options, logger *slog.Logger) *Segmenter {
	return &Segmenter{
		primary:  primary,
		fallback: fallback,
		opts:     opts.normalized(),
		logger:   logging.NewComponentLogger(logger, "silence"),
	}
}

// Segment returns the speech spans of audio, ordered, non-overlapping, and
// clipped to [0, duration]. Spans longer than MaxSpan are tiled into
// consecutive TileSize pieces. No silence found means the speech never
// pauses long enough to split on, so the whole file is tiled uniformly.
func (s *Segmenter) Segment(ctx context.Context, audio *wav.Audio) ([]Span, error) {
	duration := audio.Duration()
	silences, ok := s.detect(ctx, audio)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !ok || len(silences) == 0 {
		return tile(Span{Start: 0, End: duration}, s.opts.TileSize), nil
	}
	spans := gaps(silences, duration)
	if len(spans) == 0 {
		// Silence covers the whole file.
		return nil, nil
	}
	out := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Duration() > s.opts.MaxSpan {
			out = append(out, tile(span, s.opts.TileSize)...)
			continue
		}
		out = append(out, span)
	}
	return out, nil
}

func (s *Segmenter) detect(ctx context.Context, audio *wav.Audio) ([]Span, bool) {
	for _, detector := range []Detector{s.primary, s.fallback} {
		if detector == nil {
			continue
		}
		silences, err := detector.Detect(ctx, audio)
		if err == nil {
			return silences, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		logging.WarnWithContext(s.logger, "silence detection strategy failed", "silence_detect_failed",
			logging.String("strategy", detector.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next strategy or uniform tiling takes over"),
		)
	}
	return nil, false
}

// gaps inverts silence intervals into speech spans clipped to [0, duration].
func gaps(silences []Span, duration float64) []Span {
	var spans []Span
	cursor := 0.0
	for _, sil := range silences {
		start := sil.Start
		if start > duration {
			start = duration
		}
		if start > cursor {
			spans = append(spans, Span{Start: cursor, End: start})
		}
		if sil.End > cursor {
			cursor = sil.End
		}
	}
	if cursor < duration {
		spans = append(spans, Span{Start: cursor, End: duration})
	}
	return spans
}
