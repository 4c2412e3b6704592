package transcribe

import (
	"context"
	"log/slog"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/recognizer"
	"capstan/internal/silence"
	"capstan/internal/textutil"
)

// Transcriber runs the caption pass: one recognizer call per speech span,
// biased by the full transcript. Spans map one-to-one onto results in input
// order; a failed span degrades to empty text with zero confidence.
type Transcriber struct {
	rec    recognizer.Recognizer
	opts   Options
	usage  *UsageCollector
	logger *slog.Logger
}

func NewTranscriber(rec recognizer.Recognizer, opts Options, usage *UsageCollector, logger *slog.Logger) *Transcriber {
	if usage == nil {
		usage = NewUsageCollector()
	}
	return &Transcriber{
		rec:    rec,
		opts:   opts.normalized(),
		usage:  usage,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// TranscribeSpans returns one SegmentTranscript per span, same order. The
// span bounds are echoed into the results before any call runs, so even a
// degraded unit keeps its timing. Only cancellation errors.
func (t *Transcriber) TranscribeSpans(ctx context.Context, audio *wav.Audio, spans []silence.Span, fullTranscript string) ([]SegmentTranscript, error) {
	out := make([]SegmentTranscript, len(spans))
	for i, span := range spans {
		out[i] = SegmentTranscript{Start: span.Start, End: span.End}
	}
	hint := BuildHint(fullTranscript)
	runIndexed(ctx, t.opts.Workers, len(spans), func(i int) {
		span := spans[i]
		payload, err := sliceAudio(audio, span.Start, span.End)
		if err != nil {
			t.usage.recordSegment(span.Duration(), true)
			t.warnSegment(i, span, err)
			return
		}
		result, err := t.rec.Transcribe(ctx, recognizer.Request{
			Audio:    payload,
			MIMEType: "audio/wav",
			Hint:     hint,
			Language: t.opts.Language,
		})
		t.usage.recordSegment(span.Duration(), err != nil)
		if err != nil {
			t.warnSegment(i, span, err)
			return
		}
		out[i].Text = textutil.Normalize(result.Text)
		if result.Confidence > 0 {
			out[i].Confidence = result.Confidence
		} else {
			out[i].Confidence = t.opts.DefaultConfidence
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Transcriber) warnSegment(i int, span silence.Span, err error) {
	logging.WarnWithContext(t.logger, "segment transcription failed", "segment_failed",
		logging.Int("segment", i),
		logging.Float64("start", span.Start),
		logging.Float64("end", span.End),
		logging.Error(err),
		logging.String(logging.FieldImpact, "segment degrades to empty text"),
	)
}
