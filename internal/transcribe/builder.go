package transcribe

import (
	"context"
	"log/slog"
	"strings"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/recognizer"
	"capstan/internal/textutil"
)

// Builder produces the full transcript by transcribing fixed windows and
// joining the results in order. The full text exists to bias the per-segment
// pass, so a failed window costs context, not correctness: its slot stays
// empty and the join simply skips it.
type Builder struct {
	rec    recognizer.Recognizer
	opts   Options
	usage  *UsageCollector
	logger *slog.Logger
}

func NewBuilder(rec recognizer.Recognizer, opts Options, usage *UsageCollector, logger *slog.Logger) *Builder {
	if usage == nil {
		usage = NewUsageCollector()
	}
	return &Builder{
		rec:    rec,
		opts:   opts.normalized(),
		usage:  usage,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// FullTranscript transcribes audio in WindowSeconds pieces and joins the
// non-empty results with single spaces. Only cancellation errors; any number
// of failed windows still yields a (possibly empty) transcript.
func (b *Builder) FullTranscript(ctx context.Context, audio *wav.Audio) (string, error) {
	duration := audio.Duration()
	wins := windows(duration, b.opts.WindowSeconds)
	slots := make([]string, len(wins))
	runIndexed(ctx, b.opts.Workers, len(wins), func(i int) {
		win := wins[i]
		payload, err := sliceAudio(audio, win.start, win.end)
		if err != nil {
			b.usage.recordChunk(win.end-win.start, true)
			logging.WarnWithContext(b.logger, "transcript window failed", "chunk_failed",
				logging.Int("window", i),
				logging.Float64("start", win.start),
				logging.Error(err),
				logging.String(logging.FieldImpact, "window contributes no context text"),
			)
			return
		}
		result, err := b.rec.Transcribe(ctx, recognizer.Request{
			Audio:    payload,
			MIMEType: "audio/wav",
			Language: b.opts.Language,
		})
		b.usage.recordChunk(win.end-win.start, err != nil)
		if err != nil {
			logging.WarnWithContext(b.logger, "transcript window failed", "chunk_failed",
				logging.Int("window", i),
				logging.Float64("start", win.start),
				logging.Error(err),
				logging.String(logging.FieldImpact, "window contributes no context text"),
			)
			return
		}
		slots[i] = textutil.Normalize(result.Text)
	})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(slots))
	for _, text := range slots {
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

type window struct {
	start, end float64
}

func windows(duration, size float64) []window {
	if duration <= 0 {
		return nil
	}
	if size <= 0 {
		return []window{{start: 0, end: duration}}
	}
	var wins []window
	for start := 0.0; start < duration; start += size {
		end := start + size
		if end > duration {
			end = duration
		}
		wins = append(wins, window{start: start, end: end})
	}
	return wins
}
