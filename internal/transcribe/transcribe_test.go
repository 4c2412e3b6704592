package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/recognizer"
	"capstan/internal/silence"
)

// markedAudio writes a WAV whose sample at each marker second carries the
// marker value, so stubs can identify which slice they were handed.
func markedAudio(t *testing.T, seconds int, rate int, markers map[int]int16) *wav.Audio {
	t.Helper()
	samples := make([]int16, seconds*rate)
	for second, value := range markers {
		samples[second*rate] = value
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := wav.WriteFile(path, samples, rate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	audio, err := wav.Open(path)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	return audio
}

// sliceMarker reads the first sample of a WAV payload.
func sliceMarker(payload []byte) int16 {
	if len(payload) < 46 {
		return -1
	}
	return int16(payload[44]) | int16(payload[45])<<8
}

func TestFullTranscriptJoinsWindowsInOrder(t *testing.T) {
	audio := markedAudio(t, 70, 8000, map[int]int16{0: 1, 30: 2, 60: 3})
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		return recognizer.Result{Text: fmt.Sprintf("window%d", sliceMarker(req.Audio))}, nil
	})
	usage := NewUsageCollector()
	builder := NewBuilder(rec, Options{WindowSeconds: 30, Workers: 4}, usage, logging.NewNop())
	text, err := builder.FullTranscript(context.Background(), audio)
	if err != nil {
		t.Fatalf("FullTranscript: %v", err)
	}
	if text != "window1 window2 window3" {
		t.Fatalf("transcript = %q", text)
	}
	snap := usage.Snapshot()
	if snap.ChunkCalls != 3 || snap.FailedCalls != 0 {
		t.Errorf("usage = %+v", snap)
	}
	if snap.AudioSecondsSent != 70 {
		t.Errorf("audio seconds sent = %f, want 70", snap.AudioSecondsSent)
	}
}

func TestFullTranscriptSkipsFailedWindows(t *testing.T) {
	audio := markedAudio(t, 70, 8000, map[int]int16{0: 1, 30: 2, 60: 3})
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		if sliceMarker(req.Audio) == 2 {
			return recognizer.Result{}, errors.New("service hiccup")
		}
		return recognizer.Result{Text: fmt.Sprintf("window%d", sliceMarker(req.Audio))}, nil
	})
	usage := NewUsageCollector()
	builder := NewBuilder(rec, Options{WindowSeconds: 30, Workers: 2}, usage, logging.NewNop())
	text, err := builder.FullTranscript(context.Background(), audio)
	if err != nil {
		t.Fatalf("FullTranscript: %v", err)
	}
	if text != "window1 window3" {
		t.Fatalf("transcript = %q, failed window must vanish without filler", text)
	}
	snap := usage.Snapshot()
	if snap.ChunkCalls != 3 || snap.FailedCalls != 1 {
		t.Errorf("usage = %+v", snap)
	}
}

func TestFullTranscriptNormalizesText(t *testing.T) {
	audio := markedAudio(t, 5, 8000, nil)
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		return recognizer.Result{Text: "  spaced   out\ttext "}, nil
	})
	builder := NewBuilder(rec, Options{WindowSeconds: 30}, nil, logging.NewNop())
	text, err := builder.FullTranscript(context.Background(), audio)
	if err != nil {
		t.Fatalf("FullTranscript: %v", err)
	}
	if text != "spaced out text" {
		t.Fatalf("transcript = %q", text)
	}
}

func TestFullTranscriptCancellation(t *testing.T) {
	audio := markedAudio(t, 70, 8000, nil)
	ctx, cancel := context.WithCancel(context.Background())
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		cancel()
		<-ctx.Done()
		return recognizer.Result{}, ctx.Err()
	})
	builder := NewBuilder(rec, Options{WindowSeconds: 30, Workers: 1}, nil, logging.NewNop())
	if _, err := builder.FullTranscript(ctx, audio); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTranscribeSpansKeepsOrderAndBounds(t *testing.T) {
	audio := markedAudio(t, 10, 8000, map[int]int16{1: 7, 5: 8})
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		return recognizer.Result{Text: fmt.Sprintf("seg%d", sliceMarker(req.Audio))}, nil
	})
	tr := NewTranscriber(rec, Options{Workers: 4}, nil, logging.NewNop())
	spans := []silence.Span{{Start: 1, End: 3}, {Start: 5, End: 9}}
	got, err := tr.TranscribeSpans(context.Background(), audio, spans, "")
	if err != nil {
		t.Fatalf("TranscribeSpans: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "seg7" || got[1].Text != "seg8" {
		t.Fatalf("results out of order: %+v", got)
	}
	if got[0].Start != 1 || got[0].End != 3 || got[1].Start != 5 || got[1].End != 9 {
		t.Fatalf("span bounds not echoed: %+v", got)
	}
}

func TestTranscribeSpansPassesHint(t *testing.T) {
	audio := markedAudio(t, 10, 8000, nil)
	var gotHint string
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		gotHint = req.Hint
		return recognizer.Result{Text: "ok"}, nil
	})
	tr := NewTranscriber(rec, Options{}, nil, logging.NewNop())
	_, err := tr.TranscribeSpans(context.Background(), audio, []silence.Span{{Start: 0, End: 2}}, "the full story")
	if err != nil {
		t.Fatalf("TranscribeSpans: %v", err)
	}
	want := "This is an excerpt of: the full story. Transcribe only what is spoken in this slice."
	if gotHint != want {
		t.Fatalf("hint = %q, want %q", gotHint, want)
	}
}

func TestTranscribeSpansDefaultConfidence(t *testing.T) {
	audio := markedAudio(t, 10, 8000, nil)
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		return recognizer.Result{Text: "words"}, nil
	})
	tr := NewTranscriber(rec, Options{DefaultConfidence: 0.95}, nil, logging.NewNop())
	got, err := tr.TranscribeSpans(context.Background(), audio, []silence.Span{{Start: 0, End: 2}}, "")
	if err != nil {
		t.Fatalf("TranscribeSpans: %v", err)
	}
	if got[0].Confidence != 0.95 {
		t.Fatalf("confidence = %f, want default 0.95", got[0].Confidence)
	}
}

func TestTranscribeSpansNativeConfidenceWins(t *testing.T) {
	audio := markedAudio(t, 10, 8000, nil)
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		return recognizer.Result{Text: "words", Confidence: 0.6}, nil
	})
	tr := NewTranscriber(rec, Options{}, nil, logging.NewNop())
	got, err := tr.TranscribeSpans(context.Background(), audio, []silence.Span{{Start: 0, End: 2}}, "")
	if err != nil {
		t.Fatalf("TranscribeSpans: %v", err)
	}
	if got[0].Confidence != 0.6 {
		t.Fatalf("confidence = %f, want native 0.6", got[0].Confidence)
	}
}

func TestTranscribeSpansFailureDegradesUnit(t *testing.T) {
	audio := markedAudio(t, 10, 8000, map[int]int16{1: 7, 5: 8})
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		if sliceMarker(req.Audio) == 7 {
			return recognizer.Result{}, errors.New("bad span")
		}
		return recognizer.Result{Text: "fine"}, nil
	})
	usage := NewUsageCollector()
	tr := NewTranscriber(rec, Options{}, usage, logging.NewNop())
	spans := []silence.Span{{Start: 1, End: 3}, {Start: 5, End: 9}}
	got, err := tr.TranscribeSpans(context.Background(), audio, spans, "")
	if err != nil {
		t.Fatalf("one bad unit must not abort the pass: %v", err)
	}
	if got[0].Text != "" || got[0].Confidence != 0 {
		t.Errorf("failed unit should be empty with zero confidence: %+v", got[0])
	}
	if got[0].Start != 1 || got[0].End != 3 {
		t.Errorf("failed unit keeps its bounds: %+v", got[0])
	}
	if got[1].Text != "fine" {
		t.Errorf("healthy unit affected: %+v", got[1])
	}
	if snap := usage.Snapshot(); snap.SegmentCalls != 2 || snap.FailedCalls != 1 {
		t.Errorf("usage = %+v", snap)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	audio := markedAudio(t, 40, 8000, nil)
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	rec := recognizer.Func(func(ctx context.Context, req recognizer.Request) (recognizer.Result, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return recognizer.Result{Text: "x"}, nil
	})
	tr := NewTranscriber(rec, Options{Workers: 2}, nil, logging.NewNop())
	spans := make([]silence.Span, 10)
	for i := range spans {
		spans[i] = silence.Span{Start: float64(i * 4), End: float64(i*4 + 4)}
	}
	if _, err := tr.TranscribeSpans(context.Background(), audio, spans, ""); err != nil {
		t.Fatalf("TranscribeSpans: %v", err)
	}
	if peak > 2 {
		t.Fatalf("peak concurrency %d exceeds worker bound 2", peak)
	}
}

func TestBuildHint(t *testing.T) {
	if hint := BuildHint("   "); hint != "" {
		t.Errorf("blank transcript should give no hint, got %q", hint)
	}
	hint := BuildHint("hello there")
	if !strings.HasPrefix(hint, "This is an excerpt of: hello there.") {
		t.Errorf("hint = %q", hint)
	}
}

func TestWindows(t *testing.T) {
	wins := windows(70, 30)
	if len(wins) != 3 {
		t.Fatalf("expected 3 windows, got %+v", wins)
	}
	if wins[2].start != 60 || wins[2].end != 70 {
		t.Errorf("last window = %+v, want [60,70]", wins[2])
	}
	if wins := windows(0, 30); wins != nil {
		t.Errorf("zero duration should give no windows, got %+v", wins)
	}
}
