package waveform

import (
	"context"
	"errors"
	"testing"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/services"
)

type stubExtractor struct {
	name   string
	points []Point
	err    error
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context, audio *wav.Audio) ([]Point, error) {
	s.calls++
	return s.points, s.err
}

func (s *stubExtractor) Name() string { return s.name }

func selectorAudio(t *testing.T) *wav.Audio {
	t.Helper()
	audio, err := wav.Open(writeTestWAV(t, constantSamples(1600, 8000), 16000))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return audio
}

func TestSelectorPrefersPrimary(t *testing.T) {
	primary := &stubExtractor{name: "astats", points: []Point{{Time: 0, RMS: 0.5}}}
	fallback := &stubExtractor{name: "pcm", points: []Point{{Time: 0, RMS: 0.1}}}
	selector := NewSelector(primary, fallback, logging.NewNop())
	points, strategy, err := selector.Extract(context.Background(), selectorAudio(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strategy != "astats" {
		t.Errorf("strategy = %q, want astats", strategy)
	}
	if len(points) != 1 || points[0].RMS != 0.5 {
		t.Errorf("unexpected points: %+v", points)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback should not run when primary succeeds, ran %d times", fallback.calls)
	}
}

func TestSelectorFallsBackOnPrimaryError(t *testing.T) {
	primary := &stubExtractor{name: "astats", err: errors.New("no ffmpeg")}
	fallback := &stubExtractor{name: "pcm", points: []Point{{Time: 0, RMS: 0.1}}}
	selector := NewSelector(primary, fallback, logging.NewNop())
	points, strategy, err := selector.Extract(context.Background(), selectorAudio(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strategy != "pcm" {
		t.Errorf("strategy = %q, want pcm", strategy)
	}
	if len(points) != 1 {
		t.Errorf("unexpected points: %+v", points)
	}
}

func TestSelectorFallsBackOnZeroPoints(t *testing.T) {
	primary := &stubExtractor{name: "astats"}
	fallback := &stubExtractor{name: "pcm", points: []Point{{Time: 0, RMS: 0.1}}}
	selector := NewSelector(primary, fallback, logging.NewNop())
	_, strategy, err := selector.Extract(context.Background(), selectorAudio(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strategy != "pcm" {
		t.Errorf("strategy = %q, want pcm", strategy)
	}
}

func TestSelectorBothFailing(t *testing.T) {
	primary := &stubExtractor{name: "astats", err: errors.New("boom")}
	fallback := &stubExtractor{name: "pcm", err: errors.New("bust")}
	selector := NewSelector(primary, fallback, logging.NewNop())
	_, _, err := selector.Extract(context.Background(), selectorAudio(t))
	if !errors.Is(err, services.ErrWaveformUnavailable) {
		t.Fatalf("expected ErrWaveformUnavailable, got %v", err)
	}
}

func TestSelectorStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &stubExtractor{name: "astats", err: context.Canceled}
	fallback := &stubExtractor{name: "pcm", points: []Point{{Time: 0}}}
	selector := NewSelector(primary, fallback, logging.NewNop())
	audio := selectorAudio(t)
	cancel()
	_, _, err := selector.Extract(ctx, audio)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must not run after cancellation, ran %d times", fallback.calls)
	}
}
