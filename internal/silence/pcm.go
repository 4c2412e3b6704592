package silence

import (
	"context"
	"fmt"
	"math"

	"capstan/internal/media/wav"
)

// pcmWindowMS is the analysis window for the pure-Go detector. It must stay
// well below the minimum silence duration so short silences still resolve.
const pcmWindowMS = 20

// PCMDetector scans decoded samples for stretches whose windowed RMS stays
// below the threshold. Semantics match the ffmpeg filter: same threshold,
// same minimum duration.
type PCMDetector struct {
	thresholdDB float64
	minSilence  float64
}

func NewPCMDetector(thresholdDB, minSilence float64) *PCMDetector {
	return &PCMDetector{thresholdDB: thresholdDB, minSilence: minSilence}
}

func (d *PCMDetector) Name() string {
	return "pcm-scan"
}

func (d *PCMDetector) Detect(ctx context.Context, audio *wav.Audio) ([]Span, error) {
	samples, err := audio.ReadSamples()
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	window := audio.SampleRate * pcmWindowMS / 1000
	if window < 1 {
		window = 1
	}
	threshold := math.Pow(10, d.thresholdDB/20)
	var (
		spans    []Span
		runStart float64
		open     bool
	)
	for start := 0; start < len(samples); start += window {
		if start%(window*4096) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		var sumSquares float64
		for _, s := range samples[start:end] {
			v := float64(s) / 32768
			sumSquares += v * v
		}
		rms := math.Sqrt(sumSquares / float64(end-start))
		t := float64(start) / float64(audio.SampleRate)
		if rms < threshold {
			if !open {
				open = true
				runStart = t
			}
			continue
		}
		if open {
			open = false
			if t-runStart >= d.minSilence {
				spans = append(spans, Span{Start: runStart, End: t})
			}
		}
	}
	if open {
		total := audio.Duration()
		if total-runStart >= d.minSilence {
			spans = append(spans, Span{Start: runStart, End: total})
		}
	}
	return spans, nil
}
