package waveform

import (
	"context"
	"fmt"
	"math"

	"capstan/internal/media/wav"
)

// PCMExtractor computes the envelope directly from decoded samples. It needs
// no external binary, at the cost of a coarser default step than astats.
type PCMExtractor struct {
	stepMS int
}

// NewPCMExtractor builds the pure-Go extractor. stepMS values below 1 fall
// back to 100.
func NewPCMExtractor(stepMS int) *PCMExtractor {
	if stepMS < 1 {
		stepMS = 100
	}
	return &PCMExtractor{stepMS: stepMS}
}

func (e *PCMExtractor) Name() string {
	return "pcm"
}

func (e *PCMExtractor) Extract(ctx context.Context, audio *wav.Audio) ([]Point, error) {
	samples, err := audio.ReadSamples()
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	window := audio.SampleRate * e.stepMS / 1000
	if window < 1 {
		window = 1
	}
	points := make([]Point, 0, len(samples)/window+1)
	for start := 0; start < len(samples); start += window {
		if len(points)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		var sumSquares, peak float64
		for _, s := range samples[start:end] {
			v := float64(s) / 32768
			sumSquares += v * v
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		rms := clampUnit(math.Sqrt(sumSquares / float64(end-start)))
		peak = clampUnit(peak)
		points = append(points, Point{
			Time:      float64(start) / float64(audio.SampleRate),
			Amplitude: combine(rms, peak),
			RMS:       rms,
			Peak:      peak,
		})
	}
	return points, nil
}
