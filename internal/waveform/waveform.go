// Package waveform turns canonical audio into amplitude time series and
// speech segments. Two extraction strategies implement the same interface:
// an ffmpeg astats pipeline sampling at millisecond resolution, and a pure-Go
// PCM scan at coarser resolution for hosts without ffmpeg. Callers select a
// strategy through the Selector, which probes capabilities at run time.
package waveform

import (
	"context"

	"capstan/internal/media/wav"
)

// Point is one sample of the amplitude envelope. Times are seconds from the
// start of the audio and strictly increase at the extractor's step size.
// Amplitude, RMS, and Peak are normalized to [0, 1].
type Point struct {
	Time      float64 `json:"time"`
	Amplitude float64 `json:"amplitude"`
	RMS       float64 `json:"rms"`
	Peak      float64 `json:"peak"`
}

// SpeechSegment is a contiguous run of speech-level points.
type SpeechSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	AvgAmplitude float64 `json:"avgAmplitude"`
	Confidence   float64 `json:"confidence"`
}

// Duration reports the segment length in seconds.
func (s SpeechSegment) Duration() float64 {
	return s.End - s.Start
}

// Extractor produces the amplitude envelope for a piece of audio.
type Extractor interface {
	// Extract computes points for the full length of audio. Identical input
	// bytes yield identical points.
	Extract(ctx context.Context, audio *wav.Audio) ([]Point, error)
	// Name identifies the strategy in logs and probe output.
	Name() string
}

// combine folds window RMS and peak into the single amplitude used by
// grouping and alignment. Both strategies use the same fold so thresholds
// behave identically regardless of which one ran.
func combine(rms, peak float64) float64 {
	return (rms + peak) / 2
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
