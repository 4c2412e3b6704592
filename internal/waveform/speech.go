package waveform

import "math"

// SpeechOptions tunes speech-run detection over the envelope. These operate
// at word-onset scale, unlike the silence segmenter's coarser call-sizing
// thresholds.
type SpeechOptions struct {
	// SilenceThreshold is the RMS floor; points above it count as speech.
	SilenceThreshold float64
	// MinSpeechDuration drops runs shorter than this many seconds.
	MinSpeechDuration float64
}

// DefaultSpeechOptions mirrors the config defaults.
func DefaultSpeechOptions() SpeechOptions {
	return SpeechOptions{
		SilenceThreshold:  0.01,
		MinSpeechDuration: 0.05,
	}
}

// DetectSpeech folds the envelope into contiguous speech segments. A run
// opens at the first point whose RMS clears the threshold and closes at the
// first point that does not; a run still open at the end of the series closes
// at the final timestamp. Runs shorter than the minimum duration are dropped.
func DetectSpeech(points []Point, opts SpeechOptions) []SpeechSegment {
	if opts.SilenceThreshold <= 0 {
		opts.SilenceThreshold = 0.01
	}
	if opts.MinSpeechDuration <= 0 {
		opts.MinSpeechDuration = 0.05
	}
	var (
		segments     []SpeechSegment
		runStart     float64
		amplitudeSum float64
		runCount     int
		inRun        bool
	)
	flush := func(end float64) {
		if !inRun {
			return
		}
		inRun = false
		if end-runStart < opts.MinSpeechDuration {
			return
		}
		avg := amplitudeSum / float64(runCount)
		segments = append(segments, SpeechSegment{
			Start:        runStart,
			End:          end,
			AvgAmplitude: avg,
			Confidence:   math.Min(1, avg*2),
		})
	}
	for _, p := range points {
		if p.RMS > opts.SilenceThreshold {
			if !inRun {
				inRun = true
				runStart = p.Time
				amplitudeSum = 0
				runCount = 0
			}
			amplitudeSum += p.Amplitude
			runCount++
			continue
		}
		flush(p.Time)
	}
	if len(points) > 0 {
		flush(points[len(points)-1].Time)
	}
	return segments
}
