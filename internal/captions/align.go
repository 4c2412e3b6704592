package captions

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"capstan/internal/waveform"
)

// degradedConfidence caps word confidence whenever timing falls back to the
// proportional estimate, with or without a waveform.
const degradedConfidence = 0.7

// defaultAmplitude stands in when no waveform points cover a word's window.
const defaultAmplitude = 0.5

// minOnsetGap is how far past a word's start the next onset must land before
// it can close the word; closer events belong to the same attack.
const minOnsetGap = 0.1

// AlignOptions tunes onset search, duration bounds, and the speed
// classification cutoffs. Zero values take the documented defaults. The
// cutoffs are empirical for conversational speech and deliberately
// configurable.
type AlignOptions struct {
	// OnsetRMSThreshold marks an onset where RMS crosses it from below.
	OnsetRMSThreshold float64
	// PeakThreshold admits local amplitude maxima as onset events.
	PeakThreshold float64
	// OnsetWindow bounds the match search around each word's nominal start.
	OnsetWindow float64
	// SyllableSeconds converts the syllable count into a nominal duration.
	SyllableSeconds float64
	// MinWordSeconds and MaxWordSeconds clamp every word's final duration.
	MinWordSeconds float64
	MaxWordSeconds float64
	// FastCharsPerSec and SlowCharsPerSec are the speed cutoffs.
	FastCharsPerSec float64
	SlowCharsPerSec float64
	// LoudAmplitude and QuietAmplitude classify by loudness alone.
	LoudAmplitude  float64
	QuietAmplitude float64
}

// DefaultAlignOptions mirrors the config defaults.
func DefaultAlignOptions() AlignOptions {
	return AlignOptions{
		OnsetRMSThreshold: 0.01,
		PeakThreshold:     0.30,
		OnsetWindow:       0.2,
		SyllableSeconds:   0.15,
		MinWordSeconds:    0.05,
		MaxWordSeconds:    2.0,
		FastCharsPerSec:   8,
		SlowCharsPerSec:   4,
		LoudAmplitude:     0.8,
		QuietAmplitude:    0.3,
	}
}

func (o AlignOptions) normalized() AlignOptions {
	defaults := DefaultAlignOptions()
	if o.OnsetRMSThreshold <= 0 {
		o.OnsetRMSThreshold = defaults.OnsetRMSThreshold
	}
	if o.PeakThreshold <= 0 {
		o.PeakThreshold = defaults.PeakThreshold
	}
	if o.OnsetWindow <= 0 {
		o.OnsetWindow = defaults.OnsetWindow
	}
	if o.SyllableSeconds <= 0 {
		o.SyllableSeconds = defaults.SyllableSeconds
	}
	if o.MinWordSeconds <= 0 {
		o.MinWordSeconds = defaults.MinWordSeconds
	}
	if o.MaxWordSeconds <= o.MinWordSeconds {
		o.MaxWordSeconds = defaults.MaxWordSeconds
	}
	if o.FastCharsPerSec <= 0 {
		o.FastCharsPerSec = defaults.FastCharsPerSec
	}
	if o.SlowCharsPerSec <= 0 {
		o.SlowCharsPerSec = defaults.SlowCharsPerSec
	}
	if o.LoudAmplitude <= 0 {
		o.LoudAmplitude = defaults.LoudAmplitude
	}
	if o.QuietAmplitude <= 0 {
		o.QuietAmplitude = defaults.QuietAmplitude
	}
	return o
}

// AlignBlocks attaches word timings to every block. Onset events are derived
// once from the waveform and shared across blocks. An empty point series puts
// the whole pass into degraded proportional timing, which still yields a full
// word list for every block.
func AlignBlocks(blocks []Block, points []waveform.Point, speech []waveform.SpeechSegment, opts AlignOptions) []Block {
	opts = opts.normalized()
	onsets := onsetTimes(points, speech, opts)
	out := make([]Block, len(blocks))
	for i, block := range blocks {
		block.Words = alignBlock(block, points, onsets, opts)
		out[i] = block
	}
	return out
}

// AlignBlock computes word timings for a single block. Exposed for callers
// that align incrementally; AlignBlocks is the batch form the pipeline uses.
func AlignBlock(block Block, points []waveform.Point, speech []waveform.SpeechSegment, opts AlignOptions) []WordTiming {
	opts = opts.normalized()
	return alignBlock(block, points, onsetTimes(points, speech, opts), opts)
}

func alignBlock(block Block, points []waveform.Point, onsets []float64, opts AlignOptions) []WordTiming {
	words := strings.Fields(block.Text)
	if len(words) == 0 {
		return nil
	}
	span := block.End - block.Start
	if span < 0 {
		span = 0
	}
	share := span / float64(len(words))
	degraded := len(points) == 0

	timings := make([]WordTiming, 0, len(words))
	floor := block.Start
	for i, word := range words {
		nominal := block.Start + float64(i)*share
		confidence := block.Confidence
		start := nominal
		var end float64

		onset, hit := nearestOnset(onsets, nominal, opts.OnsetWindow)
		if !degraded && hit {
			start = onset
			duration := float64(syllableCount(word)) * opts.SyllableSeconds
			if next, ok := firstOnsetIn(onsets, start+minOnsetGap, start+duration+opts.OnsetWindow); ok {
				end = next
			} else {
				end = start + duration
			}
		} else {
			// No acoustic anchor: keep the proportional estimate and mark the
			// timing as approximate.
			end = nominal + share
			confidence = math.Min(confidence, degradedConfidence)
		}

		// Starts snap independently, so a neighbor's onset can land earlier
		// than ours; hold them non-decreasing across the block.
		if start < floor {
			start = floor
		}
		start = roundMS(start)
		duration := roundMS(clamp(end-start, opts.MinWordSeconds, opts.MaxWordSeconds))
		end = roundMS(start + duration)
		floor = start

		timing := WordTiming{
			Word:       word,
			Start:      start,
			End:        end,
			Confidence: confidence,
		}
		styleWord(&timing, points, opts)
		timings = append(timings, timing)
	}
	return timings
}

// styleWord fills the loudness-derived fields: mean amplitude and peak time
// over the word's own window, the speed class, its color, and the highlight
// triple.
func styleWord(w *WordTiming, points []waveform.Point, opts AlignOptions) {
	amplitude, peakTime, covered := windowAmplitude(points, w.Start, w.End)
	if !covered {
		amplitude = defaultAmplitude
		peakTime = (w.Start + w.End) / 2
	}
	w.Amplitude = amplitude

	duration := w.End - w.Start
	charsPerSec := 0.0
	if duration > 0 {
		charsPerSec = float64(utf8.RuneCountInString(w.Word)) / duration
	}
	w.Speed = classifySpeed(charsPerSec, amplitude, opts)
	w.Color = w.Speed.color()
	w.Highlight = Highlight{
		Onset: w.Start,
		Peak:  roundMS(peakTime),
		End:   w.End,
	}
}

// classifySpeed picks the styling class. Fast is checked first, so a rushed
// quiet word still reads fast.
func classifySpeed(charsPerSec, amplitude float64, opts AlignOptions) Speed {
	switch {
	case charsPerSec > opts.FastCharsPerSec || amplitude > opts.LoudAmplitude:
		return SpeedFast
	case charsPerSec < opts.SlowCharsPerSec || amplitude < opts.QuietAmplitude:
		return SpeedSlow
	default:
		return SpeedNormal
	}
}

// onsetTimes derives the sorted, deduplicated onset event list: RMS upward
// crossings of the detection threshold, local amplitude maxima above the peak
// threshold, and speech segment starts.
func onsetTimes(points []waveform.Point, speech []waveform.SpeechSegment, opts AlignOptions) []float64 {
	var events []float64
	for i := 1; i < len(points); i++ {
		if points[i].RMS > opts.OnsetRMSThreshold && points[i-1].RMS <= opts.OnsetRMSThreshold {
			events = append(events, points[i].Time)
		}
	}
	for i := 1; i+1 < len(points); i++ {
		if points[i].Amplitude > opts.PeakThreshold &&
			points[i].Amplitude > points[i-1].Amplitude &&
			points[i].Amplitude >= points[i+1].Amplitude {
			events = append(events, points[i].Time)
		}
	}
	for _, segment := range speech {
		events = append(events, segment.Start)
	}
	sort.Float64s(events)
	deduped := events[:0]
	for i, t := range events {
		if i > 0 && t == events[i-1] {
			continue
		}
		deduped = append(deduped, t)
	}
	return deduped
}

// nearestOnset returns the onset closest to target within ±window.
func nearestOnset(onsets []float64, target, window float64) (float64, bool) {
	if len(onsets) == 0 {
		return 0, false
	}
	idx := sort.SearchFloat64s(onsets, target)
	best := -1.0
	bestDelta := math.Inf(1)
	for _, candidate := range []int{idx - 1, idx} {
		if candidate < 0 || candidate >= len(onsets) {
			continue
		}
		delta := math.Abs(onsets[candidate] - target)
		if delta < bestDelta {
			best = onsets[candidate]
			bestDelta = delta
		}
	}
	if bestDelta > window {
		return 0, false
	}
	return best, true
}

// firstOnsetIn returns the earliest onset in [lo, hi].
func firstOnsetIn(onsets []float64, lo, hi float64) (float64, bool) {
	idx := sort.SearchFloat64s(onsets, lo)
	if idx >= len(onsets) || onsets[idx] > hi {
		return 0, false
	}
	return onsets[idx], true
}

// windowAmplitude reports the mean amplitude over [start, end] and the time
// of the loudest point. covered is false when no point falls in the window.
func windowAmplitude(points []waveform.Point, start, end float64) (mean, peakTime float64, covered bool) {
	idx := sort.Search(len(points), func(i int) bool { return points[i].Time >= start })
	var (
		sum   float64
		count int
		peak  = -1.0
	)
	for i := idx; i < len(points) && points[i].Time <= end; i++ {
		sum += points[i].Amplitude
		count++
		if points[i].Amplitude > peak {
			peak = points[i].Amplitude
			peakTime = points[i].Time
		}
	}
	if count == 0 {
		return 0, 0, false
	}
	return sum / float64(count), peakTime, true
}

// syllableCount approximates syllables as maximal vowel-letter groups with a
// floor of one, so consonant-only tokens still earn a nominal duration.
func syllableCount(word string) int {
	count := 0
	inGroup := false
	for _, r := range strings.ToLower(word) {
		if strings.ContainsRune("aeiou", r) {
			if !inGroup {
				count++
				inGroup = true
			}
			continue
		}
		inGroup = false
	}
	if count < 1 {
		return 1
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundMS rounds a time to millisecond precision.
func roundMS(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
