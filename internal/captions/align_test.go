package captions

import (
	"math"
	"testing"

	"capstan/internal/waveform"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// flatWaveform builds a 10ms-step point series over [0, duration) with
// constant amplitude and quiet RMS, plus an RMS onset crossing at each of
// the given times.
func flatWaveform(duration float64, onsetTimes ...float64) []waveform.Point {
	steps := int(duration * 100)
	points := make([]waveform.Point, 0, steps)
	for i := 0; i < steps; i++ {
		at := float64(i) / 100
		rms := 0.001
		for _, onset := range onsetTimes {
			if at >= onset && at < onset+0.03 {
				rms = 0.05
			}
		}
		points = append(points, waveform.Point{
			Time:      at,
			Amplitude: 0.5,
			RMS:       rms,
			Peak:      0.5,
		})
	}
	return points
}

func TestClassifySpeed(t *testing.T) {
	opts := DefaultAlignOptions()
	tests := []struct {
		name        string
		charsPerSec float64
		amplitude   float64
		want        Speed
	}{
		{"fast pace", 9, 0.5, SpeedFast},
		{"slow pace", 3, 0.5, SpeedSlow},
		{"normal", 5, 0.5, SpeedNormal},
		{"loud overrides pace", 5, 0.9, SpeedFast},
		{"quiet overrides pace", 5, 0.2, SpeedSlow},
		{"rushed quiet word reads fast", 9, 0.2, SpeedFast},
		{"exactly at fast cutoff stays normal", 8, 0.5, SpeedNormal},
		{"exactly at slow cutoff stays normal", 4, 0.5, SpeedNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySpeed(tt.charsPerSec, tt.amplitude, opts); got != tt.want {
				t.Errorf("classifySpeed(%v, %v) = %s, want %s", tt.charsPerSec, tt.amplitude, got, tt.want)
			}
		})
	}
}

func TestSpeedColors(t *testing.T) {
	tests := []struct {
		speed Speed
		want  string
	}{
		{SpeedFast, "red"},
		{SpeedSlow, "blue"},
		{SpeedNormal, "green"},
	}
	for _, tt := range tests {
		if got := tt.speed.color(); got != tt.want {
			t.Errorf("%s.color() = %q, want %q", tt.speed, got, tt.want)
		}
	}
}

func TestSyllableCount(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"hello", 2},
		{"banana", 3},
		{"idea", 2},
		{"rhythm", 1},
		{"", 1},
	}
	for _, tt := range tests {
		if got := syllableCount(tt.word); got != tt.want {
			t.Errorf("syllableCount(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestAlignBlockProportionalWithoutWaveform(t *testing.T) {
	block := Block{Start: 0, End: 4, Text: "north south east west", Confidence: 0.9}

	words := AlignBlock(block, nil, nil, AlignOptions{})
	if len(words) != 4 {
		t.Fatalf("words = %d, want 4", len(words))
	}
	for i, w := range words {
		wantStart := float64(i)
		if !almostEqual(w.Start, wantStart) || !almostEqual(w.End, wantStart+1) {
			t.Errorf("word %d timing [%v, %v], want [%v, %v]", i, w.Start, w.End, wantStart, wantStart+1)
		}
		if !almostEqual(w.Confidence, degradedConfidence) {
			t.Errorf("word %d confidence = %v, want capped at %v", i, w.Confidence, degradedConfidence)
		}
		if !almostEqual(w.Amplitude, defaultAmplitude) {
			t.Errorf("word %d amplitude = %v, want default %v", i, w.Amplitude, defaultAmplitude)
		}
	}
}

func TestAlignBlockSnapsToOnsets(t *testing.T) {
	block := Block{Start: 0, End: 4, Text: "alpha beta", Confidence: 0.9}
	points := flatWaveform(4, 2.05)

	words := AlignBlock(block, points, nil, AlignOptions{})
	if len(words) != 2 {
		t.Fatalf("words = %d, want 2", len(words))
	}

	// No onset near t=0: proportional timing, degraded confidence.
	first := words[0]
	if !almostEqual(first.Start, 0) || !almostEqual(first.End, 2) {
		t.Errorf("first word timing [%v, %v], want [0, 2]", first.Start, first.End)
	}
	if !almostEqual(first.Confidence, degradedConfidence) {
		t.Errorf("first word confidence = %v, want %v", first.Confidence, degradedConfidence)
	}

	// The onset at 2.05 is within the window of the nominal start 2.0; the
	// word snaps to it and keeps its source confidence.
	second := words[1]
	if !almostEqual(second.Start, 2.05) {
		t.Errorf("second word start = %v, want 2.05", second.Start)
	}
	wantEnd := 2.05 + float64(syllableCount("beta"))*DefaultAlignOptions().SyllableSeconds
	if !almostEqual(second.End, math.Round(wantEnd*1000)/1000) {
		t.Errorf("second word end = %v, want %v", second.End, wantEnd)
	}
	if !almostEqual(second.Confidence, 0.9) {
		t.Errorf("second word confidence = %v, want 0.9", second.Confidence)
	}
}

func TestAlignBlockStyling(t *testing.T) {
	block := Block{Start: 0, End: 4, Text: "interminable ha", Confidence: 0.9}

	words := AlignBlock(block, flatWaveform(4), nil, AlignOptions{})
	if len(words) != 2 {
		t.Fatalf("words = %d, want 2", len(words))
	}
	// 12 chars over 2s = 6 chars/sec at amplitude 0.5: normal.
	if words[0].Speed != SpeedNormal || words[0].Color != "green" {
		t.Errorf("long word = %s/%s, want normal/green", words[0].Speed, words[0].Color)
	}
	// 2 chars over 2s = 1 char/sec: slow.
	if words[1].Speed != SpeedSlow || words[1].Color != "blue" {
		t.Errorf("short word = %s/%s, want slow/blue", words[1].Speed, words[1].Color)
	}
	for i, w := range words {
		if w.Highlight.Onset != w.Start || w.Highlight.End != w.End {
			t.Errorf("word %d highlight [%v, %v] does not bracket [%v, %v]",
				i, w.Highlight.Onset, w.Highlight.End, w.Start, w.End)
		}
		if w.Highlight.Peak < w.Start || w.Highlight.Peak > w.End {
			t.Errorf("word %d peak %v outside [%v, %v]", i, w.Highlight.Peak, w.Start, w.End)
		}
	}
}

func TestAlignDurationBounds(t *testing.T) {
	opts := DefaultAlignOptions()

	// A sliver of a block still yields the minimum duration.
	tiny := AlignBlock(Block{Start: 0, End: 0.02, Text: "a", Confidence: 1}, nil, nil, AlignOptions{})
	if len(tiny) != 1 {
		t.Fatalf("words = %d, want 1", len(tiny))
	}
	if !almostEqual(tiny[0].Duration(), opts.MinWordSeconds) {
		t.Errorf("tiny word duration = %v, want clamped to %v", tiny[0].Duration(), opts.MinWordSeconds)
	}

	// One word stretched over a long block is clamped to the maximum.
	long := AlignBlock(Block{Start: 0, End: 30, Text: "pause", Confidence: 1}, nil, nil, AlignOptions{})
	if len(long) != 1 {
		t.Fatalf("words = %d, want 1", len(long))
	}
	if !almostEqual(long[0].Duration(), opts.MaxWordSeconds) {
		t.Errorf("long word duration = %v, want clamped to %v", long[0].Duration(), opts.MaxWordSeconds)
	}
}

func TestAlignBlocksStartsNonDecreasing(t *testing.T) {
	blocks := []Block{
		{Start: 0, End: 3, Text: "one two three", Confidence: 0.8},
		{Start: 3, End: 6, Text: "four five six", Confidence: 0.8},
	}
	points := flatWaveform(6, 0.5, 1.1, 2.0, 3.1, 4.0, 5.2)

	aligned := AlignBlocks(blocks, points, nil, AlignOptions{})
	if len(aligned) != 2 {
		t.Fatalf("blocks = %d, want 2", len(aligned))
	}
	prev := 0.0
	for bi, block := range aligned {
		if len(block.Words) != 3 {
			t.Fatalf("block %d words = %d, want 3", bi, len(block.Words))
		}
		for wi, w := range block.Words {
			if w.Start < prev {
				t.Errorf("block %d word %d start %v precedes %v", bi, wi, w.Start, prev)
			}
			if w.End < w.Start {
				t.Errorf("block %d word %d end %v precedes start %v", bi, wi, w.End, w.Start)
			}
			prev = w.Start
		}
	}
}

func TestAlignBlocksMillisecondPrecision(t *testing.T) {
	blocks := []Block{{Start: 0.1234567, End: 2.7654321, Text: "uneven words here", Confidence: 0.9}}

	aligned := AlignBlocks(blocks, nil, nil, AlignOptions{})
	for _, w := range aligned[0].Words {
		for name, v := range map[string]float64{"start": w.Start, "end": w.End} {
			if !almostEqual(v, math.Round(v*1000)/1000) {
				t.Errorf("%s %v not at millisecond precision", name, v)
			}
		}
	}
}

func TestAlignBlockEmptyText(t *testing.T) {
	if words := AlignBlock(Block{Start: 0, End: 1}, nil, nil, AlignOptions{}); words != nil {
		t.Errorf("expected nil words for empty text, got %v", words)
	}
}

func TestOnsetTimesMergesSources(t *testing.T) {
	points := flatWaveform(3, 1.0)
	speech := []waveform.SpeechSegment{{Start: 1.0, End: 2.5}, {Start: 2.2, End: 2.9}}

	onsets := onsetTimes(points, speech, DefaultAlignOptions())
	if len(onsets) == 0 {
		t.Fatal("expected onset events")
	}
	for i := 1; i < len(onsets); i++ {
		if onsets[i] <= onsets[i-1] {
			t.Fatalf("onsets not strictly increasing: %v", onsets)
		}
	}
	found := false
	for _, at := range onsets {
		if almostEqual(at, 2.2) {
			found = true
		}
	}
	if !found {
		t.Errorf("speech segment start 2.2 missing from onsets %v", onsets)
	}
}
