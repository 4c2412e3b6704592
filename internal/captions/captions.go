// Package captions turns segment transcripts into display-ready caption
// blocks. Grouping packs whole segments into blocks inside a word-count
// window without dropping or duplicating a single token; alignment then maps
// each word of a block onto acoustic onsets in the waveform and derives the
// loudness styling renderers consume. The package also exports blocks as
// SubRip cues for external editors.
package captions

import "capstan/internal/textutil"

// Speed classifies how quickly a word is spoken relative to its loudness.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// color maps a speed class to the fixed styling color renderers expect.
func (s Speed) color() string {
	switch s {
	case SpeedFast:
		return "red"
	case SpeedSlow:
		return "blue"
	default:
		return "green"
	}
}

// Highlight carries the karaoke-style emphasis times for one word.
type Highlight struct {
	Onset float64 `json:"onsetTime"`
	Peak  float64 `json:"peakTime"`
	End   float64 `json:"endTime"`
}

// WordTiming is the per-word result of alignment: when the word is spoken,
// how loud it is, and how its styling class renders. Times are seconds at
// millisecond precision.
type WordTiming struct {
	Word       string    `json:"word"`
	Start      float64   `json:"startTime"`
	End        float64   `json:"endTime"`
	Confidence float64   `json:"confidence"`
	Amplitude  float64   `json:"amplitude"`
	Speed      Speed     `json:"speechSpeed"`
	Color      string    `json:"waveformColor"`
	Highlight  Highlight `json:"highlightTiming"`
}

// Duration reports the word length in seconds.
func (w WordTiming) Duration() float64 {
	return w.End - w.Start
}

// Block is one packed group of words displayed together during playback.
type Block struct {
	Start      float64      `json:"startTime"`
	End        float64      `json:"endTime"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Words      []WordTiming `json:"words"`
}

// Duration reports the block length in seconds.
func (b Block) Duration() float64 {
	return b.End - b.Start
}

// WordCount reports the number of words in the block text.
func (b Block) WordCount() int {
	return textutil.WordCount(b.Text)
}
