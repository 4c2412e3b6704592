// Package pipeline runs the caption pipeline end to end: canonical audio in,
// word-aligned caption blocks out. One Runner invocation is one run; stages
// never re-enter, recognizer failures stay local to their unit, and the only
// fatal boundary is the canonical audio itself. Every run carries an explicit
// usage ledger instead of ambient counters.
package pipeline

import (
	"time"

	"capstan/internal/captions"
	"capstan/internal/transcribe"
)

// Result is the output contract handed to rendering and styling consumers.
type Result struct {
	FullTranscript string           `json:"fullTranscript"`
	TotalDuration  float64          `json:"totalDuration"`
	CaptionBlocks  []captions.Block `json:"captionBlocks"`
}

// WordCount reports the total number of aligned words across all blocks.
func (r Result) WordCount() int {
	count := 0
	for _, block := range r.CaptionBlocks {
		count += len(block.Words)
	}
	return count
}

// Outcome bundles the result with the run's bookkeeping.
type Outcome struct {
	Result           Result
	Usage            transcribe.Usage
	RunID            string
	WaveformStrategy string
	Elapsed          time.Duration
}
