package captions

import (
	"strings"

	"capstan/internal/textutil"
	"capstan/internal/transcribe"
)

// GroupOptions sets the word-count window blocks are packed into. Zero values
// take the documented defaults.
type GroupOptions struct {
	// MinWords is the count a pending block must reach before the packer may
	// close it early to avoid overflowing MaxWords.
	MinWords int
	// MaxWords closes a pending block as soon as it is reached.
	MaxWords int
}

func (o GroupOptions) normalized() GroupOptions {
	if o.MinWords < 1 {
		o.MinWords = 5
	}
	if o.MaxWords < o.MinWords {
		o.MaxWords = o.MinWords * 2
	}
	return o
}

// Group packs segment transcripts into caption blocks, left to right. A
// pending block closes before the next segment when it already holds MinWords
// and the segment would push it past MaxWords, and closes immediately when it
// reaches MaxWords; the final pending block always flushes, whatever its
// count. Segments are never split, so every block boundary is also a segment
// boundary and the concatenation of block texts reproduces the concatenation
// of segment texts exactly. Segments with no words (failed recognizer units)
// contribute nothing and are skipped.
func Group(segments []transcribe.SegmentTranscript, opts GroupOptions) []Block {
	opts = opts.normalized()
	var (
		blocks  []Block
		pending []transcribe.SegmentTranscript
		count   int
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		blocks = append(blocks, buildBlock(pending))
		pending = pending[:0]
		count = 0
	}
	for _, segment := range segments {
		words := textutil.WordCount(segment.Text)
		if words == 0 {
			continue
		}
		if count >= opts.MinWords && count+words > opts.MaxWords {
			flush()
		}
		pending = append(pending, segment)
		count += words
		if count >= opts.MaxWords {
			flush()
		}
	}
	flush()
	return blocks
}

// buildBlock folds consecutive segments into one block: bounds from the first
// and last constituents, text joined in order, confidence averaged.
func buildBlock(segments []transcribe.SegmentTranscript) Block {
	texts := make([]string, 0, len(segments))
	var confidenceSum float64
	for _, segment := range segments {
		texts = append(texts, segment.Text)
		confidenceSum += segment.Confidence
	}
	start := segments[0].Start
	end := segments[len(segments)-1].End
	if end < start {
		end = start
	}
	return Block{
		Start:      start,
		End:        end,
		Text:       strings.Join(texts, " "),
		Confidence: confidenceSum / float64(len(segments)),
	}
}
