package captions

import (
	"fmt"
	"os"
	"strings"
)

// FormatSRT renders blocks as SubRip cues: index, start --> end, text. One
// cue per block; word-level timing stays in the JSON result, since SubRip
// has no per-word representation.
func FormatSRT(blocks []Block) string {
	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTimestamp(block.Start), formatSRTTimestamp(block.End))
		sb.WriteString(block.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteSRT exports blocks to path for external subtitle editors.
func WriteSRT(path string, blocks []Block) error {
	if err := os.WriteFile(path, []byte(FormatSRT(blocks)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// formatSRTTimestamp renders seconds as the HH:MM:SS,mmm form SubRip expects.
func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
