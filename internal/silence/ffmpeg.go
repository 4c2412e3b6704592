package silence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"capstan/internal/media/wav"
)

// FFmpegDetector runs the silencedetect filter. ffmpeg reports detections on
// stderr, so the runner captures both streams.
type FFmpegDetector struct {
	binary      string
	thresholdDB float64
	minSilence  float64
	runner      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewFFmpegDetector(binary string, thresholdDB, minSilence float64) *FFmpegDetector {
	return &FFmpegDetector{
		binary:      binary,
		thresholdDB: thresholdDB,
		minSilence:  minSilence,
		runner:      runCombined,
	}
}

// WithCommandRunner overrides process execution for tests.
func (d *FFmpegDetector) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) *FFmpegDetector {
	d.runner = runner
	return d
}

func (d *FFmpegDetector) Name() string {
	return "silencedetect"
}

func (d *FFmpegDetector) Detect(ctx context.Context, audio *wav.Audio) ([]Span, error) {
	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g", d.thresholdDB, d.minSilence)
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", audio.Path,
		"-af", filter,
		"-f", "null",
		"-",
	}
	output, err := d.runner(ctx, d.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("run ffmpeg silencedetect: %w", err)
	}
	spans, err := parseSilencedetect(output, audio.Duration())
	if err != nil {
		return nil, err
	}
	return spans, nil
}

// parseSilencedetect extracts silence_start/silence_end pairs from filter
// output. A start without a matching end means silence runs to the end of
// the file.
func parseSilencedetect(output []byte, totalDuration float64) ([]Span, error) {
	var (
		spans []Span
		start float64
		open  bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if value, ok := silencedetectValue(line, "silence_start:"); ok {
			t, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parse silence_start %q: %w", value, err)
			}
			start = t
			open = true
			continue
		}
		if value, ok := silencedetectValue(line, "silence_end:"); ok {
			t, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parse silence_end %q: %w", value, err)
			}
			if open {
				spans = append(spans, Span{Start: start, End: t})
				open = false
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan silencedetect output: %w", err)
	}
	if open {
		spans = append(spans, Span{Start: start, End: totalDuration})
	}
	return spans, nil
}

func silencedetectValue(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	value := strings.TrimSpace(line[idx+len(key):])
	if fields := strings.Fields(value); len(fields) > 0 {
		return fields[0], true
	}
	return "", false
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
