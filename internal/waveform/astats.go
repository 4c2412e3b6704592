package waveform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"capstan/internal/media/wav"
)

// commandRunner abstracts process execution so tests can substitute canned
// output for a real ffmpeg binary.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// AstatsExtractor samples the amplitude envelope with ffmpeg's astats filter.
// Each analysis window is one asetnsamples frame, so the step size holds
// exactly regardless of the container's own framing.
type AstatsExtractor struct {
	binary string
	stepMS int
	runner commandRunner
}

// NewAstatsExtractor builds the millisecond-resolution extractor. stepMS
// values below 1 are raised to 1.
func NewAstatsExtractor(binary string, stepMS int) *AstatsExtractor {
	if stepMS < 1 {
		stepMS = 1
	}
	return &AstatsExtractor{
		binary: binary,
		stepMS: stepMS,
		runner: runCommand,
	}
}

// WithCommandRunner overrides process execution. Tests use this to feed the
// parser canned astats output.
func (e *AstatsExtractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) *AstatsExtractor {
	e.runner = runner
	return e
}

func (e *AstatsExtractor) Name() string {
	return "astats"
}

func (e *AstatsExtractor) Extract(ctx context.Context, audio *wav.Audio) ([]Point, error) {
	windowSamples := audio.SampleRate * e.stepMS / 1000
	if windowSamples < 1 {
		windowSamples = 1
	}
	filter := fmt.Sprintf(
		"asetnsamples=n=%d:p=0,astats=metadata=1:reset=1,ametadata=mode=print:file=-",
		windowSamples,
	)
	args := []string{
		"-hide_banner",
		"-nostats",
		"-v", "error",
		"-i", audio.Path,
		"-af", filter,
		"-f", "null",
		"-",
	}
	output, err := e.runner(ctx, e.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("run ffmpeg astats: %w", err)
	}
	points, err := parseAstats(output)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("ffmpeg astats produced no frames for %s", audio.Path)
	}
	return points, nil
}

// parseAstats walks ametadata print output. Each frame opens with a
// "frame:N pts:P pts_time:T" line followed by key=value lines; the point is
// flushed when the next frame opens or input ends.
func parseAstats(output []byte) ([]Point, error) {
	var (
		points  []Point
		current Point
		open    bool
	)
	flush := func() {
		if !open {
			return
		}
		current.Amplitude = combine(current.RMS, current.Peak)
		points = append(points, current)
		open = false
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "frame:"):
			flush()
			t, err := parsePTSTime(line)
			if err != nil {
				return nil, err
			}
			current = Point{Time: t}
			open = true
		case strings.HasPrefix(line, "lavfi.astats.Overall.RMS_level="):
			current.RMS = decibelsToLinear(strings.TrimPrefix(line, "lavfi.astats.Overall.RMS_level="))
		case strings.HasPrefix(line, "lavfi.astats.Overall.Peak_level="):
			current.Peak = decibelsToLinear(strings.TrimPrefix(line, "lavfi.astats.Overall.Peak_level="))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan astats output: %w", err)
	}
	flush()
	return points, nil
}

func parsePTSTime(line string) (float64, error) {
	idx := strings.Index(line, "pts_time:")
	if idx < 0 {
		return 0, fmt.Errorf("astats frame line missing pts_time: %q", line)
	}
	value := line[idx+len("pts_time:"):]
	if cut := strings.IndexAny(value, " \t"); cut >= 0 {
		value = value[:cut]
	}
	t, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse astats pts_time %q: %w", value, err)
	}
	return t, nil
}

// decibelsToLinear maps astats dB values to [0, 1]. Silence reports "-inf",
// which maps to zero; anything unparsable is treated as silence too since a
// missing level must not abort extraction.
func decibelsToLinear(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "-inf") || strings.EqualFold(value, "-nan") || strings.EqualFold(value, "nan") {
		return 0
	}
	db, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return clampUnit(math.Pow(10, db/20))
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := lastNonEmptyLine(stderr.String())
		if detail == "" {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return stdout.Bytes(), nil
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
