package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capstan/internal/config"
	"capstan/internal/deps"
	"capstan/internal/media/ffprobe"
	"capstan/internal/media/wav"
	"capstan/internal/pipeline"
	"capstan/internal/silence"
	"capstan/internal/waveform"
)

// probeReport is the --json shape of a probe run.
type probeReport struct {
	Source           string                   `json:"source"`
	SampleRate       int                      `json:"sampleRate"`
	Duration         float64                  `json:"duration"`
	WaveformStrategy string                   `json:"waveformStrategy"`
	PointCount       int                      `json:"pointCount"`
	SpeechSegments   []waveform.SpeechSegment `json:"speechSegments"`
	Spans            []silence.Span           `json:"spans"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe <audio.wav>",
		Short: "Analyze an audio file without calling the recognizer",
		Long: "Probe runs the local half of the pipeline: waveform extraction, speech\n" +
			"detection, and silence segmentation. Use it to check what strategy the\n" +
			"host supports and how a file will be carved up before spending recognizer\n" +
			"calls on it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(true)
			if err != nil {
				return err
			}

			audioPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			audio, err := wav.Open(audioPath)
			if err != nil {
				return err
			}

			spans, err := pipeline.NewSegmenter(cfg, logger).Segment(cmd.Context(), audio)
			if err != nil {
				return err
			}

			report := probeReport{
				Source:     audioPath,
				SampleRate: audio.SampleRate,
				Duration:   audio.Duration(),
				Spans:      spans,
			}
			points, strategy, err := pipeline.NewSelector(cfg, logger).Extract(cmd.Context(), audio)
			if err != nil {
				report.WaveformStrategy = "none"
			} else {
				report.WaveformStrategy = strategy
				report.PointCount = len(points)
				report.SpeechSegments = waveform.DetectSpeech(points, waveform.SpeechOptions{
					SilenceThreshold:  cfg.Waveform.SpeechRMSThreshold,
					MinSpeechDuration: cfg.Waveform.MinSpeechSeconds,
				})
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}
			printProbeReport(cmd, cfg, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the probe report as JSON")
	return cmd
}

func printProbeReport(cmd *cobra.Command, cfg *config.Config, report probeReport) {
	out := cmd.OutOrStdout()

	rows := [][]string{
		{"Source", truncate(report.Source, 60)},
		{"Sample rate", fmt.Sprintf("%d Hz", report.SampleRate)},
		{"Duration", formatSeconds(report.Duration)},
		{"Waveform strategy", report.WaveformStrategy},
		{"Waveform points", fmt.Sprintf("%d", report.PointCount)},
		{"Speech segments", fmt.Sprintf("%d", len(report.SpeechSegments))},
		{"Transcription spans", fmt.Sprintf("%d", len(report.Spans))},
	}
	if deps.Available(cfg.FFprobeBinary()) {
		if probed, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), report.Source); err == nil {
			if stream, ok := probed.FirstAudioStream(); ok {
				rows = append(rows, []string{"Codec", stream.CodecName})
			}
		}
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))

	if len(report.Spans) > 0 {
		spanRows := make([][]string, 0, len(report.Spans))
		for i, span := range report.Spans {
			spanRows = append(spanRows, []string{
				fmt.Sprintf("%d", i+1),
				fmt.Sprintf("%.3f", span.Start),
				fmt.Sprintf("%.3f", span.End),
				formatSeconds(span.Duration()),
			})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Span", "Start", "End", "Duration"}, spanRows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight}))
	}
}
