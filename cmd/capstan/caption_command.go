package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"capstan/internal/captions"
	"capstan/internal/config"
	"capstan/internal/fileutil"
	"capstan/internal/language"
	"capstan/internal/pipeline"
	"capstan/internal/recognizer"
	"capstan/internal/runstore"
	"capstan/internal/services"
	"capstan/internal/transcribe"
)

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut    bool
		srtTarget  string
		jsonTarget string
		noLedger   bool
	)

	cmd := &cobra.Command{
		Use:   "caption <audio.wav>",
		Short: "Produce word-aligned caption blocks for a canonical audio file",
		Long: "Caption runs the full pipeline over a mono 16-bit PCM WAV file: silence\n" +
			"segmentation, chunked and context-biased transcription, caption grouping,\n" +
			"and word-to-waveform alignment. The result is printed as a summary table\n" +
			"or, with --json, as the full result document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(jsonOut)
			if err != nil {
				return err
			}

			rc := cfg.GetRecognizer()
			if rc.APIKey == "" {
				return services.Wrap(services.ErrConfiguration, "caption", "recognizer",
					"api key missing; set recognizer.api_key or CAPSTAN_RECOGNIZER_API_KEY", nil)
			}

			audioPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			usage := transcribe.NewUsageCollector()
			client := recognizer.NewClient(recognizer.Config{
				APIKey:         rc.APIKey,
				BaseURL:        rc.BaseURL,
				Model:          rc.Model,
				TimeoutSeconds: rc.TimeoutSeconds,
			},
				recognizer.WithRetryMaxAttempts(rc.RetryMaxAttempts),
				recognizer.WithRetryObserver(usage.RecordRetry),
			)

			var store *runstore.Store
			if !noLedger {
				store, err = runstore.Open(cfg)
				if err != nil {
					return fmt.Errorf("open run ledger (use --no-ledger to skip): %w", err)
				}
				defer store.Close()
			}

			runner := pipeline.New(cfg, client, usage, store, logger)
			outcome, err := runner.Run(cmd.Context(), audioPath)
			if err != nil {
				return err
			}

			if err := publishExports(cfg, outcome, srtTarget, jsonTarget); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, outcome.Result)
			}
			printCaptionSummary(cmd, cfg, audioPath, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result document as JSON")
	cmd.Flags().StringVar(&srtTarget, "srt", "", "Also export the blocks as an SRT file at this path")
	cmd.Flags().StringVar(&jsonTarget, "output", "", "Also write the result document as JSON to this path")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "Skip recording the run in the workspace ledger")
	return cmd
}

// publishExports stages requested artifacts in a scratch directory and copies
// them to their destinations only once every one of them rendered, so a
// half-written export never lands next to a good one. The scratch directory
// is removed on every path out.
func publishExports(cfg *config.Config, outcome *pipeline.Outcome, srtTarget, jsonTarget string) error {
	if srtTarget == "" && jsonTarget == "" {
		return nil
	}
	scratch, err := os.MkdirTemp(cfg.Paths.WorkspaceDir, "caption-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	staged := make(map[string]string)
	if srtTarget != "" {
		target, err := config.ExpandPath(srtTarget)
		if err != nil {
			return err
		}
		path := filepath.Join(scratch, "captions.srt")
		if err := captions.WriteSRT(path, outcome.Result.CaptionBlocks); err != nil {
			return err
		}
		staged[path] = target
	}
	if jsonTarget != "" {
		target, err := config.ExpandPath(jsonTarget)
		if err != nil {
			return err
		}
		payload, err := json.MarshalIndent(outcome.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		path := filepath.Join(scratch, "result.json")
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("stage result: %w", err)
		}
		staged[path] = target
	}
	for src, dst := range staged {
		if dir := filepath.Dir(dst); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create export directory %q: %w", dir, err)
			}
		}
		if err := fileutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
		}
	}
	return nil
}

func printCaptionSummary(cmd *cobra.Command, cfg *config.Config, audioPath string, outcome *pipeline.Outcome) {
	out := cmd.OutOrStdout()
	usage := outcome.Usage

	rows := [][]string{
		{"Run ID", shortID(outcome.RunID)},
		{"Source", truncate(audioPath, 60)},
		{"Duration", formatSeconds(outcome.Result.TotalDuration)},
		{"Blocks", fmt.Sprintf("%d", len(outcome.Result.CaptionBlocks))},
		{"Words", fmt.Sprintf("%d", outcome.Result.WordCount())},
		{"Waveform strategy", outcome.WaveformStrategy},
		{"Recognizer calls", fmt.Sprintf("%d chunk + %d segment", usage.ChunkCalls, usage.SegmentCalls)},
		{"Failed / retried", fmt.Sprintf("%d / %d", usage.FailedCalls, usage.RetriedCalls)},
		{"Audio sent", formatSeconds(usage.AudioSecondsSent)},
		{"Elapsed", outcome.Elapsed.Round(time.Millisecond).String()},
	}
	if lang := cfg.GetRecognizer().Language; lang != "" {
		rows = append(rows, []string{"Language", language.DisplayName(lang)})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
}
