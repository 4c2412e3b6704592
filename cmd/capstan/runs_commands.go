package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"capstan/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the workspace run ledger",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))
	return runsCmd
}

func (c *commandContext) withStore(fn func(*runstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No runs recorded yet.")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						shortID(rec.RunID),
						rec.CreatedAt.Local().Format(time.DateTime),
						truncate(filepath.Base(rec.SourcePath), 32),
						formatSeconds(rec.DurationSeconds),
						fmt.Sprintf("%d", rec.BlockCount),
						fmt.Sprintf("%d", rec.WordCount),
						fmt.Sprintf("%d", rec.ChunkCalls+rec.SegmentCalls),
						fmt.Sprintf("%d", rec.FailedCalls),
					})
				}
				headers := []string{"Run", "Created", "Source", "Duration", "Blocks", "Words", "Calls", "Failed"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var showResult bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run (unique run-id prefixes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				rec, err := store.GetByRunID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if showResult {
					if rec.ResultJSON == "" {
						return fmt.Errorf("run %s has no stored result", shortID(rec.RunID))
					}
					var result any
					if err := json.Unmarshal([]byte(rec.ResultJSON), &result); err != nil {
						return fmt.Errorf("decode stored result: %w", err)
					}
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Run ID", rec.RunID},
					{"Created", rec.CreatedAt.Local().Format(time.DateTime)},
					{"Source", rec.SourcePath},
					{"Source SHA-256", truncate(rec.SourceSHA256, 20)},
					{"Duration", formatSeconds(rec.DurationSeconds)},
					{"Blocks / words", fmt.Sprintf("%d / %d", rec.BlockCount, rec.WordCount)},
					{"Model", rec.Model},
					{"Recognizer calls", fmt.Sprintf("%d chunk + %d segment", rec.ChunkCalls, rec.SegmentCalls)},
					{"Failed / retried", fmt.Sprintf("%d / %d", rec.FailedCalls, rec.RetriedCalls)},
					{"Audio sent", formatSeconds(rec.AudioSecondsSent)},
					{"Waveform strategy", rec.WaveformStrategy},
					{"Elapsed", formatSeconds(rec.ElapsedSeconds)},
				}
				fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showResult, "result", false, "Print the stored result document as JSON")
	return cmd
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				count, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d run(s)\n", count)
				return nil
			})
		},
	}
}
