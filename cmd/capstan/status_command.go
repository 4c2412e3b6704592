package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capstan/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, binaries, the recognizer, and the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			failures := 0
			for _, result := range results {
				if !result.Passed {
					failures++
				}
				rows = append(rows, []string{result.Name, passFail(result.Passed), result.Detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, rows, nil))

			depRows := make([][]string, 0, 2)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				state := "available"
				detail := status.Description
				if !status.Available {
					state = "missing"
					detail = status.Detail + " (pure-Go fallback in use)"
				}
				depRows = append(depRows, []string{status.Name, state, detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Binary", "Status", "Detail"}, depRows, nil))

			if failures > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failures)
			}
			return nil
		},
	}
}
