package preflight

import (
	"context"

	"capstan/internal/config"
	"capstan/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config: directory
// access, recognizer reachability, and the run ledger. Binary availability is
// reported separately through CheckSystemDeps because missing binaries only
// degrade precision, they never block a run.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckRecognizer(ctx, cfg))
	results = append(results, CheckLedger(cfg))
	return results
}

// CheckSystemDeps evaluates the external binaries the pipeline can take
// advantage of. All of them are optional; the pure-Go strategies cover their
// absence.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Defaults(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
