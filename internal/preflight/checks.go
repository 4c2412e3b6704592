package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"capstan/internal/config"
	"capstan/internal/recognizer"
	"capstan/internal/runstore"
)

// CheckRecognizer verifies that the transcription API is reachable and the
// key is accepted. Single attempt, 30-second timeout; preflight should answer
// quickly, not retry.
func CheckRecognizer(ctx context.Context, cfg *config.Config) Result {
	const name = "Recognizer API"

	rc := cfg.GetRecognizer()
	if rc.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set recognizer.api_key or CAPSTAN_RECOGNIZER_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := recognizer.NewClient(recognizer.Config{
		APIKey:         rc.APIKey,
		BaseURL:        rc.BaseURL,
		Model:          rc.Model,
		TimeoutSeconds: rc.TimeoutSeconds,
	}, recognizer.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckLedger verifies the run ledger opens, which also proves the workspace
// lock is free.
func CheckLedger(cfg *config.Config) Result {
	const name = "Run ledger"

	store, err := runstore.Open(cfg)
	if err != nil {
		if errors.Is(err, runstore.ErrWorkspaceLocked) {
			return Result{Name: name, Detail: "workspace locked by another capstan process"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	path := store.Path()
	if err := store.Close(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("close ledger: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable. Missing directories are created first, mirroring what a
// run would do.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	return err.Error()
}
