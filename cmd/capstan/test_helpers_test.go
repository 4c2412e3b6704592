package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"capstan/internal/media/wav"
)

const testSampleRate = 16000

// cliTestEnv isolates a CLI invocation: private HOME, no ambient API keys,
// and a config file pointing every path at the temp dir.
type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, extraConfig string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("CAPSTAN_RECOGNIZER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("CAPSTAN_RECOGNIZER_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
workspace_dir = %q
output_dir = %q
log_dir = %q

[tools]
ffmpeg = "ffmpeg-absent-for-test"
ffprobe = "ffprobe-absent-for-test"
`,
		filepath.Join(base, "workspace"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
	)
	if extraConfig != "" {
		content += "\n" + extraConfig + "\n"
	}
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()

	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}

// writeTestClip synthesizes a mono WAV with a tone burst in
// [speechStart, speechEnd) and silence elsewhere.
func writeTestClip(t *testing.T, path string, totalSec, speechStart, speechEnd float64) {
	t.Helper()
	samples := make([]int16, int(totalSec*testSampleRate))
	for i := range samples {
		at := float64(i) / testSampleRate
		if at >= speechStart && at < speechEnd {
			samples[i] = int16(16000 * math.Sin(2*math.Pi*220*at))
		}
	}
	if err := wav.WriteFile(path, samples, testSampleRate); err != nil {
		t.Fatalf("write clip: %v", err)
	}
}
