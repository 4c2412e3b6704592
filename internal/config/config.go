package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	OutputDir    string `toml:"output_dir"`
	LogDir       string `toml:"log_dir"`
}

// Recognizer contains connection settings for the speech-to-text endpoint.
type Recognizer struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	Language           string `toml:"language"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	MaxConcurrentCalls int    `toml:"max_concurrent_calls"`
	RetryMaxAttempts   int    `toml:"retry_max_attempts"`
}

// Waveform contains amplitude extraction and speech detection settings.
type Waveform struct {
	// TargetStepMs is the point spacing for the primary extraction strategy.
	TargetStepMs int `toml:"target_step_ms"`
	// FallbackStepMs is the coarser spacing used by the PCM fallback.
	FallbackStepMs int `toml:"fallback_step_ms"`
	// SpeechRMSThreshold is the RMS floor above which a point counts as speech.
	SpeechRMSThreshold float64 `toml:"speech_rms_threshold"`
	// MinSpeechSeconds is the shortest run of speech points kept as a segment.
	MinSpeechSeconds float64 `toml:"min_speech_seconds"`
}

// Segmentation contains silence-based coarse segmentation settings.
type Segmentation struct {
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	MinSilenceSeconds  float64 `toml:"min_silence_seconds"`
	// MaxSpanSeconds is the longest span passed to the recognizer whole.
	MaxSpanSeconds float64 `toml:"max_span_seconds"`
	// TileSeconds sizes the pieces long spans are subdivided into, and the
	// uniform tiles used when no silence is found.
	TileSeconds float64 `toml:"tile_seconds"`
}

// Transcription contains full-transcript and per-segment call settings.
type Transcription struct {
	WindowSeconds     float64 `toml:"window_seconds"`
	DefaultConfidence float64 `toml:"default_confidence"`
}

// Captions contains caption block packing settings.
type Captions struct {
	MinWords int `toml:"min_words"`
	MaxWords int `toml:"max_words"`
}

// Alignment contains word timing and styling thresholds.
type Alignment struct {
	OnsetRMSThreshold  float64 `toml:"onset_rms_threshold"`
	PeakThreshold      float64 `toml:"peak_threshold"`
	OnsetWindowSeconds float64 `toml:"onset_window_seconds"`
	SyllableSeconds    float64 `toml:"syllable_seconds"`
	MinWordSeconds     float64 `toml:"min_word_seconds"`
	MaxWordSeconds     float64 `toml:"max_word_seconds"`
	FastCharsPerSec    float64 `toml:"fast_chars_per_sec"`
	SlowCharsPerSec    float64 `toml:"slow_chars_per_sec"`
	LoudAmplitude      float64 `toml:"loud_amplitude"`
	QuietAmplitude     float64 `toml:"quiet_amplitude"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Tools overrides the external binaries resolved on PATH.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for Capstan.
//
// Configuration sections by subsystem:
//   - Paths: workspace (scratch + run ledger), output, and log directories
//   - Recognizer: speech-to-text endpoint connection and concurrency
//   - Waveform: extraction step sizes and speech detection thresholds
//   - Segmentation: silence detection and span tiling
//   - Transcription: full-transcript window size and confidence default
//   - Captions: block word-count window
//   - Alignment: onset search, word duration, and speed classification
//   - Logging: log format and level
//
// The numeric thresholds are empirical for conversational speech; they are
// exposed here so deployments can tune them without rebuilding.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Recognizer    Recognizer    `toml:"recognizer"`
	Waveform      Waveform      `toml:"waveform"`
	Segmentation  Segmentation  `toml:"segmentation"`
	Transcription Transcription `toml:"transcription"`
	Captions      Captions      `toml:"captions"`
	Alignment     Alignment     `toml:"alignment"`
	Logging       Logging       `toml:"logging"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/capstan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/capstan/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("capstan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for waveform and
// silence analysis.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFmpeg); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFprobe); binary != "" {
		return binary
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// RecognizerConfig contains trimmed recognizer connection settings.
type RecognizerConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	Language           string
	TimeoutSeconds     int
	MaxConcurrentCalls int
	RetryMaxAttempts   int
}

// GetRecognizer returns the recognizer connection settings.
func (c *Config) GetRecognizer() RecognizerConfig {
	return RecognizerConfig{
		APIKey:             strings.TrimSpace(c.Recognizer.APIKey),
		BaseURL:            strings.TrimSpace(c.Recognizer.BaseURL),
		Model:              strings.TrimSpace(c.Recognizer.Model),
		Language:           strings.TrimSpace(c.Recognizer.Language),
		TimeoutSeconds:     c.Recognizer.TimeoutSeconds,
		MaxConcurrentCalls: c.Recognizer.MaxConcurrentCalls,
		RetryMaxAttempts:   c.Recognizer.RetryMaxAttempts,
	}
}
