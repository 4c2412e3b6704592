package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecognizer()
	c.normalizeWaveform()
	c.normalizeSegmentation()
	c.normalizeTranscription()
	c.normalizeCaptions()
	c.normalizeAlignment()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecognizer() {
	c.Recognizer.APIKey = strings.TrimSpace(c.Recognizer.APIKey)
	if c.Recognizer.APIKey == "" {
		if value, ok := os.LookupEnv("CAPSTAN_RECOGNIZER_API_KEY"); ok {
			c.Recognizer.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Recognizer.APIKey = strings.TrimSpace(value)
		}
	}
	c.Recognizer.BaseURL = strings.TrimSpace(strings.TrimRight(c.Recognizer.BaseURL, "/"))
	if c.Recognizer.BaseURL == "" {
		c.Recognizer.BaseURL = defaultRecognizerBaseURL
	}
	c.Recognizer.Model = strings.TrimSpace(c.Recognizer.Model)
	if c.Recognizer.Model == "" {
		c.Recognizer.Model = defaultRecognizerModel
	}
	c.Recognizer.Language = strings.TrimSpace(c.Recognizer.Language)
	if c.Recognizer.TimeoutSeconds <= 0 {
		c.Recognizer.TimeoutSeconds = defaultRecognizerTimeout
	}
	if c.Recognizer.MaxConcurrentCalls <= 0 {
		c.Recognizer.MaxConcurrentCalls = defaultMaxConcurrentCalls
	}
	// One bounded retry at most: two attempts total.
	if c.Recognizer.RetryMaxAttempts <= 0 {
		c.Recognizer.RetryMaxAttempts = defaultRetryMaxAttempts
	}
	if c.Recognizer.RetryMaxAttempts > 2 {
		c.Recognizer.RetryMaxAttempts = 2
	}
}

func (c *Config) normalizeWaveform() {
	if c.Waveform.TargetStepMs <= 0 {
		c.Waveform.TargetStepMs = defaultTargetStepMs
	}
	if c.Waveform.FallbackStepMs <= 0 {
		c.Waveform.FallbackStepMs = defaultFallbackStepMs
	}
	if c.Waveform.SpeechRMSThreshold <= 0 {
		c.Waveform.SpeechRMSThreshold = defaultSpeechRMSThreshold
	}
	if c.Waveform.MinSpeechSeconds <= 0 {
		c.Waveform.MinSpeechSeconds = defaultMinSpeechSeconds
	}
}

func (c *Config) normalizeSegmentation() {
	if c.Segmentation.SilenceThresholdDB >= 0 {
		c.Segmentation.SilenceThresholdDB = defaultSilenceThresholdDB
	}
	if c.Segmentation.MinSilenceSeconds <= 0 {
		c.Segmentation.MinSilenceSeconds = defaultMinSilenceSeconds
	}
	if c.Segmentation.TileSeconds <= 0 {
		c.Segmentation.TileSeconds = defaultTileSeconds
	}
	if c.Segmentation.MaxSpanSeconds < c.Segmentation.TileSeconds {
		c.Segmentation.MaxSpanSeconds = defaultMaxSpanSeconds
	}
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.WindowSeconds <= 0 {
		c.Transcription.WindowSeconds = defaultWindowSeconds
	}
	if c.Transcription.DefaultConfidence <= 0 || c.Transcription.DefaultConfidence > 1 {
		c.Transcription.DefaultConfidence = defaultConfidence
	}
}

func (c *Config) normalizeCaptions() {
	if c.Captions.MinWords <= 0 {
		c.Captions.MinWords = defaultMinWords
	}
	if c.Captions.MaxWords <= 0 {
		c.Captions.MaxWords = defaultMaxWords
	}
}

func (c *Config) normalizeAlignment() {
	a := &c.Alignment
	if a.OnsetRMSThreshold <= 0 {
		a.OnsetRMSThreshold = defaultOnsetRMSThreshold
	}
	if a.PeakThreshold <= 0 {
		a.PeakThreshold = defaultPeakThreshold
	}
	if a.OnsetWindowSeconds <= 0 {
		a.OnsetWindowSeconds = defaultOnsetWindow
	}
	if a.SyllableSeconds <= 0 {
		a.SyllableSeconds = defaultSyllableSeconds
	}
	if a.MinWordSeconds <= 0 {
		a.MinWordSeconds = defaultMinWordSeconds
	}
	if a.MaxWordSeconds <= 0 {
		a.MaxWordSeconds = defaultMaxWordSeconds
	}
	if a.FastCharsPerSec <= 0 {
		a.FastCharsPerSec = defaultFastCharsPerSec
	}
	if a.SlowCharsPerSec <= 0 {
		a.SlowCharsPerSec = defaultSlowCharsPerSec
	}
	if a.LoudAmplitude <= 0 {
		a.LoudAmplitude = defaultLoudAmplitude
	}
	if a.QuietAmplitude <= 0 {
		a.QuietAmplitude = defaultQuietAmplitude
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
