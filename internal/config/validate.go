package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	if err := c.validateWaveform(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	if strings.TrimSpace(c.Recognizer.BaseURL) == "" {
		return errors.New("recognizer.base_url must be set")
	}
	if strings.TrimSpace(c.Recognizer.Model) == "" {
		return errors.New("recognizer.model must be set")
	}
	if c.Recognizer.TimeoutSeconds <= 0 {
		return errors.New("recognizer.timeout_seconds must be positive")
	}
	if c.Recognizer.MaxConcurrentCalls < 1 {
		return errors.New("recognizer.max_concurrent_calls must be >= 1")
	}
	if c.Recognizer.RetryMaxAttempts < 1 || c.Recognizer.RetryMaxAttempts > 2 {
		return errors.New("recognizer.retry_max_attempts must be 1 or 2 (at most one retry)")
	}
	return nil
}

func (c *Config) validateWaveform() error {
	if c.Waveform.TargetStepMs < 1 {
		return errors.New("waveform.target_step_ms must be >= 1")
	}
	if c.Waveform.FallbackStepMs < c.Waveform.TargetStepMs {
		return errors.New("waveform.fallback_step_ms must be >= waveform.target_step_ms")
	}
	if c.Waveform.SpeechRMSThreshold <= 0 || c.Waveform.SpeechRMSThreshold >= 1 {
		return errors.New("waveform.speech_rms_threshold must be between 0 and 1")
	}
	if c.Waveform.MinSpeechSeconds <= 0 {
		return errors.New("waveform.min_speech_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	if c.Segmentation.SilenceThresholdDB >= 0 {
		return errors.New("segmentation.silence_threshold_db must be negative (dBFS)")
	}
	if c.Segmentation.MinSilenceSeconds <= 0 {
		return errors.New("segmentation.min_silence_seconds must be positive")
	}
	if c.Segmentation.TileSeconds <= 0 {
		return errors.New("segmentation.tile_seconds must be positive")
	}
	if c.Segmentation.MaxSpanSeconds < c.Segmentation.TileSeconds {
		return errors.New("segmentation.max_span_seconds must be >= segmentation.tile_seconds")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.WindowSeconds <= 0 {
		return errors.New("transcription.window_seconds must be positive")
	}
	if c.Transcription.DefaultConfidence <= 0 || c.Transcription.DefaultConfidence > 1 {
		return errors.New("transcription.default_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.MinWords < 1 {
		return errors.New("captions.min_words must be >= 1")
	}
	if c.Captions.MaxWords <= c.Captions.MinWords {
		return errors.New("captions.max_words must be greater than captions.min_words")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	if err := ensureUnitRange(map[string]float64{
		"alignment.onset_rms_threshold": a.OnsetRMSThreshold,
		"alignment.peak_threshold":      a.PeakThreshold,
		"alignment.loud_amplitude":      a.LoudAmplitude,
		"alignment.quiet_amplitude":     a.QuietAmplitude,
	}); err != nil {
		return err
	}
	if a.OnsetWindowSeconds <= 0 {
		return errors.New("alignment.onset_window_seconds must be positive")
	}
	if a.SyllableSeconds <= 0 {
		return errors.New("alignment.syllable_seconds must be positive")
	}
	if a.MinWordSeconds <= 0 {
		return errors.New("alignment.min_word_seconds must be positive")
	}
	if a.MaxWordSeconds <= a.MinWordSeconds {
		return errors.New("alignment.max_word_seconds must be greater than alignment.min_word_seconds")
	}
	if a.FastCharsPerSec <= a.SlowCharsPerSec {
		return errors.New("alignment.fast_chars_per_sec must be greater than alignment.slow_chars_per_sec")
	}
	if a.LoudAmplitude <= a.QuietAmplitude {
		return errors.New("alignment.loud_amplitude must be greater than alignment.quiet_amplitude")
	}
	return nil
}

func ensureUnitRange(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}
