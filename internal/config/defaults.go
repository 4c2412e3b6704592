package config

const (
	defaultWorkspaceDir = "~/.local/share/capstan"
	defaultOutputDir    = "~/captions"
	defaultLogDir       = "~/.local/share/capstan/logs"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"

	defaultRecognizerBaseURL  = "https://api.openai.com/v1"
	defaultRecognizerModel    = "whisper-1"
	defaultRecognizerTimeout  = 120
	defaultMaxConcurrentCalls = 4
	defaultRetryMaxAttempts   = 2

	defaultTargetStepMs       = 1
	defaultFallbackStepMs     = 100
	defaultSpeechRMSThreshold = 0.01
	defaultMinSpeechSeconds   = 0.05

	defaultSilenceThresholdDB = -20.0
	defaultMinSilenceSeconds  = 0.2
	defaultMaxSpanSeconds     = 8.0
	defaultTileSeconds        = 4.0

	defaultWindowSeconds     = 30.0
	defaultConfidence        = 0.95
	defaultMinWords          = 5
	defaultMaxWords          = 10
	defaultOnsetRMSThreshold = 0.01
	defaultPeakThreshold     = 0.30
	defaultOnsetWindow       = 0.2
	defaultSyllableSeconds   = 0.15
	defaultMinWordSeconds    = 0.05
	defaultMaxWordSeconds    = 2.0
	defaultFastCharsPerSec   = 8.0
	defaultSlowCharsPerSec   = 4.0
	defaultLoudAmplitude     = 0.8
	defaultQuietAmplitude    = 0.3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
		},
		Recognizer: Recognizer{
			BaseURL:            defaultRecognizerBaseURL,
			Model:              defaultRecognizerModel,
			TimeoutSeconds:     defaultRecognizerTimeout,
			MaxConcurrentCalls: defaultMaxConcurrentCalls,
			RetryMaxAttempts:   defaultRetryMaxAttempts,
		},
		Waveform: Waveform{
			TargetStepMs:       defaultTargetStepMs,
			FallbackStepMs:     defaultFallbackStepMs,
			SpeechRMSThreshold: defaultSpeechRMSThreshold,
			MinSpeechSeconds:   defaultMinSpeechSeconds,
		},
		Segmentation: Segmentation{
			SilenceThresholdDB: defaultSilenceThresholdDB,
			MinSilenceSeconds:  defaultMinSilenceSeconds,
			MaxSpanSeconds:     defaultMaxSpanSeconds,
			TileSeconds:        defaultTileSeconds,
		},
		Transcription: Transcription{
			WindowSeconds:     defaultWindowSeconds,
			DefaultConfidence: defaultConfidence,
		},
		Captions: Captions{
			MinWords: defaultMinWords,
			MaxWords: defaultMaxWords,
		},
		Alignment: Alignment{
			OnsetRMSThreshold:  defaultOnsetRMSThreshold,
			PeakThreshold:      defaultPeakThreshold,
			OnsetWindowSeconds: defaultOnsetWindow,
			SyllableSeconds:    defaultSyllableSeconds,
			MinWordSeconds:     defaultMinWordSeconds,
			MaxWordSeconds:     defaultMaxWordSeconds,
			FastCharsPerSec:    defaultFastCharsPerSec,
			SlowCharsPerSec:    defaultSlowCharsPerSec,
			LoudAmplitude:      defaultLoudAmplitude,
			QuietAmplitude:     defaultQuietAmplitude,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
