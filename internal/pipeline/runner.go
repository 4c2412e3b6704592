package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"capstan/internal/captions"
	"capstan/internal/config"
	"capstan/internal/deps"
	"capstan/internal/fileutil"
	"capstan/internal/language"
	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/recognizer"
	"capstan/internal/runstore"
	"capstan/internal/services"
	"capstan/internal/silence"
	"capstan/internal/transcribe"
	"capstan/internal/waveform"
)

// Runner executes caption runs. It is safe to reuse across runs, but callers
// sharing a usage collector with the recognizer client typically build one
// Runner per run so the ledger covers exactly one invocation.
type Runner struct {
	cfg       *config.Config
	rec       recognizer.Recognizer
	usage     *transcribe.UsageCollector
	store     *runstore.Store
	logger    *slog.Logger
	segmenter *silence.Segmenter
	selector  *waveform.Selector
}

// New wires a Runner from configuration. usage may be nil, in which case a
// private collector is created; pass the collector the recognizer client's
// retry observer feeds so retries are counted too. store may be nil to skip
// the run ledger.
func New(cfg *config.Config, rec recognizer.Recognizer, usage *transcribe.UsageCollector, store *runstore.Store, logger *slog.Logger) *Runner {
	if usage == nil {
		usage = transcribe.NewUsageCollector()
	}
	return &Runner{
		cfg:       cfg,
		rec:       rec,
		usage:     usage,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		segmenter: NewSegmenter(cfg, logger),
		selector:  NewSelector(cfg, logger),
	}
}

// NewSelector builds the dual-strategy waveform selector: ffmpeg astats at
// millisecond resolution when the binary resolves, the pure-Go PCM scan
// otherwise and as fallback.
func NewSelector(cfg *config.Config, logger *slog.Logger) *waveform.Selector {
	fallback := waveform.NewPCMExtractor(cfg.Waveform.FallbackStepMs)
	var primary waveform.Extractor = fallback
	if deps.Available(cfg.FFmpegBinary()) {
		primary = waveform.NewAstatsExtractor(cfg.FFmpegBinary(), cfg.Waveform.TargetStepMs)
	}
	return waveform.NewSelector(primary, fallback, logger)
}

// NewSegmenter builds the silence-based segmenter with the same ffmpeg-first,
// pure-Go-fallback strategy order as the waveform selector.
func NewSegmenter(cfg *config.Config, logger *slog.Logger) *silence.Segmenter {
	var primary silence.Detector
	if deps.Available(cfg.FFmpegBinary()) {
		primary = silence.NewFFmpegDetector(cfg.FFmpegBinary(), cfg.Segmentation.SilenceThresholdDB, cfg.Segmentation.MinSilenceSeconds)
	}
	fallback := silence.NewPCMDetector(cfg.Segmentation.SilenceThresholdDB, cfg.Segmentation.MinSilenceSeconds)
	opts := silence.Options{
		MaxSpan:  cfg.Segmentation.MaxSpanSeconds,
		TileSize: cfg.Segmentation.TileSeconds,
	}
	return silence.NewSegmenter(primary, fallback, opts, logger)
}

// Run executes one caption run over the audio at audioPath. The outcome is
// all-or-nothing: cancellation or a fatal stage returns an error and no
// partial result is published.
func (r *Runner) Run(ctx context.Context, audioPath string) (*Outcome, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	started := time.Now()

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run starting", logging.String("source", audioPath))

	audio, err := wav.Open(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrAudioUnavailable, "pipeline", "open audio", audioPath, err)
	}
	duration := audio.Duration()

	transcribeOpts := transcribe.Options{
		WindowSeconds:     r.cfg.Transcription.WindowSeconds,
		Workers:           r.cfg.Recognizer.MaxConcurrentCalls,
		Language:          language.ToISO2(r.cfg.Recognizer.Language),
		DefaultConfidence: r.cfg.Transcription.DefaultConfidence,
	}

	// Silence segmentation and the full-transcript pass read the same audio
	// independently, so they run side by side.
	var (
		spans          []silence.Span
		fullTranscript string
		spanErr        error
		fullErr        error
		wg             sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stageCtx := services.WithStage(ctx, "segment")
		spans, spanErr = r.segmenter.Segment(stageCtx, audio)
	}()
	go func() {
		defer wg.Done()
		stageCtx := services.WithStage(ctx, "transcript")
		builder := transcribe.NewBuilder(r.rec, transcribeOpts, r.usage, r.logger)
		fullTranscript, fullErr = builder.FullTranscript(stageCtx, audio)
	}()
	wg.Wait()
	if err := firstError(ctx.Err(), spanErr, fullErr); err != nil {
		return nil, err
	}
	logger.Info("coarse pass done",
		logging.Int("spans", len(spans)),
		logging.Int("transcript_chars", len(fullTranscript)),
	)

	transcriber := transcribe.NewTranscriber(r.rec, transcribeOpts, r.usage, r.logger)
	segments, err := transcriber.TranscribeSpans(services.WithStage(ctx, "transcribe"), audio, spans, fullTranscript)
	if err != nil {
		return nil, err
	}

	blocks := captions.Group(segments, captions.GroupOptions{
		MinWords: r.cfg.Captions.MinWords,
		MaxWords: r.cfg.Captions.MaxWords,
	})
	logger.Info("blocks packed", logging.Int("blocks", len(blocks)))

	points, strategy, err := r.selector.Extract(services.WithStage(ctx, "waveform"), audio)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Both strategies down. Alignment still runs, on proportional timing.
		logging.WarnWithContext(logger, "waveform unavailable", "waveform_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "word timing degrades to proportional estimates"),
		)
		points = nil
		strategy = "none"
	}
	speech := waveform.DetectSpeech(points, waveform.SpeechOptions{
		SilenceThreshold:  r.cfg.Waveform.SpeechRMSThreshold,
		MinSpeechDuration: r.cfg.Waveform.MinSpeechSeconds,
	})

	blocks = captions.AlignBlocks(blocks, points, speech, captions.AlignOptions{
		OnsetRMSThreshold: r.cfg.Alignment.OnsetRMSThreshold,
		PeakThreshold:     r.cfg.Alignment.PeakThreshold,
		OnsetWindow:       r.cfg.Alignment.OnsetWindowSeconds,
		SyllableSeconds:   r.cfg.Alignment.SyllableSeconds,
		MinWordSeconds:    r.cfg.Alignment.MinWordSeconds,
		MaxWordSeconds:    r.cfg.Alignment.MaxWordSeconds,
		FastCharsPerSec:   r.cfg.Alignment.FastCharsPerSec,
		SlowCharsPerSec:   r.cfg.Alignment.SlowCharsPerSec,
		LoudAmplitude:     r.cfg.Alignment.LoudAmplitude,
		QuietAmplitude:    r.cfg.Alignment.QuietAmplitude,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Result: Result{
			FullTranscript: fullTranscript,
			TotalDuration:  duration,
			CaptionBlocks:  blocks,
		},
		Usage:            r.usage.Snapshot(),
		RunID:            runID,
		WaveformStrategy: strategy,
		Elapsed:          time.Since(started),
	}
	r.saveLedger(ctx, logger, audioPath, outcome)

	logger.Info("run complete",
		logging.Int("blocks", len(blocks)),
		logging.Int("words", outcome.Result.WordCount()),
		logging.String("waveform_strategy", strategy),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

// saveLedger records the completed run. Ledger trouble never fails a run that
// already produced captions.
func (r *Runner) saveLedger(ctx context.Context, logger *slog.Logger, audioPath string, outcome *Outcome) {
	if r.store == nil {
		return
	}
	hash, err := fileutil.HashFile(audioPath)
	if err != nil {
		logging.WarnWithContext(logger, "hash source for ledger failed", "ledger_hash_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ledger row omits the source hash"),
		)
	}
	resultJSON, err := json.Marshal(outcome.Result)
	if err != nil {
		logging.WarnWithContext(logger, "encode result for ledger failed", "ledger_encode_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ledger row omits the result payload"),
		)
	}
	rec := &runstore.Record{
		RunID:            outcome.RunID,
		SourcePath:       audioPath,
		SourceSHA256:     hash,
		DurationSeconds:  outcome.Result.TotalDuration,
		BlockCount:       len(outcome.Result.CaptionBlocks),
		WordCount:        outcome.Result.WordCount(),
		Model:            r.cfg.GetRecognizer().Model,
		ChunkCalls:       outcome.Usage.ChunkCalls,
		SegmentCalls:     outcome.Usage.SegmentCalls,
		FailedCalls:      outcome.Usage.FailedCalls,
		RetriedCalls:     outcome.Usage.RetriedCalls,
		AudioSecondsSent: outcome.Usage.AudioSecondsSent,
		WaveformStrategy: outcome.WaveformStrategy,
		ElapsedSeconds:   outcome.Elapsed.Seconds(),
		ResultJSON:       string(resultJSON),
	}
	if err := r.store.SaveRun(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "save ledger row failed", "ledger_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is absent from `capstan runs list`"),
		)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
