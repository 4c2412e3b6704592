package waveform

import (
	"context"
	"fmt"
	"log/slog"

	"capstan/internal/logging"
	"capstan/internal/media/wav"
	"capstan/internal/services"
)

// Selector probes extraction strategies in order. The primary strategy is
// preferred for its resolution; the fallback keeps runs alive on hosts where
// the primary's binary is missing or broken.
type Selector struct {
	primary  Extractor
	fallback Extractor
	logger   *slog.Logger
}

func NewSelector(primary, fallback Extractor, logger *slog.Logger) *Selector {
	return &Selector{
		primary:  primary,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "waveform"),
	}
}

// Extract runs the primary strategy and switches to the fallback when the
// primary errors or yields no points. The name of the strategy that produced
// the points is returned alongside them. Both strategies failing is the only
// way this errors, and that error degrades the run rather than ending it.
func (s *Selector) Extract(ctx context.Context, audio *wav.Audio) ([]Point, string, error) {
	points, primaryErr := s.primary.Extract(ctx, audio)
	if primaryErr == nil && len(points) > 0 {
		return points, s.primary.Name(), nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	if primaryErr == nil {
		primaryErr = fmt.Errorf("%s produced no points", s.primary.Name())
	}
	logging.WarnWithContext(s.logger, "waveform strategy failed, trying fallback", "waveform_fallback",
		logging.String("primary", s.primary.Name()),
		logging.String("fallback", s.fallback.Name()),
		logging.Error(primaryErr),
		logging.String(logging.FieldImpact, "envelope resolution drops to the fallback step size"),
	)
	points, fallbackErr := s.fallback.Extract(ctx, audio)
	if fallbackErr == nil && len(points) > 0 {
		return points, s.fallback.Name(), nil
	}
	if fallbackErr == nil {
		fallbackErr = fmt.Errorf("%s produced no points", s.fallback.Name())
	}
	err := services.Wrap(services.ErrWaveformUnavailable, "waveform", "extract",
		fmt.Sprintf("all strategies failed: %v; %v", primaryErr, fallbackErr), fallbackErr)
	return nil, "", err
}
