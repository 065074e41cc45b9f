package texture

import (
	"context"
	"fmt"

	"texture-extractor/internal/debug/timing"
	"texture-extractor/internal/models"
)

// TimingTracker records stage durations.
type TimingTracker interface {
	StartTiming(operation string) context.Context
	EndTiming(ctx context.Context)
}

// Extractor runs the co-occurrence builder and the descriptor calculator
// on one image. It holds no per-image state and is safe for concurrent use.
type Extractor struct {
	cfg     Config
	builder *CoOccurrenceBuilder
	timing  TimingTracker
}

func NewExtractor(cfg Config) (*Extractor, error) {
	builder, err := NewCoOccurrenceBuilder(cfg)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:     cfg,
		builder: builder,
		timing:  timing.Nop{},
	}, nil
}

func (e *Extractor) SetTimingTracker(tracker TimingTracker) {
	if tracker == nil {
		tracker = timing.Nop{}
	}
	e.timing = tracker
}

func (e *Extractor) Config() Config {
	return e.cfg
}

func (e *Extractor) Extract(img *models.GrayImage) (models.Features, error) {
	var features models.Features

	ctx := e.timing.StartTiming("glcm_build")
	matrices, err := e.builder.Build(img)
	e.timing.EndTiming(ctx)
	if err != nil {
		return features, fmt.Errorf("building co-occurrence matrices: %w", err)
	}

	ctx = e.timing.StartTiming("first_order")
	features.FirstOrder = FirstOrder(img.Float64s())
	e.timing.EndTiming(ctx)

	ctx = e.timing.StartTiming("second_order")
	second, err := SecondOrder(matrices, e.cfg.Entropy)
	e.timing.EndTiming(ctx)
	if err != nil {
		return features, fmt.Errorf("computing second-order features: %w", err)
	}
	features.SecondOrder = second

	return features, nil
}
