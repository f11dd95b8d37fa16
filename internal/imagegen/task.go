package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"remodel/internal/domain"
)

// Runner produces a terminal outcome for one style.
type Runner interface {
	Run(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome
}

// Task is the per-style generation unit. It never returns an error: every
// failure becomes a Failed outcome. Each Run is independent of earlier ones.
type Task struct {
	controller *FallbackController
	logger     zerolog.Logger
}

func NewTask(controller *FallbackController, logger zerolog.Logger) *Task {
	return &Task{controller: controller, logger: logger}
}

// NewPipeline wires Retrier -> FallbackController -> Task over gen.
func NewPipeline(gen Generator, opts RetrierOptions, logger zerolog.Logger) *Task {
	if opts.Logger == nil {
		opts.Logger = &logger
	}
	retrier := NewRetrier(gen, opts)
	return NewTask(NewFallbackController(retrier, logger), logger)
}

// Run is generateForStyle.
func (t *Task) Run(ctx context.Context, images ImageSet, style domain.Style) (outcome domain.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Str("style", style.String()).Msg("imagegen: task panicked")
			outcome = domain.Failed(domain.Reason(fmt.Errorf("unexpected error: %v", r)))
		}
	}()

	if err := validate(images, style); err != nil {
		return domain.Failed(domain.Reason(err))
	}

	img, err := t.controller.Generate(ctx, images, style)
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("style", style.String()).
			Dur("elapsed", time.Since(start)).
			Msg("imagegen: style generation failed")
		return domain.Failed(domain.Reason(err))
	}

	t.logger.Info().
		Str("style", style.String()).
		Str("media_type", img.MediaType).
		Int("bytes", len(img.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("imagegen: style generated")
	return domain.Done(img)
}

func validate(images ImageSet, style domain.Style) error {
	if images.Empty() {
		return domain.Classify(domain.ErrInvalidInput, "at least one image is required", nil)
	}
	if !style.Valid() {
		return domain.Classify(domain.ErrInvalidInput, fmt.Sprintf("unknown style %q", style), nil)
	}
	return nil
}
