package imagegen

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"remodel/internal/domain"
)

// Caller is what the fallback controller needs from the retry layer.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// FallbackController runs a style's primary instruction and, only when the
// model answers without an image, one narrower fallback instruction.
type FallbackController struct {
	caller Caller
	logger zerolog.Logger
}

func NewFallbackController(caller Caller, logger zerolog.Logger) *FallbackController {
	return &FallbackController{caller: caller, logger: logger}
}

// Generate returns the generated image for style. Failures other than
// NoImageProduced (exhausted retries, non-transient errors) are returned as
// is. When the fallback fails too the result is a *domain.FallbackError.
func (c *FallbackController) Generate(ctx context.Context, images ImageSet, style domain.Style) (domain.Image, error) {
	img, err := c.attempt(ctx, images, PrimaryInstruction(style))
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, domain.ErrNoImageProduced) || !style.Valid() {
		return domain.Image{}, err
	}

	c.logger.Info().
		Str("style", style.String()).
		Str("detail", domain.DetailOf(err)).
		Msg("imagegen: no image for primary instruction, trying fallback")

	img, fallbackErr := c.attempt(ctx, images, FallbackInstruction(style))
	if fallbackErr != nil {
		return domain.Image{}, &domain.FallbackError{Primary: err, Fallback: fallbackErr}
	}
	return img, nil
}

func (c *FallbackController) attempt(ctx context.Context, images ImageSet, instruction string) (domain.Image, error) {
	resp, err := c.caller.Call(ctx, BuildRequest(images, instruction))
	if err != nil {
		return domain.Image{}, err
	}
	return ExtractImage(resp)
}
