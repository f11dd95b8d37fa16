package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
	"remodel/internal/middleware"
	"remodel/internal/providers/proxy"
)

const generateSuccessMessage = "Image generated successfully"

// Generate is POST /api/generate: one upstream call on behalf of a client
// that must not hold the API credential. Retries are the caller's business.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req proxy.GenerateRequest
	if err := a.decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, proxy.CodeInvalidInput, domain.DetailOf(err))
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		a.error(w, http.StatusBadRequest, proxy.CodeInvalidInput, "prompt is required")
		return
	}
	images, err := imagegen.NewImageSet(req.Images)
	if err != nil {
		a.error(w, http.StatusBadRequest, proxy.CodeInvalidInput, err.Error())
		return
	}

	ctx := r.Context()
	if a.Config.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.UpstreamTimeout)
		defer cancel()
	}

	logger := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Int("images", images.Len()).Logger()

	resp, err := a.Upstream.GenerateContent(ctx, imagegen.BuildRequest(images, prompt))
	if err != nil {
		code, errCode := upstreamStatus(err)
		a.counters.fail.Add(1)
		logger.Warn().Err(err).Int("status", code).Msg("generate: upstream call failed")
		a.error(w, code, errCode, domain.DetailOf(err))
		return
	}

	img, err := imagegen.ExtractImage(resp)
	if err != nil {
		if errors.Is(err, domain.ErrNoImageProduced) {
			message := domain.DetailOf(err)
			if message == "" {
				message = "The model did not return an image."
			}
			a.counters.noImage.Add(1)
			logger.Info().Str("detail", message).Msg("generate: no image in upstream response")
			a.error(w, http.StatusUnprocessableEntity, proxy.CodeNoImage, message)
			return
		}
		a.counters.fail.Add(1)
		logger.Error().Err(err).Msg("generate: unreadable upstream response")
		a.error(w, http.StatusInternalServerError, proxy.CodeUpstreamError, domain.DetailOf(err))
		return
	}

	a.counters.success.Add(1)
	logger.Info().Str("media_type", img.MediaType).Int("bytes", len(img.Data)).Msg("generate: image produced")
	a.json(w, http.StatusOK, proxy.GenerateResponse{
		Success:  true,
		ImageURL: img.DataURL(),
		Message:  generateSuccessMessage,
	})
}

// upstreamStatus is the inverse of the proxy client's classification, so a
// remote caller recovers the same error kind.
func upstreamStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, proxy.CodeInvalidInput
	case errors.Is(err, domain.ErrTransientUpstream):
		return http.StatusServiceUnavailable, proxy.CodeInternal
	case errors.Is(err, domain.ErrNetworkFailure), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, proxy.CodeUpstreamUnreachable
	default:
		return http.StatusInternalServerError, proxy.CodeUpstreamError
	}
}
