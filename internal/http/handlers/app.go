package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
	"remodel/internal/infra"
	"remodel/internal/middleware"
	"remodel/internal/session"
)

type App struct {
	Config   infra.Config
	Logger   zerolog.Logger
	Upstream imagegen.Generator
	Sessions *session.Store

	// BaseCtx parents background generation so it outlives the request that
	// started it but still stops on shutdown.
	BaseCtx context.Context

	counters generateCounters
}

func NewApp(cfg infra.Config, logger zerolog.Logger, upstream imagegen.Generator, sessions *session.Store) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Upstream: upstream,
		Sessions: sessions,
		BaseCtx:  context.Background(),
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message, Success: false})
}

// fail maps a classified error onto a status code and error body.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code, errCode = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		code, errCode = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyPending):
		code, errCode = http.StatusConflict, "already_pending"
	}
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("request failed")
	}
	a.error(w, code, errCode, domain.Reason(err))
}

// decode reads a JSON body capped at MaxRequestBytes.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := a.Config.MaxRequestBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.Classify(domain.ErrInvalidInput, "request body too large", err)
		case errors.Is(err, io.EOF):
			return domain.Classify(domain.ErrInvalidInput, "request body is empty", err)
		default:
			return domain.Classify(domain.ErrInvalidInput, "invalid JSON payload", err)
		}
	}
	return nil
}

func (a *App) baseContext() context.Context {
	if a.BaseCtx != nil {
		return a.BaseCtx
	}
	return context.Background()
}
