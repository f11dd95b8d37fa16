package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"remodel/internal/http/handlers"
	httpapi "remodel/internal/http/httpapi"
	"remodel/internal/imagegen"
	"remodel/internal/infra"
	"remodel/internal/providers/genai"
	"remodel/internal/session"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	if cfg.GeminiAPIKey == "" {
		logger.Fatal().Msg("GEMINI_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	upstream, err := genai.NewClient(ctx, genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}

	pipeline := imagegen.NewPipeline(upstream, imagegen.RetrierOptions{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}, logger)
	sessions := session.NewStore(pipeline, cfg.Concurrency, logger)
	defer sessions.Close()

	app := handlers.NewApp(*cfg, logger, upstream, sessions)
	app.BaseCtx = ctx

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().
		Str("addr", server.Addr()).
		Str("model", upstream.Model()).
		Int("concurrency", cfg.Concurrency).
		Msg("API listening")
	if err := server.Run(ctx, cfg.HTTPIdleTimeout); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
