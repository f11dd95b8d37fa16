package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"remodel/internal/http/handlers"
	"remodel/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// Forwarding headers are client controlled unless a proxy rewrites them.
	if app.Config.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/stats", app.Stats)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", app.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Delete("/", app.DeleteSession)
				r.Put("/images", app.UploadImages)
				r.Post("/generate", app.StartGeneration)
				r.Post("/reset", app.ResetSession)
				r.Get("/events", app.Events)
				r.Get("/archive", app.Archive)
				r.Post("/styles/{style}/regenerate", app.RegenerateStyle)
				r.Get("/styles/{style}/image", app.StyleImage)
			})
		})
	})

	return r
}
