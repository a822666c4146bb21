package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/standup"
)

// NewRouter mounts the standup operations under /v1
func NewRouter(app *standup.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := NewHandler(app)
	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/activity", h.Activity)
		r.Get("/date", h.Date)
		r.With(middleware.AllowContentType("application/json")).
			Post("/render", h.Render)
	})

	return r
}

// requestLogger logs one line per request with status and latency
func requestLogger(next http.Handler) http.Handler {
	log := logger.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
