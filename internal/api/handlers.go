package api

import (
	"encoding/json"
	"net/http"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/report"
	"github.com/Afrawles/standup/internal/standup"
)

// Handler serves the four standup operations over HTTP
type Handler struct {
	app *standup.Application
}

func NewHandler(app *standup.Application) *Handler {
	return &Handler{app: app}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summary handles GET /v1/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q, err := bindSummaryQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out, err := h.app.Summarize(r.Context(), q.request(), q.Format)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondReport(w, q.Format, out)
}

// Activity handles GET /v1/activity
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q, err := bindActivityQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	act, err := h.app.FetchActivity(r.Context(), q.request())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, act)
}

// Date handles GET /v1/date?expr=
func (h *Handler) Date(w http.ResponseWriter, r *http.Request) {
	q, err := bindDateQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	d, err := h.app.ResolveDate(q.Expr)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"date": d})
}

// Render handles POST /v1/render with {"format": ..., "activity": {...}}
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	body, err := bindRenderBody(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out, err := h.app.Render(body.Activity, body.Format)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondReport(w, body.Format, out)
}

func (h *Handler) respondReport(w http.ResponseWriter, format, out string) {
	f, _ := h.app.Format(format)
	switch f {
	case report.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case report.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := perr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Named("http").Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondJSON(w, status, perr.WireFrom(err))
}
