package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the HTTP surface. Every route under /api/sheets requires a
// bearer token and is bounded by timeout.
func NewRouter(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api/sheets/{spreadsheetId}", func(r chi.Router) {
		r.Use(requireBearer)
		r.Use(middleware.Timeout(timeout))

		r.Get("/", h.getValues)
		r.Put("/", h.putValues)
		r.Post("/append", h.appendRow)
		r.Get("/range", h.getRange)
		r.Post("/update", h.updateValues)
		r.Get("/info", h.getInfo)
		r.Get("/settlement", h.getSettlement)
		r.Get("/accounts", h.getAccounts)
		r.Get("/payment-methods", h.getPaymentMethods)
		r.Get("/lookups/{list}", h.getLookup)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Handled request")
}
