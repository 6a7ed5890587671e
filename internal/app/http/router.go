package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"crm-billing/go_backend/internal/app/http/handlers"
	"crm-billing/go_backend/internal/app/http/middleware"
	"crm-billing/go_backend/internal/domain/identity"
)

func NewRouter(h *handlers.Handlers, auth identity.Resolver, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tickets", func(r chi.Router) {
			r.Use(middleware.CORS(h.Cfg.CORSAllowOrigin, "POST", "OPTIONS"))
			r.Post("/extract", h.ExtractTicket)
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Use(middleware.CORS(h.Cfg.CORSAllowOrigin, "GET", "POST", "PUT", "OPTIONS"))
			r.Use(middleware.Authenticate(auth))

			r.Post("/totals", h.QuoteTotals)
			r.Post("/", h.CreateQuote)
			r.Get("/", h.ListQuotes)
			r.Get("/{id}", h.GetQuote)
			r.Put("/{id}", h.UpdateQuote)
			r.Get("/{id}/pdf", h.QuotePDF)
			r.Get("/{id}/share", h.ShareQuote)
		})
	})

	return r
}
