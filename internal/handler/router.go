package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/marketplace-admin/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware административного API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", h.ListDisputes)
			r.Get("/resolution-options", h.ResolutionOptions)
			r.Get("/{id}", h.GetDispute)
			r.With(h.rateLimit).Post("/{id}/resolve", h.ResolveDispute)
		})

		r.Route("/referrals", func(r chi.Router) {
			r.Get("/", h.ListReferrals)
			r.Get("/stats", h.ReferralStats)

			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit)

				r.Patch("/{id}/mark-paid", h.MarkReferralPaid)
				r.Patch("/{id}/mark-ineligible", h.MarkReferralIneligible)
				r.Patch("/{id}/recalculate-and-retry", h.RecalculateAndRetry)
				r.Post("/settings", h.UpsertReferralSettings)
			})
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", h.ListPromotions)

			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit)

				r.Post("/", h.CreatePromotion)
				r.Patch("/{id}", h.UpdatePromotion)
				r.Delete("/{id}", h.DeletePromotion)
			})
		})

		r.Get("/download-document", h.DownloadDocument)
		r.Get("/operations/{kind}/{id}", h.GetOperation)
		r.Get("/audit", h.GetAudit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}
