package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP route table.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", h.Health)

	r.Route("/funds", func(r chi.Router) {
		r.Post("/", h.CreateFund)
		r.Get("/", h.ListFunds)
		r.Get("/{fund_id}/metrics", h.FundMetrics)
		r.Get("/{fund_id}/metrics/breakdown", h.FundMetricsBreakdown)
		r.Post("/{fund_id}/documents", h.UploadDocument)
		r.Get("/{fund_id}/documents", h.ListDocuments)
	})

	r.Get("/documents/{document_id}", h.GetDocument)

	r.Post("/chat", h.Chat)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/index/rebuild", h.RebuildIndex)
		r.Get("/index/stats", h.IndexStats)
		r.Delete("/embeddings", h.ClearEmbeddings)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
