package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoice-analytics/internal/ui/assets"
)

// MountRoutes registers the UI pages on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Static()))))

	r.Group(func(r chi.Router) {
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)
		r.Get("/", h.Dashboard)
		r.Get("/invoices", h.Invoices)
		r.Get("/chat", h.ChatNew)
		r.Get("/chat/{chatID}", h.ChatPage)
		r.Post("/chat/{chatID}/ask", h.ChatAsk)
		r.Get("/chat/{chatID}/export", h.ChatExport)
	})
}
