// Package ui serves the server-rendered dashboard and the chat page. Chat
// answers are streamed to the browser as Datastar patch events.
package ui

import (
	"errors"
	"log/slog"
	"net/http"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/export"
	"invoice-analytics/internal/service/reporting"

	gomponents "maragu.dev/gomponents"
)

// Handler serves the UI pages.
type Handler struct {
	Reports    *reporting.Service
	Chats      *ChatRegistry
	Exporter   *export.Exporter
	Production bool

	logger *slog.Logger
}

// NewHandler creates a new UI Handler.
func NewHandler(
	reports *reporting.Service,
	chats *ChatRegistry,
	exporter *export.Exporter,
	production bool,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Reports:    reports,
		Chats:      chats,
		Exporter:   exporter,
		Production: production,
		logger:     logger.With("component", "ui"),
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := "Unexpected Error"
	message := "An unexpected error occurred while loading this page."

	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		title = "Not Found"
		message = notFound.Error()
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = validation.Error()
	case errors.As(err, &conflict):
		status = http.StatusConflict
		title = "Conflict"
		message = conflict.Error()
	default:
		h.logger.ErrorContext(r.Context(), "page failed", "path", r.URL.Path, "error", err)
	}

	renderHTML(w, status, errorPage(title, message))
}
