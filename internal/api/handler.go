// Package api provides the JSON reporting endpoints behind the invoice
// dashboard.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/middleware"
	"invoice-analytics/internal/service/reporting"
)

// Chart clients read amounts as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// HealthCheck reports the applied schema version, or an error when the
// store is unreachable.
type HealthCheck func(ctx context.Context) (int64, error)

// Handler serves the reporting API.
type Handler struct {
	reports *reporting.Service
	health  HealthCheck
	logger  *slog.Logger
}

// NewHandler creates a new Handler. health may be nil.
func NewHandler(reports *reporting.Service, health HealthCheck, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		reports: reports,
		health:  health,
		logger:  logger.With("component", "api"),
	}
}

// Register mounts the reporting routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Get("/openapi.json", h.OpenAPI)
	r.Get("/docs", h.Docs)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/vendors/top10", h.TopVendors)
		r.Get("/invoice-trends", h.InvoiceTrends)
		r.Get("/category-spend", h.CategorySpend)
		r.Get("/cash-outflow", h.CashOutflow)
		r.Get("/invoices", h.Invoices)
	})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// TopVendors handles GET /api/vendors/top10.
func (h *Handler) TopVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.reports.TopVendors(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch top vendors")
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

// InvoiceTrends handles GET /api/invoice-trends.
func (h *Handler) InvoiceTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.reports.InvoiceTrends(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch invoice trends")
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

// CategorySpend handles GET /api/category-spend.
func (h *Handler) CategorySpend(w http.ResponseWriter, r *http.Request) {
	spend, err := h.reports.CategorySpend(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch spend data")
		return
	}
	writeJSON(w, http.StatusOK, spend)
}

// CashOutflow handles GET /api/cash-outflow.
func (h *Handler) CashOutflow(w http.ResponseWriter, r *http.Request) {
	outflow, err := h.reports.CashOutflow(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch cash outflow")
		return
	}
	writeJSON(w, http.StatusOK, outflow)
}

// Invoices handles GET /api/invoices?vendorName=&customerName=.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	invoices, err := h.reports.Invoices(r.Context(), domain.InvoiceFilter{
		VendorName:   q.Get("vendorName"),
		CustomerName: q.Get("customerName"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to fetch invoices")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

type healthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int64  `json:"schemaVersion,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	version, err := h.health(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", SchemaVersion: version})
}

// OpenAPI handles GET /openapi.json.
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := GetSwagger()
	if err != nil {
		h.fail(w, r, err, "Failed to load API document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Docs serves an API reference page rendered from /openapi.json.
func (h *Handler) Docs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Invoice Analytics API</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@scalar/api-reference@1.44.16/dist/style.min.css" />
</head>
<body>
    <script id="api-reference" data-url="/openapi.json"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference@1.44.16/dist/browser/standalone.min.js"></script>
</body>
</html>`

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	status := httpStatusFromDomainError(err)
	h.logger.ErrorContext(r.Context(), generic,
		"error", err,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, status, failureBody(status, err, generic))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
