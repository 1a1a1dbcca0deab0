package ui

import (
	"net/http"

	"invoice-analytics/internal/domain"
)

// Dashboard renders every reporting panel on one page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	renderHTML(w, http.StatusOK, dashboardPage(d))
}

// Invoices renders the filtered invoice list.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	filter := domain.InvoiceFilter{
		VendorName:   r.URL.Query().Get("vendorName"),
		CustomerName: r.URL.Query().Get("customerName"),
	}
	invoices, err := h.Reports.Invoices(r.Context(), filter)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	renderHTML(w, http.StatusOK, invoicesPage(filter, invoices))
}
