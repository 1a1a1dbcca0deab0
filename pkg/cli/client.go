package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"invoice-analytics/internal/domain"
)

const clientTimeout = 30 * time.Second

// APIError is a non-success response from the dashboard server.
type APIError struct {
	HTTPStatus int    `json:"http_status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.HTTPStatus)
	}
	return fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, e.Message)
}

// Client reads the reporting endpoints of the dashboard server.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(clientTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// SetBaseURL points the client at a different server.
func (c *Client) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
}

// Stats fetches overall record counts.
func (c *Client) Stats(ctx context.Context) (*domain.InvoiceStats, error) {
	var out domain.InvoiceStats
	if err := c.get(ctx, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopVendors fetches the top vendors by summed invoice total.
func (c *Client) TopVendors(ctx context.Context) ([]domain.VendorTotal, error) {
	var out []domain.VendorTotal
	return out, c.get(ctx, "/api/vendors/top10", nil, &out)
}

// InvoiceTrends fetches per-month invoice counts and spend.
func (c *Client) InvoiceTrends(ctx context.Context) ([]domain.MonthlyTrend, error) {
	var out []domain.MonthlyTrend
	return out, c.get(ctx, "/api/invoice-trends", nil, &out)
}

// CategorySpend fetches line item spend per category.
func (c *Client) CategorySpend(ctx context.Context) ([]domain.CategorySpend, error) {
	var out []domain.CategorySpend
	return out, c.get(ctx, "/api/category-spend", nil, &out)
}

// CashOutflow fetches invoice totals falling due per month.
func (c *Client) CashOutflow(ctx context.Context) ([]domain.CashOutflow, error) {
	var out []domain.CashOutflow
	return out, c.get(ctx, "/api/cash-outflow", nil, &out)
}

// Invoices lists invoices matching filter, newest first.
func (c *Client) Invoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	params := map[string]string{}
	if filter.VendorName != "" {
		params["vendorName"] = filter.VendorName
	}
	if filter.CustomerName != "" {
		params["customerName"] = filter.CustomerName
	}
	var out []domain.Invoice
	return out, c.get(ctx, "/api/invoices", params, &out)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return parseAPIError(resp.StatusCode(), resp.Body())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{HTTPStatus: status}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
