// Package reporting computes the dashboard panels from the invoice store.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"invoice-analytics/internal/domain"
)

const (
	// TopVendorLimit is the number of vendors on the top-vendors panel.
	TopVendorLimit = 10
	// TrendMonths is how many of the most recent months the trend panel shows.
	TrendMonths = 12
	// UnknownCategory labels line items whose Sachkonto has no mapping.
	UnknownCategory = "Unknown"
)

// amountScale converts stored invoice totals to the unit the charts plot.
var amountScale = decimal.NewFromInt(1000)

// sachkontoCategories maps booking account codes to spend categories.
var sachkontoCategories = map[string]string{
	"4400": "Marketing",
	"5100": "Operations",
	"6300": "Facilities",
}

// CategoryFor returns the spend category for a Sachkonto code.
func CategoryFor(sachkonto string) string {
	if c, ok := sachkontoCategories[strings.TrimSpace(sachkonto)]; ok {
		return c
	}
	return UnknownCategory
}

// Dashboard bundles every panel for a single page render.
type Dashboard struct {
	Stats         *domain.InvoiceStats   `json:"stats"`
	TopVendors    []domain.VendorTotal   `json:"topVendors"`
	InvoiceTrends []domain.MonthlyTrend  `json:"invoiceTrends"`
	CategorySpend []domain.CategorySpend `json:"categorySpend"`
	CashOutflow   []domain.CashOutflow   `json:"cashOutflow"`
}

// Service provides the reporting queries behind the dashboard.
type Service struct {
	repo domain.InvoiceRepository
}

// NewService creates a new reporting Service.
func NewService(repo domain.InvoiceRepository) *Service {
	return &Service{repo: repo}
}

// Stats returns overall record counts.
func (s *Service) Stats(ctx context.Context) (*domain.InvoiceStats, error) {
	return s.repo.Counts(ctx)
}

// TopVendors returns the vendors with the highest summed invoice totals.
func (s *Service) TopVendors(ctx context.Context) ([]domain.VendorTotal, error) {
	return s.repo.TopVendors(ctx, TopVendorLimit)
}

// InvoiceTrends returns invoice count and scaled spend per month of invoice
// date, oldest first, limited to the most recent TrendMonths months that
// have data. Months are labelled like "Mar 2025".
func (s *Service) InvoiceTrends(ctx context.Context) ([]domain.MonthlyTrend, error) {
	amounts, err := s.repo.InvoiceAmountsByDate(ctx)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count int64
		spend decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	for _, a := range amounts {
		key := a.Date.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{spend: decimal.Zero}
			buckets[key] = b
		}
		b.count++
		b.spend = b.spend.Add(a.Amount.Mul(amountScale))
	}

	keys := sortedKeys(buckets)
	if len(keys) > TrendMonths {
		keys = keys[len(keys)-TrendMonths:]
	}

	out := make([]domain.MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		label, err := monthLabel(k)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.MonthlyTrend{
			Month:        label,
			InvoiceCount: buckets[k].count,
			TotalSpend:   buckets[k].spend,
		})
	}
	return out, nil
}

// CategorySpend sums the absolute line item totals per category, in the
// order categories are first encountered.
func (s *Service) CategorySpend(ctx context.Context) ([]domain.CategorySpend, error) {
	items, err := s.repo.LineItemAmounts(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.CategorySpend{}
	index := make(map[string]int)
	for _, it := range items {
		cat := CategoryFor(it.Sachkonto)
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, domain.CategorySpend{Category: cat, Spend: decimal.Zero})
		}
		out[i].Spend = out[i].Spend.Add(it.Amount.Abs())
	}
	return out, nil
}

// CashOutflow returns the scaled invoice totals falling due per month,
// keyed by the first day of the month and sorted ascending.
func (s *Service) CashOutflow(ctx context.Context) ([]domain.CashOutflow, error) {
	amounts, err := s.repo.InvoiceAmountsByDueDate(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, a := range amounts {
		key := a.Date.UTC().Format("2006-01") + "-01"
		totals[key] = totals[key].Add(a.Amount.Mul(amountScale))
	}

	out := make([]domain.CashOutflow, 0, len(totals))
	for _, k := range sortedKeys(totals) {
		out = append(out, domain.CashOutflow{DueDate: k, Total: totals[k]})
	}
	return out, nil
}

// Invoices lists invoices matching the filter, newest first.
func (s *Service) Invoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	filter.VendorName = strings.TrimSpace(filter.VendorName)
	filter.CustomerName = strings.TrimSpace(filter.CustomerName)
	return s.repo.ListInvoices(ctx, filter)
}

// Dashboard fetches all panels concurrently. The first failure cancels the
// remaining queries.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.Stats, err = s.Stats(gctx)
		return wrapPanel("stats", err)
	})
	g.Go(func() error {
		var err error
		d.TopVendors, err = s.TopVendors(gctx)
		return wrapPanel("top vendors", err)
	})
	g.Go(func() error {
		var err error
		d.InvoiceTrends, err = s.InvoiceTrends(gctx)
		return wrapPanel("invoice trends", err)
	})
	g.Go(func() error {
		var err error
		d.CategorySpend, err = s.CategorySpend(gctx)
		return wrapPanel("category spend", err)
	})
	g.Go(func() error {
		var err error
		d.CashOutflow, err = s.CashOutflow(gctx)
		return wrapPanel("cash outflow", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

func wrapPanel(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func monthLabel(key string) (string, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return "", fmt.Errorf("parse month %q: %w", key, err)
	}
	return t.Format("Jan 2006"), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
