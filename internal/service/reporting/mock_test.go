package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"invoice-analytics/internal/domain"
)

var errTest = errors.New("test error")

// === Invoice Repository Mock ===

type mockInvoiceRepo struct {
	countsFn          func(ctx context.Context) (*domain.InvoiceStats, error)
	topVendorsFn      func(ctx context.Context, limit int) ([]domain.VendorTotal, error)
	amountsByDateFn   func(ctx context.Context) ([]domain.InvoiceAmount, error)
	amountsByDueFn    func(ctx context.Context) ([]domain.InvoiceAmount, error)
	lineItemAmountsFn func(ctx context.Context) ([]domain.LineItemAmount, error)
	listInvoicesFn    func(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
}

func (m *mockInvoiceRepo) Counts(ctx context.Context) (*domain.InvoiceStats, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx)
	}
	panic("unexpected call to mockInvoiceRepo.Counts")
}

func (m *mockInvoiceRepo) TopVendors(ctx context.Context, limit int) ([]domain.VendorTotal, error) {
	if m.topVendorsFn != nil {
		return m.topVendorsFn(ctx, limit)
	}
	panic("unexpected call to mockInvoiceRepo.TopVendors")
}

func (m *mockInvoiceRepo) InvoiceAmountsByDate(ctx context.Context) ([]domain.InvoiceAmount, error) {
	if m.amountsByDateFn != nil {
		return m.amountsByDateFn(ctx)
	}
	panic("unexpected call to mockInvoiceRepo.InvoiceAmountsByDate")
}

func (m *mockInvoiceRepo) InvoiceAmountsByDueDate(ctx context.Context) ([]domain.InvoiceAmount, error) {
	if m.amountsByDueFn != nil {
		return m.amountsByDueFn(ctx)
	}
	panic("unexpected call to mockInvoiceRepo.InvoiceAmountsByDueDate")
}

func (m *mockInvoiceRepo) LineItemAmounts(ctx context.Context) ([]domain.LineItemAmount, error) {
	if m.lineItemAmountsFn != nil {
		return m.lineItemAmountsFn(ctx)
	}
	panic("unexpected call to mockInvoiceRepo.LineItemAmounts")
}

func (m *mockInvoiceRepo) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	if m.listInvoicesFn != nil {
		return m.listInvoicesFn(ctx, filter)
	}
	panic("unexpected call to mockInvoiceRepo.ListInvoices")
}

func (m *mockInvoiceRepo) CreateVendor(_ context.Context, _ *domain.Vendor) (*domain.Vendor, error) {
	panic("unexpected call to mockInvoiceRepo.CreateVendor")
}

func (m *mockInvoiceRepo) FindVendorByName(_ context.Context, _ string) (*domain.Vendor, error) {
	panic("unexpected call to mockInvoiceRepo.FindVendorByName")
}

func (m *mockInvoiceRepo) CreateCustomer(_ context.Context, _ *domain.Customer) (*domain.Customer, error) {
	panic("unexpected call to mockInvoiceRepo.CreateCustomer")
}

func (m *mockInvoiceRepo) CreatePayment(_ context.Context, _ *domain.Payment) (*domain.Payment, error) {
	panic("unexpected call to mockInvoiceRepo.CreatePayment")
}

func (m *mockInvoiceRepo) CreateInvoice(_ context.Context, _ *domain.Invoice) (*domain.Invoice, error) {
	panic("unexpected call to mockInvoiceRepo.CreateInvoice")
}

func (m *mockInvoiceRepo) CreateLineItem(_ context.Context, _ *domain.LineItem) (*domain.LineItem, error) {
	panic("unexpected call to mockInvoiceRepo.CreateLineItem")
}

func (m *mockInvoiceRepo) CreateFile(_ context.Context, _ *domain.File) (*domain.File, error) {
	panic("unexpected call to mockInvoiceRepo.CreateFile")
}

// healthyRepo answers every reporting read with small fixed data.
func healthyRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		countsFn: func(context.Context) (*domain.InvoiceStats, error) {
			return &domain.InvoiceStats{TotalInvoices: 2, TotalVendors: 1}, nil
		},
		topVendorsFn: func(context.Context, int) ([]domain.VendorTotal, error) {
			return []domain.VendorTotal{{VendorName: "Acme", InvoiceCount: 2, NetValue: dec("3")}}, nil
		},
		amountsByDateFn: func(context.Context) ([]domain.InvoiceAmount, error) {
			return []domain.InvoiceAmount{amount("2025-01-02", "1")}, nil
		},
		amountsByDueFn: func(context.Context) ([]domain.InvoiceAmount, error) {
			return []domain.InvoiceAmount{amount("2025-02-02", "1")}, nil
		},
		lineItemAmountsFn: func(context.Context) ([]domain.LineItemAmount, error) {
			return []domain.LineItemAmount{{Sachkonto: "4400", Amount: dec("1")}}, nil
		},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amount(date, value string) domain.InvoiceAmount {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return domain.InvoiceAmount{Date: t, Amount: dec(value)}
}
