package domain

import "context"

// InvoiceRepository provides the reads behind the reporting panels and the
// writes used to seed demo data.
type InvoiceRepository interface {
	Counts(ctx context.Context) (*InvoiceStats, error)
	TopVendors(ctx context.Context, limit int) ([]VendorTotal, error)
	InvoiceAmountsByDate(ctx context.Context) ([]InvoiceAmount, error)
	InvoiceAmountsByDueDate(ctx context.Context) ([]InvoiceAmount, error)
	LineItemAmounts(ctx context.Context) ([]LineItemAmount, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	CreateVendor(ctx context.Context, v *Vendor) (*Vendor, error)
	FindVendorByName(ctx context.Context, name string) (*Vendor, error)
	CreateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	CreatePayment(ctx context.Context, p *Payment) (*Payment, error)
	CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error)
	CreateLineItem(ctx context.Context, li *LineItem) (*LineItem, error)
	CreateFile(ctx context.Context, f *File) (*File, error)
}
