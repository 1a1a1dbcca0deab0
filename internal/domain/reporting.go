package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStats holds overall record counts for the dashboard header.
type InvoiceStats struct {
	TotalInvoices  int64 `json:"totalInvoices"`
	TotalVendors   int64 `json:"totalVendors"`
	TotalCustomers int64 `json:"totalCustomers"`
	TotalPayments  int64 `json:"totalPayments"`
}

// VendorTotal is one row of the top-vendors panel.
type VendorTotal struct {
	VendorName   string          `json:"vendorName"`
	InvoiceCount int64           `json:"invoiceCount"`
	NetValue     decimal.Decimal `json:"netValue"`
}

// MonthlyTrend is the invoice count and spend for one calendar month.
type MonthlyTrend struct {
	Month        string          `json:"month"`
	InvoiceCount int64           `json:"invoiceCount"`
	TotalSpend   decimal.Decimal `json:"totalSpend"`
}

// CategorySpend is the absolute line-item spend for one booking category.
type CategorySpend struct {
	Category string          `json:"category"`
	Spend    decimal.Decimal `json:"spend"`
}

// CashOutflow is the amount falling due in one month.
type CashOutflow struct {
	DueDate string          `json:"dueDate"`
	Total   decimal.Decimal `json:"total"`
}

// Vendor is an invoice issuer.
type Vendor struct {
	ID                int64   `json:"id"`
	VendorName        string  `json:"vendorName"`
	VendorPartyNumber *string `json:"vendorPartyNumber"`
	VendorAddress     *string `json:"vendorAddress"`
	VendorTaxID       *string `json:"vendorTaxId"`
}

// Customer is an invoice recipient.
type Customer struct {
	ID              int64   `json:"id"`
	CustomerName    string  `json:"customerName"`
	CustomerAddress *string `json:"customerAddress"`
}

// Payment holds the payment terms of an invoice.
type Payment struct {
	ID                int64      `json:"id"`
	BankAccountNumber *string    `json:"bankAccountNumber"`
	PaymentTerms      *string    `json:"paymentTerms"`
	NetDays           *int64     `json:"netDays"`
	DueDate           *time.Time `json:"dueDate"`
}

// LineItem is one position on an invoice.
type LineItem struct {
	ID           int64            `json:"id"`
	InvoiceID    int64            `json:"invoiceId"`
	SrNo         *int64           `json:"srNo"`
	Description  *string          `json:"description"`
	Quantity     *decimal.Decimal `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	TotalPrice   *decimal.Decimal `json:"totalPrice"`
	Sachkonto    *string          `json:"Sachkonto"`
	BUSchluessel *string          `json:"BUSchluessel"`
}

// File is the source document an invoice was extracted from.
type File struct {
	ID        int64      `json:"id"`
	InvoiceID int64      `json:"invoiceId"`
	Name      string     `json:"name"`
	FilePath  *string    `json:"filePath"`
	FileType  *string    `json:"fileType"`
	Status    *string    `json:"status"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// Invoice is an invoice with its related records.
type Invoice struct {
	ID             int64            `json:"id"`
	InvoiceNumber  *string          `json:"invoiceNumber"`
	InvoiceDate    *time.Time       `json:"invoiceDate"`
	DeliveryDate   *time.Time       `json:"deliveryDate"`
	SubTotal       *decimal.Decimal `json:"subTotal"`
	TotalTax       *decimal.Decimal `json:"totalTax"`
	InvoiceTotal   *decimal.Decimal `json:"invoiceTotal"`
	CurrencySymbol *string          `json:"currencySymbol"`
	VendorID       *int64           `json:"vendorId"`
	CustomerID     *int64           `json:"customerId"`
	PaymentID      *int64           `json:"paymentId"`
	Vendor         *Vendor          `json:"vendor"`
	Customer       *Customer        `json:"customer"`
	Payment        *Payment         `json:"payment"`
	LineItems      []LineItem       `json:"lineItems"`
	Files          []File           `json:"files"`
}

// InvoiceFilter narrows the invoice listing by substring matches.
type InvoiceFilter struct {
	VendorName   string
	CustomerName string
}

// InvoiceAmount is a raw (date, amount) pair read for monthly bucketing.
type InvoiceAmount struct {
	Date   time.Time
	Amount decimal.Decimal
}

// LineItemAmount is a raw (account code, amount) pair read for category spend.
type LineItemAmount struct {
	Sachkonto string
	Amount    decimal.Decimal
}
