package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"invoice-analytics/internal/domain"
)

type demoInvoice struct {
	number   string
	vendor   string
	customer string
	date     string
	netDays  int64
	lines    []demoLine
}

type demoLine struct {
	description string
	quantity    string
	unitPrice   string
	sachkonto   string
}

var demoInvoices = []demoInvoice{
	{"RE-2024-0101", "Acme GmbH", "Contoso AG", "2024-11-04", 30, []demoLine{
		{"Trade fair booth", "1", "1200.00", "4400"},
		{"Flyer print run", "500", "0.45", "4400"},
	}},
	{"RE-2024-0117", "Globex Logistik", "Contoso AG", "2024-11-21", 14, []demoLine{
		{"Pallet freight Hamburg", "4", "85.50", "5100"},
	}},
	{"RE-2024-0142", "Initech Facility Services", "Fabrikam KG", "2024-12-02", 30, []demoLine{
		{"Office cleaning December", "1", "640.00", "6300"},
		{"Window cleaning", "1", "180.00", "6300"},
	}},
	{"RE-2025-0003", "Acme GmbH", "Fabrikam KG", "2025-01-09", 30, []demoLine{
		{"Online campaign", "1", "2500.00", "4400"},
	}},
	{"RE-2025-0019", "Globex Logistik", "Contoso AG", "2025-01-28", 14, []demoLine{
		{"Express courier", "2", "49.90", "5100"},
		{"Packaging material", "10", "3.20", "5100"},
	}},
	{"RE-2025-0034", "Umbrella Consulting", "Contoso AG", "2025-02-14", 45, []demoLine{
		{"Process workshop", "2", "950.00", "7000"},
	}},
	{"RE-2025-0051", "Initech Facility Services", "Fabrikam KG", "2025-03-03", 30, []demoLine{
		{"Office cleaning March", "1", "640.00", "6300"},
	}},
}

// SeedDemo fills an empty store with a small set of demo invoices and returns
// how many were created. A store that already holds invoices is left alone.
func SeedDemo(ctx context.Context, repo domain.InvoiceRepository) (int, error) {
	stats, err := repo.Counts(ctx)
	if err != nil {
		return 0, err
	}
	if stats.TotalInvoices > 0 {
		return 0, nil
	}

	vendors := make(map[string]int64)
	customers := make(map[string]int64)
	currency := "€"
	vat := decimal.RequireFromString("0.19")

	for _, d := range demoInvoices {
		vendorID, ok := vendors[d.vendor]
		if !ok {
			v, err := repo.CreateVendor(ctx, &domain.Vendor{VendorName: d.vendor})
			if err != nil {
				return 0, fmt.Errorf("create vendor %q: %w", d.vendor, err)
			}
			vendorID = v.ID
			vendors[d.vendor] = vendorID
		}
		customerID, ok := customers[d.customer]
		if !ok {
			c, err := repo.CreateCustomer(ctx, &domain.Customer{CustomerName: d.customer})
			if err != nil {
				return 0, fmt.Errorf("create customer %q: %w", d.customer, err)
			}
			customerID = c.ID
			customers[d.customer] = customerID
		}

		date, err := time.Parse("2006-01-02", d.date)
		if err != nil {
			return 0, fmt.Errorf("invoice %s: %w", d.number, err)
		}
		due := date.AddDate(0, 0, int(d.netDays))
		terms := fmt.Sprintf("%d days net", d.netDays)
		netDays := d.netDays
		payment, err := repo.CreatePayment(ctx, &domain.Payment{PaymentTerms: &terms, NetDays: &netDays, DueDate: &due})
		if err != nil {
			return 0, fmt.Errorf("create payment for %s: %w", d.number, err)
		}

		subTotal := decimal.Zero
		for _, l := range d.lines {
			subTotal = subTotal.Add(lineTotal(l))
		}
		tax := subTotal.Mul(vat).Round(2)
		total := subTotal.Add(tax)

		number := d.number
		inv, err := repo.CreateInvoice(ctx, &domain.Invoice{
			InvoiceNumber:  &number,
			InvoiceDate:    &date,
			SubTotal:       &subTotal,
			TotalTax:       &tax,
			InvoiceTotal:   &total,
			CurrencySymbol: &currency,
			VendorID:       &vendorID,
			CustomerID:     &customerID,
			PaymentID:      &payment.ID,
		})
		if err != nil {
			return 0, fmt.Errorf("create invoice %s: %w", d.number, err)
		}

		for i, l := range d.lines {
			srNo := int64(i + 1)
			desc, code := l.description, l.sachkonto
			qty := decimal.RequireFromString(l.quantity)
			price := decimal.RequireFromString(l.unitPrice)
			// Booked as expense, so stored negative.
			lt := lineTotal(l).Neg()
			if _, err := repo.CreateLineItem(ctx, &domain.LineItem{
				InvoiceID:   inv.ID,
				SrNo:        &srNo,
				Description: &desc,
				Quantity:    &qty,
				UnitPrice:   &price,
				TotalPrice:  &lt,
				Sachkonto:   &code,
			}); err != nil {
				return 0, fmt.Errorf("create line item for %s: %w", d.number, err)
			}
		}

		fileType, status := "application/pdf", "processed"
		if _, err := repo.CreateFile(ctx, &domain.File{
			InvoiceID: inv.ID,
			Name:      d.number + ".pdf",
			FileType:  &fileType,
			Status:    &status,
		}); err != nil {
			return 0, fmt.Errorf("create file for %s: %w", d.number, err)
		}
	}
	return len(demoInvoices), nil
}

func lineTotal(l demoLine) decimal.Decimal {
	return decimal.RequireFromString(l.quantity).Mul(decimal.RequireFromString(l.unitPrice))
}
