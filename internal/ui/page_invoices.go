package ui

import (
	"strconv"

	"invoice-analytics/internal/domain"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

func invoicesPage(filter domain.InvoiceFilter, invoices []domain.Invoice) Node {
	rows := make([]Node, 0, len(invoices))
	for _, inv := range invoices {
		vendor, customer, due := "-", "-", "-"
		if inv.Vendor != nil {
			vendor = inv.Vendor.VendorName
		}
		if inv.Customer != nil {
			customer = inv.Customer.CustomerName
		}
		if inv.Payment != nil && inv.Payment.DueDate != nil {
			due = inv.Payment.DueDate.Format("2006-01-02")
		}
		date := "-"
		if inv.InvoiceDate != nil {
			date = inv.InvoiceDate.Format("2006-01-02")
		}
		number := stringPtr(inv.InvoiceNumber)

		rows = append(rows, Tr(
			data.Show(containsExpr(number+" "+vendor+" "+customer)),
			Td(Text(number)),
			Td(Text(date)),
			Td(Text(vendor)),
			Td(Text(customer)),
			Td(Class("num"), Text(formatMoneyPtr(inv.InvoiceTotal))),
			Td(Text(due)),
			Td(Class("num"), Text(strconv.Itoa(len(inv.LineItems)))),
		))
	}

	return appPage("Invoices", "invoices",
		Form(
			Method("get"),
			Action("/invoices"),
			Class(cardClass("toolbar")),
			Div(
				Label(For("vendorName"), Class(classMuted), Text("Vendor")),
				Input(ID("vendorName"), Name("vendorName"), Type("text"), Class("form-control"), Value(filter.VendorName)),
			),
			Div(
				Label(For("customerName"), Class(classMuted), Text("Customer")),
				Input(ID("customerName"), Name("customerName"), Type("text"), Class("form-control"), Value(filter.CustomerName)),
			),
			Button(Type("submit"), Class(classPrimaryButton), Text("Search")),
		),
		Div(
			data.Signals(map[string]any{"q": ""}),
			quickFilterCard("Filter by number, vendor or customer"),
			tableCard("Invoices", strconv.Itoa(len(invoices))+" invoices, newest first.",
				[]string{"Number", "Date", "Vendor", "Customer", "Total", "Due", "Items"}, rows, "No invoices match."),
		),
	)
}
