package ui

import (
	"strconv"

	"invoice-analytics/internal/service/reporting"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func statCard(title string, value int64) Node {
	return Div(
		Class(cardClass()),
		P(Class("stat-title"), Text(title)),
		P(Class("stat-value"), Text(strconv.FormatInt(value, 10))),
	)
}

func dashboardPage(d *reporting.Dashboard) Node {
	vendorRows := make([]Node, 0, len(d.TopVendors))
	for _, v := range d.TopVendors {
		vendorRows = append(vendorRows, Tr(
			Td(Text(v.VendorName)),
			Td(Class("num"), Text(strconv.FormatInt(v.InvoiceCount, 10))),
			Td(Class("num"), Text(formatMoney(v.NetValue))),
		))
	}

	trendRows := make([]Node, 0, len(d.InvoiceTrends))
	for _, t := range d.InvoiceTrends {
		trendRows = append(trendRows, Tr(
			Td(Text(t.Month)),
			Td(Class("num"), Text(strconv.FormatInt(t.InvoiceCount, 10))),
			Td(Class("num"), Text(formatMoney(t.TotalSpend))),
		))
	}

	categoryRows := make([]Node, 0, len(d.CategorySpend))
	for _, c := range d.CategorySpend {
		categoryRows = append(categoryRows, Tr(
			Td(Text(c.Category)),
			Td(Class("num"), Text(formatMoney(c.Spend))),
		))
	}

	outflowRows := make([]Node, 0, len(d.CashOutflow))
	for _, o := range d.CashOutflow {
		outflowRows = append(outflowRows, Tr(
			Td(Text(o.DueDate)),
			Td(Class("num"), Text(formatMoney(o.Total))),
		))
	}

	return appPage("Dashboard", "dashboard",
		Div(Class("grid"),
			statCard("Total Invoices", d.Stats.TotalInvoices),
			statCard("Vendors", d.Stats.TotalVendors),
			statCard("Customers", d.Stats.TotalCustomers),
			statCard("Payments", d.Stats.TotalPayments),
		),
		Div(Class("grid grid-wide"),
			tableCard("Invoice Volume + Value Trend", "Last 12 months with invoices.",
				[]string{"Month", "Invoices", "Total Spend"}, trendRows, "No invoice trend data."),
			tableCard("Spend by Vendor (Top 10)", "Top vendors by invoice count and net value.",
				[]string{"Vendor", "# Invoices", "Net Value"}, vendorRows, "No vendor data found."),
		),
		Div(Class("grid grid-wide"),
			tableCard("Spend by Category", "Line items grouped by Sachkonto.",
				[]string{"Category", "Spend"}, categoryRows, "No line items found."),
			tableCard("Cash Outflow Forecast", "Invoice totals by payment due month.",
				[]string{"Due Month", "Expected Outflow"}, outflowRows, "No payment due dates found."),
		),
	)
}
