package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/service/reporting"
)

func newStatsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show invoice, vendor, customer and payment counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := st.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newVendorsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List the top vendors by invoice total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vendors, err := st.client.TopVendors(cmd.Context())
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), vendors)
			}
			printVendors(cmd.OutOrStdout(), vendors)
			return nil
		},
	}
}

func newTrendsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show invoice count and spend per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trends, err := st.client.InvoiceTrends(cmd.Context())
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), trends)
			}
			printTrends(cmd.OutOrStdout(), trends)
			return nil
		},
	}
}

func newCategoriesCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show line item spend per booking category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spend, err := st.client.CategorySpend(cmd.Context())
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), spend)
			}
			printCategories(cmd.OutOrStdout(), spend)
			return nil
		},
	}
}

func newCashOutflowCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "cash-outflow",
		Short: "Show invoice totals falling due per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outflow, err := st.client.CashOutflow(cmd.Context())
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), outflow)
			}
			printCashOutflow(cmd.OutOrStdout(), outflow)
			return nil
		},
	}
}

func newInvoicesCmd(st *state) *cobra.Command {
	var filter domain.InvoiceFilter
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices, err := st.client.Invoices(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if st.output == "json" {
				return printJSON(cmd.OutOrStdout(), invoices)
			}
			printInvoices(cmd.OutOrStdout(), invoices)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.VendorName, "vendor", "", "Only invoices whose vendor name contains this text")
	cmd.Flags().StringVar(&filter.CustomerName, "customer", "", "Only invoices whose customer name contains this text")
	return cmd
}

func newDashboardCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show every dashboard panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d reporting.Dashboard
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) { d.Stats, err = st.client.Stats(ctx); return err })
			g.Go(func() (err error) { d.TopVendors, err = st.client.TopVendors(ctx); return err })
			g.Go(func() (err error) { d.InvoiceTrends, err = st.client.InvoiceTrends(ctx); return err })
			g.Go(func() (err error) { d.CategorySpend, err = st.client.CategorySpend(ctx); return err })
			g.Go(func() (err error) { d.CashOutflow, err = st.client.CashOutflow(ctx); return err })
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.output == "json" {
				return printJSON(out, d)
			}
			printSection(out, "Overview")
			printStats(out, d.Stats)
			printSection(out, "Top vendors")
			printVendors(out, d.TopVendors)
			printSection(out, "Invoice trends")
			printTrends(out, d.InvoiceTrends)
			printSection(out, "Spend by category")
			printCategories(out, d.CategorySpend)
			printSection(out, "Cash outflow")
			printCashOutflow(out, d.CashOutflow)
			return nil
		},
	}
}

func printStats(w io.Writer, s *domain.InvoiceStats) {
	printTable(w, []string{"invoices", "vendors", "customers", "payments"}, [][]string{{
		strconv.FormatInt(s.TotalInvoices, 10),
		strconv.FormatInt(s.TotalVendors, 10),
		strconv.FormatInt(s.TotalCustomers, 10),
		strconv.FormatInt(s.TotalPayments, 10),
	}})
}

func printVendors(w io.Writer, vendors []domain.VendorTotal) {
	rows := make([][]string, 0, len(vendors))
	for _, v := range vendors {
		rows = append(rows, []string{v.VendorName, strconv.FormatInt(v.InvoiceCount, 10), money(v.NetValue)})
	}
	printTable(w, []string{"vendor", "invoices", "net value"}, rows)
}

func printTrends(w io.Writer, trends []domain.MonthlyTrend) {
	rows := make([][]string, 0, len(trends))
	for _, t := range trends {
		rows = append(rows, []string{t.Month, strconv.FormatInt(t.InvoiceCount, 10), money(t.TotalSpend)})
	}
	printTable(w, []string{"month", "invoices", "spend"}, rows)
}

func printCategories(w io.Writer, spend []domain.CategorySpend) {
	rows := make([][]string, 0, len(spend))
	for _, c := range spend {
		rows = append(rows, []string{c.Category, money(c.Spend)})
	}
	printTable(w, []string{"category", "spend"}, rows)
}

func printCashOutflow(w io.Writer, outflow []domain.CashOutflow) {
	rows := make([][]string, 0, len(outflow))
	for _, o := range outflow {
		rows = append(rows, []string{o.DueDate, money(o.Total)})
	}
	printTable(w, []string{"due month", "total"}, rows)
}

func printInvoices(w io.Writer, invoices []domain.Invoice) {
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		var vendor, customer, date, due string
		if inv.Vendor != nil {
			vendor = inv.Vendor.VendorName
		}
		if inv.Customer != nil {
			customer = inv.Customer.CustomerName
		}
		if inv.InvoiceDate != nil {
			date = inv.InvoiceDate.Format("2006-01-02")
		}
		if inv.Payment != nil && inv.Payment.DueDate != nil {
			due = inv.Payment.DueDate.Format("2006-01-02")
		}
		total := ""
		if inv.InvoiceTotal != nil {
			total = money(*inv.InvoiceTotal)
			if inv.CurrencySymbol != nil {
				total = *inv.CurrencySymbol + " " + total
			}
		}
		rows = append(rows, []string{deref(inv.InvoiceNumber), date, vendor, customer, total, due})
	}
	printTable(w, []string{"number", "date", "vendor", "customer", "total", "due"}, rows)
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, sectionStyle.Render(title))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
