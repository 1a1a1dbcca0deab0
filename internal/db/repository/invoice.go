package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-analytics/internal/domain"
)

// UnknownVendorName labels vendor totals whose vendor row has no name.
const UnknownVendorName = "Unknown Vendor"

// InvoiceRepo implements domain.InvoiceRepository using SQLite. Reads go to
// readDB and writes to writeDB; pass the same pool twice when there is no split.
type InvoiceRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.InvoiceRepository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(writeDB, readDB *sql.DB) *InvoiceRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &InvoiceRepo{writeDB: writeDB, readDB: readDB}
}

// Counts returns the number of invoices, vendors, customers and payments.
func (r *InvoiceRepo) Counts(ctx context.Context) (*domain.InvoiceStats, error) {
	var s domain.InvoiceStats
	err := r.readDB.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM invoices),
			(SELECT count(*) FROM vendors),
			(SELECT count(*) FROM customers),
			(SELECT count(*) FROM payments)`).
		Scan(&s.TotalInvoices, &s.TotalVendors, &s.TotalCustomers, &s.TotalPayments)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return &s, nil
}

// TopVendors returns up to limit vendors ordered by summed invoice total.
// Invoices without a total still count toward invoiceCount.
func (r *InvoiceRepo) TopVendors(ctx context.Context, limit int) ([]domain.VendorTotal, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT i.vendor_id, v.vendor_name, i.invoice_total
		FROM invoices i
		LEFT JOIN vendors v ON v.id = i.vendor_id
		WHERE i.vendor_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query vendor totals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	byVendor := make(map[int64]*domain.VendorTotal)
	for rows.Next() {
		var (
			vendorID int64
			name     sql.NullString
			total    sql.NullString
		)
		if err := rows.Scan(&vendorID, &name, &total); err != nil {
			return nil, fmt.Errorf("scan vendor total: %w", err)
		}
		amount, err := decimalPtr(total)
		if err != nil {
			return nil, err
		}

		vt, ok := byVendor[vendorID]
		if !ok {
			vt = &domain.VendorTotal{VendorName: UnknownVendorName, NetValue: decimal.Zero}
			if name.Valid && name.String != "" {
				vt.VendorName = name.String
			}
			byVendor[vendorID] = vt
		}
		vt.InvoiceCount++
		if amount != nil {
			vt.NetValue = vt.NetValue.Add(*amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.VendorTotal, 0, len(byVendor))
	for _, vt := range byVendor {
		out = append(out, *vt)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].NetValue.Cmp(out[j].NetValue); c != 0 {
			return c > 0
		}
		return out[i].VendorName < out[j].VendorName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InvoiceAmountsByDate returns (invoice date, total) for invoices that have both.
func (r *InvoiceRepo) InvoiceAmountsByDate(ctx context.Context) ([]domain.InvoiceAmount, error) {
	return r.amounts(ctx, `
		SELECT invoice_date, invoice_total
		FROM invoices
		WHERE invoice_date IS NOT NULL AND invoice_total IS NOT NULL`)
}

// InvoiceAmountsByDueDate returns (payment due date, invoice total) pairs.
func (r *InvoiceRepo) InvoiceAmountsByDueDate(ctx context.Context) ([]domain.InvoiceAmount, error) {
	return r.amounts(ctx, `
		SELECT p.due_date, i.invoice_total
		FROM invoices i
		JOIN payments p ON p.id = i.payment_id
		WHERE p.due_date IS NOT NULL AND i.invoice_total IS NOT NULL`)
}

func (r *InvoiceRepo) amounts(ctx context.Context, query string) ([]domain.InvoiceAmount, error) {
	rows, err := r.readDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query invoice amounts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.InvoiceAmount
	for rows.Next() {
		var date, total string
		if err := rows.Scan(&date, &total); err != nil {
			return nil, fmt.Errorf("scan invoice amount: %w", err)
		}
		t, err := parseTime(date)
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", total, err)
		}
		out = append(out, domain.InvoiceAmount{Date: t, Amount: amount})
	}
	return out, rows.Err()
}

// LineItemAmounts returns (Sachkonto, total price) for priced line items.
func (r *InvoiceRepo) LineItemAmounts(ctx context.Context) ([]domain.LineItemAmount, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT COALESCE(sachkonto, ''), total_price
		FROM line_items
		WHERE total_price IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query line item amounts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.LineItemAmount
	for rows.Next() {
		var code, total string
		if err := rows.Scan(&code, &total); err != nil {
			return nil, fmt.Errorf("scan line item amount: %w", err)
		}
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", total, err)
		}
		out = append(out, domain.LineItemAmount{Sachkonto: code, Amount: amount})
	}
	return out, rows.Err()
}

// ListInvoices returns invoices newest first with their vendor, customer,
// payment, line items and files.
func (r *InvoiceRepo) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	query := `
		SELECT i.id, i.invoice_number, i.invoice_date, i.delivery_date,
			i.sub_total, i.total_tax, i.invoice_total, i.currency_symbol,
			i.vendor_id, i.customer_id, i.payment_id,
			v.vendor_name, v.vendor_party_number, v.vendor_address, v.vendor_tax_id,
			c.customer_name, c.customer_address,
			p.bank_account_number, p.payment_terms, p.net_days, p.due_date
		FROM invoices i
		LEFT JOIN vendors v ON v.id = i.vendor_id
		LEFT JOIN customers c ON c.id = i.customer_id
		LEFT JOIN payments p ON p.id = i.payment_id`

	var (
		where []string
		args  []any
	)
	if filter.VendorName != "" {
		where = append(where, `v.vendor_name LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(filter.VendorName))
	}
	if filter.CustomerName != "" {
		where = append(where, `c.customer_name LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(filter.CustomerName))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.invoice_date DESC, i.id DESC"

	rows, err := r.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var (
		out   []domain.Invoice
		ids   []any
		index = make(map[int64]int)
	)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		index[inv.ID] = len(out)
		ids = append(ids, inv.ID)
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []domain.Invoice{}, nil
	}

	if err := r.attachLineItems(ctx, out, ids, index); err != nil {
		return nil, err
	}
	if err := r.attachFiles(ctx, out, ids, index); err != nil {
		return nil, err
	}
	return out, nil
}

func scanInvoice(rows *sql.Rows) (*domain.Invoice, error) {
	var (
		inv                                 domain.Invoice
		number, invDate, delivDate          sql.NullString
		subTotal, totalTax, total, currency sql.NullString
		vendorID, customerID, paymentID     sql.NullInt64
		vName, vParty, vAddr, vTax          sql.NullString
		cName, cAddr                        sql.NullString
		pBank, pTerms, pDue                 sql.NullString
		pNetDays                            sql.NullInt64
	)
	if err := rows.Scan(&inv.ID, &number, &invDate, &delivDate,
		&subTotal, &totalTax, &total, &currency,
		&vendorID, &customerID, &paymentID,
		&vName, &vParty, &vAddr, &vTax,
		&cName, &cAddr,
		&pBank, &pTerms, &pNetDays, &pDue); err != nil {
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	var err error
	inv.InvoiceNumber = strPtr(number)
	inv.CurrencySymbol = strPtr(currency)
	if inv.InvoiceDate, err = timePtr(invDate); err != nil {
		return nil, err
	}
	if inv.DeliveryDate, err = timePtr(delivDate); err != nil {
		return nil, err
	}
	if inv.SubTotal, err = decimalPtr(subTotal); err != nil {
		return nil, err
	}
	if inv.TotalTax, err = decimalPtr(totalTax); err != nil {
		return nil, err
	}
	if inv.InvoiceTotal, err = decimalPtr(total); err != nil {
		return nil, err
	}
	inv.VendorID = int64Ptr(vendorID)
	inv.CustomerID = int64Ptr(customerID)
	inv.PaymentID = int64Ptr(paymentID)

	if vendorID.Valid && vName.Valid {
		inv.Vendor = &domain.Vendor{
			ID:                vendorID.Int64,
			VendorName:        vName.String,
			VendorPartyNumber: strPtr(vParty),
			VendorAddress:     strPtr(vAddr),
			VendorTaxID:       strPtr(vTax),
		}
	}
	if customerID.Valid && cName.Valid {
		inv.Customer = &domain.Customer{
			ID:              customerID.Int64,
			CustomerName:    cName.String,
			CustomerAddress: strPtr(cAddr),
		}
	}
	if paymentID.Valid {
		due, err := timePtr(pDue)
		if err != nil {
			return nil, err
		}
		inv.Payment = &domain.Payment{
			ID:                paymentID.Int64,
			BankAccountNumber: strPtr(pBank),
			PaymentTerms:      strPtr(pTerms),
			NetDays:           int64Ptr(pNetDays),
			DueDate:           due,
		}
	}
	inv.LineItems = []domain.LineItem{}
	inv.Files = []domain.File{}
	return &inv, nil
}

func (r *InvoiceRepo) attachLineItems(ctx context.Context, invoices []domain.Invoice, ids []any, index map[int64]int) error {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, invoice_id, sr_no, description, quantity, unit_price, total_price, sachkonto, bu_schluessel
		FROM line_items
		WHERE invoice_id IN (`+placeholders(len(ids))+`)
		ORDER BY invoice_id, sr_no, id`, ids...)
	if err != nil {
		return fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			li                           domain.LineItem
			srNo                         sql.NullInt64
			desc, qty, unit, total, code sql.NullString
			bu                           sql.NullString
		)
		if err := rows.Scan(&li.ID, &li.InvoiceID, &srNo, &desc, &qty, &unit, &total, &code, &bu); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		li.SrNo = int64Ptr(srNo)
		li.Description = strPtr(desc)
		li.Sachkonto = strPtr(code)
		li.BUSchluessel = strPtr(bu)
		if li.Quantity, err = decimalPtr(qty); err != nil {
			return err
		}
		if li.UnitPrice, err = decimalPtr(unit); err != nil {
			return err
		}
		if li.TotalPrice, err = decimalPtr(total); err != nil {
			return err
		}
		i := index[li.InvoiceID]
		invoices[i].LineItems = append(invoices[i].LineItems, li)
	}
	return rows.Err()
}

func (r *InvoiceRepo) attachFiles(ctx context.Context, invoices []domain.Invoice, ids []any, index map[int64]int) error {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, invoice_id, name, file_path, file_type, status, created_at, updated_at
		FROM files
		WHERE invoice_id IN (`+placeholders(len(ids))+`)
		ORDER BY invoice_id, id`, ids...)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			f                               domain.File
			path, typ, status, created, upd sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.InvoiceID, &f.Name, &path, &typ, &status, &created, &upd); err != nil {
			return fmt.Errorf("scan file: %w", err)
		}
		f.FilePath = strPtr(path)
		f.FileType = strPtr(typ)
		f.Status = strPtr(status)
		if f.CreatedAt, err = timePtr(created); err != nil {
			return err
		}
		if f.UpdatedAt, err = timePtr(upd); err != nil {
			return err
		}
		i := index[f.InvoiceID]
		invoices[i].Files = append(invoices[i].Files, f)
	}
	return rows.Err()
}

// CreateVendor inserts a vendor and returns it with its ID.
func (r *InvoiceRepo) CreateVendor(ctx context.Context, v *domain.Vendor) (*domain.Vendor, error) {
	if strings.TrimSpace(v.VendorName) == "" {
		return nil, domain.ErrValidation("vendor name is required")
	}
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO vendors (vendor_name, vendor_party_number, vendor_address, vendor_tax_id)
		VALUES (?, ?, ?, ?)`,
		v.VendorName, nullString(v.VendorPartyNumber), nullString(v.VendorAddress), nullString(v.VendorTaxID))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *v
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindVendorByName returns the first vendor with exactly this name.
func (r *InvoiceRepo) FindVendorByName(ctx context.Context, name string) (*domain.Vendor, error) {
	var (
		v                  domain.Vendor
		party, addr, taxID sql.NullString
	)
	err := r.writeDB.QueryRowContext(ctx, `
		SELECT id, vendor_name, vendor_party_number, vendor_address, vendor_tax_id
		FROM vendors WHERE vendor_name = ? ORDER BY id LIMIT 1`, name).
		Scan(&v.ID, &v.VendorName, &party, &addr, &taxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("vendor %q not found", name)
		}
		return nil, mapDBError(err)
	}
	v.VendorPartyNumber = strPtr(party)
	v.VendorAddress = strPtr(addr)
	v.VendorTaxID = strPtr(taxID)
	return &v, nil
}

// CreateCustomer inserts a customer and returns it with its ID.
func (r *InvoiceRepo) CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(c.CustomerName) == "" {
		return nil, domain.ErrValidation("customer name is required")
	}
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO customers (customer_name, customer_address) VALUES (?, ?)`,
		c.CustomerName, nullString(c.CustomerAddress))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *c
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment inserts payment terms and returns them with their ID.
func (r *InvoiceRepo) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO payments (bank_account_number, payment_terms, net_days, due_date)
		VALUES (?, ?, ?, ?)`,
		nullString(p.BankAccountNumber), nullString(p.PaymentTerms), nullInt64(p.NetDays), nullDate(p.DueDate))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *p
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvoice inserts the invoice row only; related records are created
// separately and referenced through VendorID, CustomerID and PaymentID.
func (r *InvoiceRepo) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO invoices (invoice_number, invoice_date, delivery_date, sub_total, total_tax,
			invoice_total, currency_symbol, vendor_id, customer_id, payment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(inv.InvoiceNumber), nullDate(inv.InvoiceDate), nullDate(inv.DeliveryDate),
		nullDecimal(inv.SubTotal), nullDecimal(inv.TotalTax), nullDecimal(inv.InvoiceTotal),
		nullString(inv.CurrencySymbol),
		nullInt64(inv.VendorID), nullInt64(inv.CustomerID), nullInt64(inv.PaymentID))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *inv
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLineItem inserts one invoice position.
func (r *InvoiceRepo) CreateLineItem(ctx context.Context, li *domain.LineItem) (*domain.LineItem, error) {
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO line_items (invoice_id, sr_no, description, quantity, unit_price, total_price, sachkonto, bu_schluessel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		li.InvoiceID, nullInt64(li.SrNo), nullString(li.Description),
		nullDecimal(li.Quantity), nullDecimal(li.UnitPrice), nullDecimal(li.TotalPrice),
		nullString(li.Sachkonto), nullString(li.BUSchluessel))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *li
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFile records the source document of an invoice.
func (r *InvoiceRepo) CreateFile(ctx context.Context, f *domain.File) (*domain.File, error) {
	name := f.Name
	if name == "" {
		name = "unknown"
	}
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO files (invoice_id, name, file_path, file_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.InvoiceID, name, nullString(f.FilePath), nullString(f.FileType), nullString(f.Status),
		nullTimestamp(f.CreatedAt), nullTimestamp(f.UpdatedAt))
	if err != nil {
		return nil, mapDBError(err)
	}
	out := *f
	out.Name = name
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &out, nil
}
