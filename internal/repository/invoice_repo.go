package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/domain"
)

const invoiceColumns = `id, invoice_number, customer_id, customer_name, project_id, project_name,
	quotation_id, quotation_ref, payment_terms, delivery_terms, warranty_terms, notes,
	subtotal, total_tax_amount, total_service_charge_amount, total_amount, paid_amount, remaining_amount,
	status, issue_date, due_date, paid_date, created_at, updated_at`

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

// Commit inserts the invoice, its items and charges, and decrements stock
// for every stock-tracked product. If any product no longer has enough
// stock the whole transaction is rolled back with ErrStockConflict.
func (r *InvoiceRepo) Commit(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := insertInvoice(ctx, tx, invoice)
		if err != nil {
			return err
		}

		for i, item := range invoice.Items {
			if err := insertItem(ctx, tx, id, i, item); err != nil {
				return err
			}
		}

		charges := append(append([]domain.AdditionalCharge(nil), invoice.AdditionalTaxes...), invoice.AdditionalServiceCharges...)
		for i, c := range charges {
			if err := insertCharge(ctx, tx, id, i, c); err != nil {
				return err
			}
		}

		for _, res := range reservations(invoice.Items) {
			if err := adjustStock(ctx, tx, res.productID, -res.quantity); err != nil {
				return err
			}
		}

		invoice.ID = id
		return nil
	})
}

type reservation struct {
	productID int64
	quantity  int
}

// reservations sums tracked quantities per product, in first-seen order
func reservations(items []domain.LineItem) []reservation {
	out := make([]reservation, 0)
	index := make(map[int64]int)
	for _, item := range items {
		if !item.IsStockTracked {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, reservation{productID: item.ProductID, quantity: item.Quantity})
	}
	return out
}

func insertInvoice(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) (int64, error) {
	query := `
		INSERT INTO invoices (
			invoice_number, customer_id, customer_name, project_id, project_name,
			quotation_id, quotation_ref, payment_terms, delivery_terms, warranty_terms, notes,
			subtotal, total_tax_amount, total_service_charge_amount, total_amount, paid_amount, remaining_amount,
			status, issue_date, due_date, paid_date, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		inv.InvoiceNumber,
		inv.CustomerID,
		inv.CustomerName,
		nullableID(inv.ProjectID),
		inv.ProjectName,
		nullableID(inv.QuotationID),
		inv.QuotationRef,
		inv.PaymentTerms,
		inv.DeliveryTerms,
		inv.WarrantyTerms,
		inv.Notes,
		inv.Subtotal,
		inv.TotalTaxAmount,
		inv.TotalServiceChargeAmount,
		inv.TotalAmount,
		inv.PaidAmount,
		inv.RemainingAmount,
		string(inv.Status),
		inv.IssueDate.Format(timeLayout),
		nullableTime(&inv.DueDate),
		nullableTime(inv.PaidDate),
		inv.CreatedAt.Format(timeLayout),
		inv.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get invoice ID: %w", err)
	}
	return id, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, invoiceID int64, position int, item domain.LineItem) error {
	query := `
		INSERT INTO invoice_items (
			invoice_id, position, item_key, product_id, product_name, sku,
			main_category_name, sub_category_name, manufacturer, model_number,
			quantity, unit_price, discount_rate, tax_rate, service_charge_rate,
			discount_amount, tax_amount, service_charge_amount, total_price, is_stock_tracked
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		invoiceID,
		position,
		item.ID,
		item.ProductID,
		item.ProductName,
		item.SKU,
		item.MainCategoryName,
		item.SubCategoryName,
		item.Manufacturer,
		item.ModelNumber,
		item.Quantity,
		item.UnitPrice,
		item.DiscountRate,
		item.TaxRate,
		item.ServiceChargeRate,
		item.DiscountAmount,
		item.TaxAmount,
		item.ServiceChargeAmount,
		item.TotalPrice,
		item.IsStockTracked,
	)
	if err != nil {
		return fmt.Errorf("failed to add item %s: %w", item.ProductName, err)
	}
	return nil
}

func insertCharge(ctx context.Context, tx *sql.Tx, invoiceID int64, position int, c domain.AdditionalCharge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_charges (invoice_id, position, charge_key, kind, name, rate, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, invoiceID, position, c.ID, string(c.Kind), c.Name, c.Rate, c.Amount)
	if err != nil {
		return fmt.Errorf("failed to add charge %s: %w", c.Name, err)
	}
	return nil
}

// GetByID retrieves an invoice with its items and charges
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return r.getOne(ctx, row)
}

// GetByNumber retrieves an invoice by invoice number
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = ?`, number)
	return r.getOne(ctx, row)
}

func (r *InvoiceRepo) getOne(ctx context.Context, row *sql.Row) (*domain.Invoice, error) {
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invoice %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Items, err = r.items(ctx, invoice.ID); err != nil {
		return nil, err
	}
	if err := r.charges(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// List retrieves invoice headers (without items) with optional filters
func (r *InvoiceRepo) List(ctx context.Context, customerID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := make([]any, 0)

	if customerID != nil {
		query += " AND customer_id = ?"
		args = append(args, *customerID)
	}

	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}

	query += " ORDER BY issue_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// Update persists status and payment fields
func (r *InvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	if invoice.ID <= 0 {
		return errors.New("invoice ID is required")
	}

	invoice.UpdatedAt = time.Now()

	query := `
		UPDATE invoices
		SET status = ?, paid_amount = ?, remaining_amount = ?, paid_date = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(invoice.Status),
		invoice.PaidAmount,
		invoice.RemainingAmount,
		nullableTime(invoice.PaidDate),
		invoice.UpdatedAt.Format(timeLayout),
		invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	return affectedOne(result, "invoice")
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID int64) ([]domain.LineItem, error) {
	query := `
		SELECT item_key, product_id, product_name, sku, main_category_name, sub_category_name,
		       manufacturer, model_number, quantity, unit_price, discount_rate, tax_rate,
		       service_charge_rate, discount_amount, tax_amount, service_charge_amount,
		       total_price, is_stock_tracked
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		var sku, mainCategory, subCategory, manufacturer, model sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.ProductName,
			&sku,
			&mainCategory,
			&subCategory,
			&manufacturer,
			&model,
			&item.Quantity,
			&item.UnitPrice,
			&item.DiscountRate,
			&item.TaxRate,
			&item.ServiceChargeRate,
			&item.DiscountAmount,
			&item.TaxAmount,
			&item.ServiceChargeAmount,
			&item.TotalPrice,
			&item.IsStockTracked,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}

		item.SKU = sku.String
		item.MainCategoryName = mainCategory.String
		item.SubCategoryName = subCategory.String
		item.Manufacturer = manufacturer.String
		item.ModelNumber = model.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}
	return items, nil
}

func (r *InvoiceRepo) charges(ctx context.Context, invoice *domain.Invoice) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT charge_key, kind, name, rate, amount
		FROM invoice_charges
		WHERE invoice_id = ?
		ORDER BY position
	`, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to get invoice charges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.AdditionalCharge
		var kind string
		if err := rows.Scan(&c.ID, &kind, &c.Name, &c.Rate, &c.Amount); err != nil {
			return fmt.Errorf("failed to scan invoice charge: %w", err)
		}
		c.Kind = domain.ChargeKind(kind)

		if c.Kind == domain.ChargeKindTax {
			invoice.AdditionalTaxes = append(invoice.AdditionalTaxes, c)
		} else {
			invoice.AdditionalServiceCharges = append(invoice.AdditionalServiceCharges, c)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating invoice charges: %w", err)
	}
	return nil
}

// GetNextInvoiceNumber returns the number following the highest sequence
// used for the prefix and year, in "PREFIX-YEAR-SEQUENCE" form.
func (r *InvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	head := fmt.Sprintf("%s-%d-", prefix, year)

	rows, err := r.db.QueryContext(ctx,
		`SELECT invoice_number FROM invoices WHERE substr(invoice_number, 1, ?) = ?`,
		len(head), head,
	)
	if err != nil {
		return "", fmt.Errorf("failed to get invoice numbers: %w", err)
	}
	defer rows.Close()

	last := 0
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return "", fmt.Errorf("failed to scan invoice number: %w", err)
		}
		// Numbers that don't end in a plain sequence were entered by hand
		if seq, err := strconv.Atoi(strings.TrimPrefix(number, head)); err == nil && seq > last {
			last = seq
		}
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating invoice numbers: %w", err)
	}

	return domain.FormatInvoiceNumber(prefix, year, last+1), nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var projectID, quotationID sql.NullInt64
	var projectName, quotationRef, paymentTerms, deliveryTerms, warrantyTerms, notes sql.NullString
	var status, issueDate, createdAt, updatedAt string
	var dueDate, paidDate sql.NullString

	err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.CustomerID,
		&inv.CustomerName,
		&projectID,
		&projectName,
		&quotationID,
		&quotationRef,
		&paymentTerms,
		&deliveryTerms,
		&warrantyTerms,
		&notes,
		&inv.Subtotal,
		&inv.TotalTaxAmount,
		&inv.TotalServiceChargeAmount,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.RemainingAmount,
		&status,
		&issueDate,
		&dueDate,
		&paidDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.ProjectID = idFromNull(projectID)
	inv.ProjectName = projectName.String
	inv.QuotationID = idFromNull(quotationID)
	inv.QuotationRef = quotationRef.String
	inv.PaymentTerms = paymentTerms.String
	inv.DeliveryTerms = deliveryTerms.String
	inv.WarrantyTerms = warrantyTerms.String
	inv.Notes = notes.String
	inv.Status = domain.InvoiceStatus(status)

	if inv.IssueDate, err = parseTime(issueDate); err != nil {
		return nil, fmt.Errorf("failed to parse issue_date: %w", err)
	}
	due, err := parseNullTime(dueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if due != nil {
		inv.DueDate = *due
	}
	if inv.PaidDate, err = parseNullTime(paidDate); err != nil {
		return nil, fmt.Errorf("failed to parse paid_date: %w", err)
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return inv, nil
}
