package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/money"
)

// Tax persistence modes
const (
	taxModeNone     = "none"
	taxModeRate     = "rate"
	taxModeAbsolute = "absolute"
)

type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

// NextInvoiceNumber allocates the next per-workspace invoice number.
// The counter row is upserted so the first invoice of a workspace works
// without seeding. Allocation commits on its own: if the insert that follows
// fails, the number is gone and the sequence gets a gap. Keeping the counter
// row out of the insert transaction means concurrent creates in one
// workspace do not serialize on its lock; uniqueness is still enforced by
// the (workspace_id, invoice_number) index.
func (r *InvoiceRepository) NextInvoiceNumber(ctx context.Context, workspaceID uuid.UUID, prefix string) (string, error) {
	var n int64
	err := r.DB.QueryRow(ctx,
		`INSERT INTO invoice_counters(workspace_id, next_number)
		 VALUES($1, 2)
		 ON CONFLICT (workspace_id)
		 DO UPDATE SET next_number = invoice_counters.next_number + 1
		 RETURNING next_number - 1`, workspaceID,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("%s-%06d", prefix, n), nil
}

func taxColumns(inv *billing.Invoice) (mode string, rate decimal.Decimal) {
	switch p := inv.Tax.(type) {
	case billing.FlatRate:
		return taxModeRate, p.Rate
	case billing.AbsoluteTax:
		return taxModeAbsolute, decimal.Zero
	default:
		return taxModeNone, decimal.Zero
	}
}

func taxPolicyFromColumns(mode, rate, taxAmount, currency string) (billing.TaxPolicy, error) {
	switch mode {
	case taxModeRate:
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("stored tax rate %q: %w", rate, err)
		}
		return billing.FlatRate{Rate: d}, nil
	case taxModeAbsolute:
		m, err := money.Parse(taxAmount, currency)
		if err != nil {
			return nil, fmt.Errorf("stored tax amount %q: %w", taxAmount, err)
		}
		return billing.AbsoluteTax{Amount: m}, nil
	default:
		return billing.NoTax{}, nil
	}
}

// Create inserts a new invoice with its line items in one transaction.
// A duplicate (workspace, number) maps to ErrDuplicateInvoiceNumber and an
// unresolvable client reference to ErrClientNotFound.
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	mode, rate := taxColumns(inv)
	err = tx.QueryRow(ctx,
		`INSERT INTO invoices(
		    id, workspace_id, client_id, issuer_id, invoice_number, currency,
		    issue_date, due_date, status, tax_mode, tax_rate,
		    subtotal, tax_amount, discount_amount, total,
		    description, notes, terms, version)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		 RETURNING created_at, updated_at`,
		inv.ID, inv.WorkspaceID, inv.ClientID, inv.IssuerID, inv.InvoiceNumber,
		inv.Currency, inv.IssueDate, inv.DueDate, inv.Status, mode, rate.String(),
		inv.Totals.Subtotal.StringFixed(), inv.Totals.TaxAmount.StringFixed(),
		inv.Totals.DiscountAmount.StringFixed(), inv.Totals.Total.StringFixed(),
		inv.Description, inv.Notes, inv.Terms, inv.Version,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return mapInvoiceError(err)
	}

	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update saves the full invoice state under an optimistic version check.
// expectedVersion is the version the caller read; a mismatch returns
// billing.ErrStaleVersion and writes nothing.
func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice, expectedVersion int64) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	mode, rate := taxColumns(inv)
	var newVersion int64
	err = tx.QueryRow(ctx,
		`UPDATE invoices SET
		    client_id = $1, issue_date = $2, due_date = $3, status = $4,
		    tax_mode = $5, tax_rate = $6,
		    subtotal = $7, tax_amount = $8, discount_amount = $9, total = $10,
		    description = $11, notes = $12, terms = $13,
		    sent_at = $14, viewed_at = $15, paid_at = $16,
		    overdue_at = $17, cancelled_at = $18, refunded_at = $19,
		    version = version + 1, updated_at = NOW()
		 WHERE id = $20 AND workspace_id = $21 AND version = $22
		 RETURNING version`,
		inv.ClientID, inv.IssueDate, inv.DueDate, inv.Status,
		mode, rate.String(),
		inv.Totals.Subtotal.StringFixed(), inv.Totals.TaxAmount.StringFixed(),
		inv.Totals.DiscountAmount.StringFixed(), inv.Totals.Total.StringFixed(),
		inv.Description, inv.Notes, inv.Terms,
		inv.SentAt, inv.ViewedAt, inv.PaidAt,
		inv.OverdueAt, inv.CancelledAt, inv.RefundedAt,
		inv.ID, inv.WorkspaceID, expectedVersion,
	).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a stale version from a missing invoice.
		var exists bool
		if e := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM invoices WHERE id = $1 AND workspace_id = $2)`,
			inv.ID, inv.WorkspaceID).Scan(&exists); e != nil {
			return e
		}
		if exists {
			return billing.ErrStaleVersion
		}
		return ErrNotFound
	}
	if err != nil {
		return mapInvoiceError(err)
	}
	inv.Version = newVersion

	if _, err := tx.Exec(ctx,
		`DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, inv *billing.Invoice) error {
	for i, item := range inv.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO invoice_items(id, invoice_id, position, description, quantity, unit_price, amount, notes)
			 VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, inv.ID, i, item.Description, item.Quantity.String(),
			item.UnitPrice.StringFixed(), item.Amount.StringFixed(), item.Notes,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func mapInvoiceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if strings.Contains(pgErr.ConstraintName, "invoice_number") ||
				strings.Contains(pgErr.ConstraintName, "invoices_workspace_id") {
				return billing.ErrDuplicateInvoiceNumber
			}
		case "23503":
			if strings.Contains(pgErr.ConstraintName, "client") {
				return billing.ErrClientNotFound
			}
		}
	}
	return err
}

const invoiceColumns = `
	i.id, i.workspace_id, i.client_id, i.issuer_id, i.invoice_number,
	i.currency, i.issue_date, i.due_date, i.status,
	i.tax_mode, i.tax_rate::text, i.subtotal::text, i.tax_amount::text,
	i.discount_amount::text, i.total::text,
	i.description, i.notes, i.terms,
	i.sent_at, i.viewed_at, i.paid_at, i.overdue_at, i.cancelled_at, i.refunded_at,
	i.version, i.created_at, i.updated_at,
	COALESCE(c.name, '') AS client_name, COALESCE(c.email, '') AS client_email,
	COALESCE(u.name, '') AS issuer_name`

func scanInvoice(row pgx.Row) (*models.InvoiceWithClient, error) {
	var (
		inv       billing.Invoice
		out       models.InvoiceWithClient
		taxMode   string
		taxRate   string
		subtotal  string
		taxAmount string
		discount  string
		total     string
	)
	err := row.Scan(
		&inv.ID, &inv.WorkspaceID, &inv.ClientID, &inv.IssuerID, &inv.InvoiceNumber,
		&inv.Currency, &inv.IssueDate, &inv.DueDate, &inv.Status,
		&taxMode, &taxRate, &subtotal, &taxAmount, &discount, &total,
		&inv.Description, &inv.Notes, &inv.Terms,
		&inv.SentAt, &inv.ViewedAt, &inv.PaidAt, &inv.OverdueAt,
		&inv.CancelledAt, &inv.RefundedAt,
		&inv.Version, &inv.CreatedAt, &inv.UpdatedAt,
		&out.ClientName, &out.ClientEmail, &out.IssuerName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inv.Currency = strings.TrimSpace(inv.Currency)
	inv.Tax, err = taxPolicyFromColumns(taxMode, taxRate, taxAmount, inv.Currency)
	if err != nil {
		return nil, err
	}
	if inv.Totals.Subtotal, err = money.Parse(subtotal, inv.Currency); err != nil {
		return nil, err
	}
	if inv.Totals.TaxAmount, err = money.Parse(taxAmount, inv.Currency); err != nil {
		return nil, err
	}
	if inv.Totals.DiscountAmount, err = money.Parse(discount, inv.Currency); err != nil {
		return nil, err
	}
	if inv.Totals.Total, err = money.Parse(total, inv.Currency); err != nil {
		return nil, err
	}

	out.Invoice = &inv
	return &out, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, inv *billing.Invoice) error {
	rows, err := r.DB.Query(ctx,
		`SELECT id, description, quantity::text, unit_price::text, amount::text, notes
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, inv.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var items []billing.LineItem
	for rows.Next() {
		var (
			li       billing.LineItem
			quantity string
			price    string
			amount   string
		)
		if err := rows.Scan(&li.ID, &li.Description, &quantity, &price, &amount, &li.Notes); err != nil {
			return err
		}
		if li.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return err
		}
		if li.UnitPrice, err = money.Parse(price, inv.Currency); err != nil {
			return err
		}
		if li.Amount, err = money.Parse(amount, inv.Currency); err != nil {
			return err
		}
		items = append(items, li)
	}
	inv.Items = items
	return rows.Err()
}

// Get retrieves an invoice with its items and client display fields
func (r *InvoiceRepository) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.InvoiceWithClient, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices i
		 LEFT JOIN clients c ON i.client_id = c.id
		 LEFT JOIN users u ON i.issuer_id = u.id
		 WHERE i.workspace_id = $1 AND i.id = $2`, workspaceID, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv.Invoice); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByID retrieves an invoice by id alone, for the public view endpoint
// where no workspace scope is available.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InvoiceWithClient, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices i
		 LEFT JOIN clients c ON i.client_id = c.id
		 LEFT JOIN users u ON i.issuer_id = u.id
		 WHERE i.id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv.Invoice); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns workspace invoices, newest first, with optional status and
// issue date filters. Line items are loaded per invoice.
func (r *InvoiceRepository) List(ctx context.Context, workspaceID uuid.UUID, filter models.InvoiceFilter) ([]*models.InvoiceWithClient, error) {
	query := `SELECT ` + invoiceColumns + `
		 FROM invoices i
		 LEFT JOIN clients c ON i.client_id = c.id
		 LEFT JOIN users u ON i.issuer_id = u.id
		 WHERE i.workspace_id = $1`
	args := []interface{}{workspaceID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if filter.IssuedFrom != nil {
		args = append(args, *filter.IssuedFrom)
		query += fmt.Sprintf(" AND i.issue_date >= $%d", len(args))
	}
	if filter.IssuedTo != nil {
		args = append(args, *filter.IssuedTo)
		query += fmt.Sprintf(" AND i.issue_date <= $%d", len(args))
	}
	query += " ORDER BY i.created_at DESC"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.InvoiceWithClient
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		if err := r.loadItems(ctx, inv.Invoice); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// ListDue returns SENT and VIEWED invoices whose due date has passed, for
// the overdue sweep.
func (r *InvoiceRepository) ListDue(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]*models.InvoiceWithClient, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices i
		 LEFT JOIN clients c ON i.client_id = c.id
		 LEFT JOIN users u ON i.issuer_id = u.id
		 WHERE i.workspace_id = $1 AND i.status IN ('SENT', 'VIEWED') AND i.due_date < $2`,
		workspaceID, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.InvoiceWithClient
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Items must be loaded: the sweep saves these aggregates back, and a
	// save rewrites the item rows.
	for _, inv := range invoices {
		if err := r.loadItems(ctx, inv.Invoice); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// Delete removes an invoice. The service layer restricts this to drafts.
func (r *InvoiceRepository) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM invoices WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
