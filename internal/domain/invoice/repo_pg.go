package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practice/practice/internal/platform/db"
	"github.com/practice/practice/internal/platform/resource"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

func (r *invoiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `id, number, patient_id, to_char(invoice_date, 'YYYY-MM-DD'), to_char(due_date, 'YYYY-MM-DD'),
	items, discount_amount, tax_rate, subtotal, tax_amount, total, status, COALESCE(notes, ''),
	created_at, updated_at`

func (r *invoiceRepoPG) scanRow(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.PatientID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Items, &inv.DiscountAmount, &inv.TaxRate, &inv.Subtotal, &inv.TaxAmount, &inv.Total,
		&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, resource.ErrNotFound
	}
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (id, number, patient_id, invoice_date, due_date, items, discount_amount,
			tax_rate, subtotal, tax_amount, total, status, notes)
		VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
		RETURNING created_at, updated_at`,
		inv.ID, inv.Number, inv.PatientID, inv.InvoiceDate, inv.DueDate, inv.Items, inv.DiscountAmount,
		inv.TaxRate, inv.Subtotal, inv.TaxAmount, inv.Total, inv.Status, inv.Notes,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	return duplicateNumber(err, inv.Number)
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET number=$2, patient_id=$3, invoice_date=$4::date, due_date=$5::date, items=$6,
			discount_amount=$7, tax_rate=$8, subtotal=$9, tax_amount=$10, total=$11, status=$12,
			notes=NULLIF($13, ''), updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Number, inv.PatientID, inv.InvoiceDate, inv.DueDate, inv.Items, inv.DiscountAmount,
		inv.TaxRate, inv.Subtotal, inv.TaxAmount, inv.Total, inv.Status, inv.Notes)
	if err != nil {
		return duplicateNumber(err, inv.Number)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

func (r *invoiceRepoPG) List(ctx context.Context, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+invoiceCols+` FROM invoices ORDER BY invoice_date DESC, number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func duplicateNumber(err error, number string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &resource.Error{Status: http.StatusConflict, Message: fmt.Sprintf("Invoice number %s already exists", number), Err: err}
	}
	if err != nil {
		return fmt.Errorf("save invoice: %w", err)
	}
	return nil
}
