package payroll

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

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, employee_id, to_char(period_start, 'YYYY-MM-DD'), to_char(period_end, 'YYYY-MM-DD'),
	base_salary, allowances, overtime_hours, overtime_rate, gross_pay, tax_percent, other_deductions,
	net_pay, status, created_at, updated_at`

func (r *entryRepoPG) scanRow(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.PeriodStart, &e.PeriodEnd,
		&e.BaseSalary, &e.Allowances, &e.OvertimeHours, &e.OvertimeRate, &e.GrossPay, &e.TaxPercent,
		&e.OtherDeductions, &e.NetPay, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, resource.ErrNotFound
	}
	return &e, err
}

func (r *entryRepoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payroll (id, employee_id, period_start, period_end, base_salary, allowances,
			overtime_hours, overtime_rate, gross_pay, tax_percent, other_deductions, net_pay, status)
		VALUES ($1, $2, $3::date, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		e.ID, e.EmployeeID, e.PeriodStart, e.PeriodEnd, e.BaseSalary, e.Allowances,
		e.OvertimeHours, e.OvertimeRate, e.GrossPay, e.TaxPercent, e.OtherDeductions, e.NetPay, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return duplicatePeriod(err)
}

func (r *entryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM payroll WHERE id = $1`, id))
}

func (r *entryRepoPG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payroll SET employee_id=$2, period_start=$3::date, period_end=$4::date, base_salary=$5,
			allowances=$6, overtime_hours=$7, overtime_rate=$8, gross_pay=$9, tax_percent=$10,
			other_deductions=$11, net_pay=$12, status=$13, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.EmployeeID, e.PeriodStart, e.PeriodEnd, e.BaseSalary, e.Allowances,
		e.OvertimeHours, e.OvertimeRate, e.GrossPay, e.TaxPercent, e.OtherDeductions, e.NetPay, e.Status)
	if err != nil {
		return duplicatePeriod(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *entryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM payroll WHERE id = $1`, id)
	return err
}

func (r *entryRepoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payroll`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM payroll ORDER BY period_start DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func duplicatePeriod(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &resource.Error{Status: http.StatusConflict, Message: "Payroll for this employee and period already exists", Err: err}
	}
	if err != nil {
		return fmt.Errorf("save payroll: %w", err)
	}
	return nil
}
