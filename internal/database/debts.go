package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const debtColumns = `id, tab_id, customer_id, payment_id, original_amount, amount_due,
status, due_date, created_at, updated_at`

func scanDebt(row pgx.Row) (Debt, error) {
	var d Debt
	err := row.Scan(&d.ID, &d.TabID, &d.CustomerID, &d.PaymentID, &d.OriginalAmount,
		&d.AmountDue, &d.Status, &d.DueDate, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

type CreateDebtParams struct {
	TabID          uuid.UUID
	CustomerID     uuid.UUID
	PaymentID      pgtype.UUID
	OriginalAmount pgtype.Numeric
	AmountDue      pgtype.Numeric
	DueDate        pgtype.Timestamptz
}

func (q *Queries) CreateDebt(ctx context.Context, arg CreateDebtParams) (Debt, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO debts (tab_id, customer_id, payment_id, original_amount, amount_due, due_date)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+debtColumns,
		arg.TabID, arg.CustomerID, arg.PaymentID, arg.OriginalAmount, arg.AmountDue, arg.DueDate)
	return scanDebt(row)
}

func (q *Queries) GetDebt(ctx context.Context, id uuid.UUID) (Debt, error) {
	row := q.db.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = $1`, id)
	return scanDebt(row)
}

// GetDebtForUpdate locks the debt row for a collection read-modify-write.
func (q *Queries) GetDebtForUpdate(ctx context.Context, id uuid.UUID) (Debt, error) {
	row := q.db.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanDebt(row)
}

// GetDebtByPayment finds the fiado record implicitly created by an
// ON_ACCOUNT payment, for symmetric reversal on payment edit/delete.
func (q *Queries) GetDebtByPayment(ctx context.Context, paymentID uuid.UUID) (Debt, error) {
	row := q.db.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts WHERE payment_id = $1`, paymentID)
	return scanDebt(row)
}

func (q *Queries) ListDebtsByTab(ctx context.Context, tabID uuid.UUID) ([]Debt, error) {
	return q.listDebts(ctx, `SELECT `+debtColumns+` FROM debts WHERE tab_id = $1 ORDER BY created_at`, tabID)
}

func (q *Queries) ListDebtsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Debt, error) {
	return q.listDebts(ctx, `SELECT `+debtColumns+` FROM debts WHERE customer_id = $1 ORDER BY created_at`, customerID)
}

// ListOpenDebts returns every receivable still awaiting collection.
func (q *Queries) ListOpenDebts(ctx context.Context) ([]Debt, error) {
	return q.listDebts(ctx, `SELECT `+debtColumns+` FROM debts
WHERE status IN ('PENDING', 'PARTIALLY_PAID') ORDER BY created_at`)
}

func (q *Queries) listDebts(ctx context.Context, sql string, args ...any) ([]Debt, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debts []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

type UpdateDebtDueParams struct {
	ID        uuid.UUID
	AmountDue pgtype.Numeric
	Status    string
}

func (q *Queries) UpdateDebtDue(ctx context.Context, arg UpdateDebtDueParams) (Debt, error) {
	row := q.db.QueryRow(ctx, `
UPDATE debts SET amount_due = $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING `+debtColumns, arg.ID, arg.AmountDue, arg.Status)
	return scanDebt(row)
}

func (q *Queries) CancelDebt(ctx context.Context, id uuid.UUID) (Debt, error) {
	row := q.db.QueryRow(ctx, `
UPDATE debts SET status = 'CANCELLED', updated_at = now()
WHERE id = $1
RETURNING `+debtColumns, id)
	return scanDebt(row)
}

func (q *Queries) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM debts WHERE id = $1`, id)
	return err
}

func (q *Queries) DeleteDebtsByTab(ctx context.Context, tabID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM debts WHERE tab_id = $1`, tabID)
	return err
}

// CountOpenDebtsByTab counts PENDING / PARTIALLY_PAID debts on a tab.
func (q *Queries) CountOpenDebtsByTab(ctx context.Context, tabID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
SELECT COUNT(*) FROM debts
WHERE tab_id = $1 AND status IN ('PENDING', 'PARTIALLY_PAID')`, tabID).Scan(&count)
	return count, err
}

// SumOpenDebts totals the outstanding fiado book.
func (q *Queries) SumOpenDebts(ctx context.Context) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, `
SELECT COALESCE(SUM(amount_due), 0) FROM debts
WHERE status IN ('PENDING', 'PARTIALLY_PAID')`).Scan(&sum)
	return sum, err
}
