package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, tab_id, customer_id, method, amount, status, amount_received,
change_amount, credit_captured, reference_number, processed_by, processed_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.TabID, &p.CustomerID, &p.Method, &p.Amount, &p.Status,
		&p.AmountReceived, &p.ChangeAmount, &p.CreditCaptured, &p.ReferenceNumber,
		&p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

type CreatePaymentParams struct {
	TabID           uuid.UUID
	CustomerID      pgtype.UUID
	Method          string
	Amount          pgtype.Numeric
	Status          string
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	CreditCaptured  pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO payments (tab_id, customer_id, method, amount, status, amount_received,
	change_amount, credit_captured, reference_number, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+paymentColumns,
		arg.TabID, arg.CustomerID, arg.Method, arg.Amount, arg.Status,
		arg.AmountReceived, arg.ChangeAmount, arg.CreditCaptured, arg.ReferenceNumber,
		arg.ProcessedBy)
	return scanPayment(row)
}

type GetPaymentParams struct {
	ID    uuid.UUID
	TabID uuid.UUID
}

func (q *Queries) GetPayment(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND tab_id = $2`,
		arg.ID, arg.TabID)
	return scanPayment(row)
}

func (q *Queries) ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE tab_id = $1 ORDER BY processed_at`, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type UpdatePaymentParams struct {
	ID              uuid.UUID
	Method          string
	Amount          pgtype.Numeric
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	CreditCaptured  pgtype.Numeric
	ReferenceNumber pgtype.Text
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
UPDATE payments SET method = $2, amount = $3, amount_received = $4, change_amount = $5,
	credit_captured = $6, reference_number = $7
WHERE id = $1
RETURNING `+paymentColumns,
		arg.ID, arg.Method, arg.Amount, arg.AmountReceived, arg.ChangeAmount,
		arg.CreditCaptured, arg.ReferenceNumber)
	return scanPayment(row)
}

func (q *Queries) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}

func (q *Queries) DeletePaymentsByTab(ctx context.Context, tabID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM payments WHERE tab_id = $1`, tabID)
	return err
}

func (q *Queries) CountPaymentsByTab(ctx context.Context, tabID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE tab_id = $1`, tabID).Scan(&count)
	return count, err
}

// PaymentMethodTotal is one row of the revenue-by-method report.
type PaymentMethodTotal struct {
	Method string
	Total  pgtype.Numeric
}

type SumPaymentsByMethodParams struct {
	From pgtype.Timestamptz
	To   pgtype.Timestamptz
}

func (q *Queries) SumPaymentsByMethod(ctx context.Context, arg SumPaymentsByMethodParams) ([]PaymentMethodTotal, error) {
	rows, err := q.db.Query(ctx, `
SELECT method, COALESCE(SUM(amount), 0) AS total
FROM payments
WHERE status = 'APPROVED'
  AND ($1::timestamptz IS NULL OR processed_at >= $1)
  AND ($2::timestamptz IS NULL OR processed_at < $2)
GROUP BY method
ORDER BY method`, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []PaymentMethodTotal
	for rows.Next() {
		var t PaymentMethodTotal
		if err := rows.Scan(&t.Method, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
