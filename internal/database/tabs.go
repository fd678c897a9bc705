package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tabColumns = `id, table_id, customer_id, status, items_subtotal, service_tax_percent,
service_tax_amount, discount_amount, amount_paid, amount_on_account, credit_applied,
outstanding_balance, cancel_reason, opened_by, created_at, updated_at, closed_at`

func scanTab(row pgx.Row) (Tab, error) {
	var t Tab
	err := row.Scan(
		&t.ID, &t.TableID, &t.CustomerID, &t.Status, &t.ItemsSubtotal, &t.ServiceTaxPercent,
		&t.ServiceTaxAmount, &t.DiscountAmount, &t.AmountPaid, &t.AmountOnAccount, &t.CreditApplied,
		&t.OutstandingBalance, &t.CancelReason, &t.OpenedBy, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt,
	)
	return t, err
}

type CreateTabParams struct {
	TableID           uuid.UUID
	CustomerID        pgtype.UUID
	ServiceTaxPercent pgtype.Numeric
	OpenedBy          uuid.UUID
}

func (q *Queries) CreateTab(ctx context.Context, arg CreateTabParams) (Tab, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO tabs (table_id, customer_id, service_tax_percent, opened_by)
VALUES ($1, $2, $3, $4)
RETURNING `+tabColumns,
		arg.TableID, arg.CustomerID, arg.ServiceTaxPercent, arg.OpenedBy)
	return scanTab(row)
}

func (q *Queries) GetTab(ctx context.Context, id uuid.UUID) (Tab, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tabColumns+` FROM tabs WHERE id = $1`, id)
	return scanTab(row)
}

// GetTabForUpdate locks the tab row (FOR NO KEY UPDATE) for the duration
// of the surrounding transaction. Every settlement-affecting operation
// must read the tab through this query.
func (q *Queries) GetTabForUpdate(ctx context.Context, id uuid.UUID) (Tab, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tabColumns+` FROM tabs WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanTab(row)
}

// GetOpenTabForTable returns the tab currently occupying a table, if any.
// OPEN, PARTIALLY_PAID, FULLY_PAID and ON_ACCOUNT all count as occupying.
func (q *Queries) GetOpenTabForTable(ctx context.Context, tableID uuid.UUID) (Tab, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+tabColumns+` FROM tabs
WHERE table_id = $1 AND status NOT IN ('CLOSED', 'CANCELLED')
ORDER BY created_at DESC
LIMIT 1`, tableID)
	return scanTab(row)
}

type ListTabsParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListTabs(ctx context.Context, arg ListTabsParams) ([]Tab, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+tabColumns+` FROM tabs
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tabs []Tab
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}

// UpdateTabTotalsParams carries every aggregate field plus the derived
// status. Services always write the full set after a recompute so a tab
// row can never hold a mix of old and new aggregates.
type UpdateTabTotalsParams struct {
	ID                 uuid.UUID
	ItemsSubtotal      pgtype.Numeric
	ServiceTaxPercent  pgtype.Numeric
	ServiceTaxAmount   pgtype.Numeric
	DiscountAmount     pgtype.Numeric
	AmountPaid         pgtype.Numeric
	AmountOnAccount    pgtype.Numeric
	CreditApplied      pgtype.Numeric
	OutstandingBalance pgtype.Numeric
	Status             string
}

func (q *Queries) UpdateTabTotals(ctx context.Context, arg UpdateTabTotalsParams) (Tab, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tabs SET
	items_subtotal = $2,
	service_tax_percent = $3,
	service_tax_amount = $4,
	discount_amount = $5,
	amount_paid = $6,
	amount_on_account = $7,
	credit_applied = $8,
	outstanding_balance = $9,
	status = $10,
	updated_at = now()
WHERE id = $1
RETURNING `+tabColumns,
		arg.ID, arg.ItemsSubtotal, arg.ServiceTaxPercent, arg.ServiceTaxAmount,
		arg.DiscountAmount, arg.AmountPaid, arg.AmountOnAccount, arg.CreditApplied,
		arg.OutstandingBalance, arg.Status)
	return scanTab(row)
}

type SetTabCustomerParams struct {
	ID         uuid.UUID
	CustomerID pgtype.UUID
}

func (q *Queries) SetTabCustomer(ctx context.Context, arg SetTabCustomerParams) (Tab, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tabs SET customer_id = $2, updated_at = now()
WHERE id = $1
RETURNING `+tabColumns, arg.ID, arg.CustomerID)
	return scanTab(row)
}

func (q *Queries) CloseTab(ctx context.Context, id uuid.UUID) (Tab, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tabs SET status = 'CLOSED', closed_at = now(), updated_at = now()
WHERE id = $1
RETURNING `+tabColumns, id)
	return scanTab(row)
}

type CancelTabParams struct {
	ID           uuid.UUID
	CancelReason string
}

func (q *Queries) CancelTab(ctx context.Context, arg CancelTabParams) (Tab, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tabs SET status = 'CANCELLED', cancel_reason = $2, updated_at = now()
WHERE id = $1
RETURNING `+tabColumns, arg.ID, arg.CancelReason)
	return scanTab(row)
}

func (q *Queries) SetTabStatus(ctx context.Context, id uuid.UUID, status string) (Tab, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tabs SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+tabColumns, id, status)
	return scanTab(row)
}

func (q *Queries) DeleteTab(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tabs WHERE id = $1`, id)
	return err
}
