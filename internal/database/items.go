package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tabItemColumns = `id, tab_id, product_id, quantity, unit_price, line_total, notes, created_at, updated_at`

func scanTabItem(row pgx.Row) (TabItem, error) {
	var i TabItem
	err := row.Scan(&i.ID, &i.TabID, &i.ProductID, &i.Quantity, &i.UnitPrice, &i.LineTotal,
		&i.Notes, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type CreateTabItemParams struct {
	TabID     uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	LineTotal pgtype.Numeric
	Notes     pgtype.Text
}

func (q *Queries) CreateTabItem(ctx context.Context, arg CreateTabItemParams) (TabItem, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO tab_items (tab_id, product_id, quantity, unit_price, line_total, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+tabItemColumns,
		arg.TabID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.LineTotal, arg.Notes)
	return scanTabItem(row)
}

type GetTabItemParams struct {
	ID    uuid.UUID
	TabID uuid.UUID
}

func (q *Queries) GetTabItem(ctx context.Context, arg GetTabItemParams) (TabItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+tabItemColumns+` FROM tab_items WHERE id = $1 AND tab_id = $2`,
		arg.ID, arg.TabID)
	return scanTabItem(row)
}

func (q *Queries) ListTabItems(ctx context.Context, tabID uuid.UUID) ([]TabItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tabItemColumns+` FROM tab_items WHERE tab_id = $1 ORDER BY created_at`, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TabItem
	for rows.Next() {
		i, err := scanTabItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateTabItemParams struct {
	ID        uuid.UUID
	Quantity  int32
	LineTotal pgtype.Numeric
	Notes     pgtype.Text
}

func (q *Queries) UpdateTabItem(ctx context.Context, arg UpdateTabItemParams) (TabItem, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tab_items SET quantity = $2, line_total = $3, notes = $4, updated_at = now()
WHERE id = $1
RETURNING `+tabItemColumns,
		arg.ID, arg.Quantity, arg.LineTotal, arg.Notes)
	return scanTabItem(row)
}

func (q *Queries) DeleteTabItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tab_items WHERE id = $1`, id)
	return err
}

func (q *Queries) DeleteTabItemsByTab(ctx context.Context, tabID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tab_items WHERE tab_id = $1`, tabID)
	return err
}

// SumTabItems re-derives the items subtotal from storage. Recompute after
// an item mutation always goes through this query rather than applying a
// delta, so concurrent item operations can never drift the subtotal.
func (q *Queries) SumTabItems(ctx context.Context, tabID uuid.UUID) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(line_total), 0) FROM tab_items WHERE tab_id = $1`, tabID).Scan(&sum)
	return sum, err
}

func (q *Queries) CountTabItems(ctx context.Context, tabID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tab_items WHERE tab_id = $1`, tabID).Scan(&count)
	return count, err
}
