package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, number, active, status, created_at, updated_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Active, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) CreateTable(ctx context.Context, number int32) (Table, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO tables (number)
VALUES ($1)
RETURNING `+tableColumns, number)
	return scanTable(row)
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	return scanTable(row)
}

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type SetTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tables SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+tableColumns, arg.ID, arg.Status)
	return scanTable(row)
}

type SetTableActiveParams struct {
	ID     uuid.UUID
	Active bool
}

func (q *Queries) SetTableActive(ctx context.Context, arg SetTableActiveParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
UPDATE tables SET active = $2, updated_at = now()
WHERE id = $1
RETURNING `+tableColumns, arg.ID, arg.Active)
	return scanTable(row)
}

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tables WHERE id = $1`, id)
	return err
}
