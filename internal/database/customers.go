package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, name, phone, credit_balance, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateCustomerParams struct {
	Name  string
	Phone pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO customers (name, phone)
VALUES ($1, $2)
RETURNING `+customerColumns, arg.Name, arg.Phone)
	return scanCustomer(row)
}

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// GetCustomerForUpdate locks the customer row so concurrent credit
// operations serialize instead of reading a stale balance.
func (q *Queries) GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanCustomer(row)
}

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

type UpdateCustomerParams struct {
	ID    uuid.UUID
	Name  string
	Phone pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
UPDATE customers SET name = $2, phone = $3, updated_at = now()
WHERE id = $1
RETURNING `+customerColumns, arg.ID, arg.Name, arg.Phone)
	return scanCustomer(row)
}

type UpdateCustomerCreditParams struct {
	ID            uuid.UUID
	CreditBalance pgtype.Numeric
}

func (q *Queries) UpdateCustomerCredit(ctx context.Context, arg UpdateCustomerCreditParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
UPDATE customers SET credit_balance = $2, updated_at = now()
WHERE id = $1
RETURNING `+customerColumns, arg.ID, arg.CreditBalance)
	return scanCustomer(row)
}

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}
