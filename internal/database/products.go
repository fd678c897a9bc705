package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, price, available, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreateProductParams struct {
	Name      string
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO products (name, price, available)
VALUES ($1, $2, $3)
RETURNING `+productColumns, arg.Name, arg.Price, arg.Available)
	return scanProduct(row)
}

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetProductForSaleRow is the narrow product view the item-line engine
// needs: current price and whether the product may be sold.
type GetProductForSaleRow struct {
	ID        uuid.UUID
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) GetProductForSale(ctx context.Context, id uuid.UUID) (GetProductForSaleRow, error) {
	var r GetProductForSaleRow
	err := q.db.QueryRow(ctx,
		`SELECT id, price, available FROM products WHERE id = $1`, id).
		Scan(&r.ID, &r.Price, &r.Available)
	return r, err
}

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type UpdateProductParams struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
UPDATE products SET name = $2, price = $3, available = $4, updated_at = now()
WHERE id = $1
RETURNING `+productColumns, arg.ID, arg.Name, arg.Price, arg.Available)
	return scanProduct(row)
}

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}
