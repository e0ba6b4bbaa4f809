package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	// GetProduct returns nil, nil when the product does not exist.
	GetProduct(ctx context.Context, id string) (*Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const getProductSQL = `SELECT id, slug, name, price_minor_units, stock_qty, in_stock, status, images
FROM products WHERE id = $1`

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	var (
		p      Product
		status string
	)
	err := r.pool.QueryRow(ctx, getProductSQL, id).Scan(
		&p.ID, &p.Slug, &p.Name, &p.PriceMinorUnits, &p.StockQty, &p.InStock, &status, &p.Images,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	p.Status = ProductStatus(status)
	return &p, nil
}
