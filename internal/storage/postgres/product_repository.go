package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	pkgerrors "github.com/pkg/errors"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// CreateProduct seeds a Product with AvailableStock == TotalStock.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	const stmt = `
INSERT INTO products (id, name, total_stock, available_stock, price_cents)
VALUES (gen_random_uuid(), $1, $2, $2, $3)
RETURNING id`

	var id string
	err := s.queryRow(ctx, stmt, p.Name, p.TotalStock, p.PriceCents).Scan(&id)
	if err != nil {
		return domain.Product{}, pkgerrors.Wrap(classify(err), "create product")
	}
	p.ID = id
	p.AvailableStock = p.TotalStock
	return p, nil
}

// GetProduct reads a Product without locking (used by the GET
// endpoint and by read-mostly callers; stock is never cached).
func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	const query = `SELECT id, name, total_stock, available_stock, price_cents FROM products WHERE id = $1`
	var p domain.Product
	err := s.queryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.TotalStock, &p.AvailableStock, &p.PriceCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, pkgerrors.Wrap(classify(err), "get product")
	}
	return p, nil
}

// GetAvailableStock reads only the mutable stock column, for callers
// that already have a cached copy of the immutable name/price fields
// and only need the figure that is never safe to cache.
func (s *Store) GetAvailableStock(ctx context.Context, id string) (int, error) {
	const query = `SELECT available_stock FROM products WHERE id = $1`
	var stock int
	err := s.queryRow(ctx, query, id).Scan(&stock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrProductNotFound
		}
		return 0, pkgerrors.Wrap(classify(err), "get available stock")
	}
	return stock, nil
}

// LockProductForUpdate locks the Product row for the duration of the
// enclosing transaction (§4.A, §4.C step 1).
func (s *Store) LockProductForUpdate(ctx context.Context, id string) (domain.Product, error) {
	const query = `
SELECT id, name, total_stock, available_stock, price_cents
FROM products WHERE id = $1 FOR UPDATE`
	var p domain.Product
	err := s.queryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.TotalStock, &p.AvailableStock, &p.PriceCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, pkgerrors.Wrap(classify(err), "lock product")
	}
	return p, nil
}

// UpdateAvailableStock persists the new AvailableStock for a Product
// already locked by LockProductForUpdate within the same transaction.
func (s *Store) UpdateAvailableStock(ctx context.Context, productID string, availableStock int) error {
	const stmt = `UPDATE products SET available_stock = $2 WHERE id = $1`
	tag, err := s.exec(ctx, stmt, productID, availableStock)
	if err != nil {
		return pkgerrors.Wrap(classify(err), "update available stock")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
