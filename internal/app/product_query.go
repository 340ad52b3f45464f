package app

import (
	"context"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/cache"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// ProductQueryStore is the slice of the Store ProductQuery depends on.
type ProductQueryStore interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	GetAvailableStock(ctx context.Context, id string) (int, error)
}

// ProductQuery answers read-only Product lookups with a cache-aside
// read of the immutable name/price fields; available_stock is always
// read fresh, per spec.md §5 ("stock is never read from cache").
type ProductQuery struct {
	store ProductQueryStore
	cache *cache.ProductCache
}

func NewProductQuery(store ProductQueryStore, productCache *cache.ProductCache) *ProductQuery {
	return &ProductQuery{store: store, cache: productCache}
}

func (q *ProductQuery) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if q.cache == nil {
		return q.store.GetProduct(ctx, id)
	}

	view, hit, err := q.cache.Get(ctx, id)
	if err != nil || !hit {
		product, err := q.store.GetProduct(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		_ = q.cache.Set(ctx, cache.ProductView{ID: product.ID, Name: product.Name, TotalStock: product.TotalStock, PriceCents: product.PriceCents})
		return product, nil
	}

	stock, err := q.store.GetAvailableStock(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:             view.ID,
		Name:           view.Name,
		TotalStock:     view.TotalStock,
		PriceCents:     view.PriceCents,
		AvailableStock: stock,
	}, nil
}
