package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/cache"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

type fakeProductQueryStore struct {
	product domain.Product
}

func (f *fakeProductQueryStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if f.product.ID != id {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return f.product, nil
}

func (f *fakeProductQueryStore) GetAvailableStock(ctx context.Context, id string) (int, error) {
	if f.product.ID != id {
		return 0, domain.ErrProductNotFound
	}
	return f.product.AvailableStock, nil
}

func TestProductQuery_NoCache_ReadsThroughToStore(t *testing.T) {
	store := &fakeProductQueryStore{product: domain.Product{ID: "prod-1", Name: "Widget", TotalStock: 10, AvailableStock: 6, PriceCents: 500}}
	query := NewProductQuery(store, nil)

	got, err := query.GetProduct(context.Background(), "prod-1")

	require.NoError(t, err)
	require.Equal(t, store.product, got)
}

func TestProductQuery_CacheMiss_PopulatesCache(t *testing.T) {
	store := &fakeProductQueryStore{product: domain.Product{ID: "prod-1", Name: "Widget", TotalStock: 10, AvailableStock: 6, PriceCents: 500}}
	db, mock := redismock.NewClientMock()
	productCache := cache.NewProductCache(db, 5*time.Second)
	query := NewProductQuery(store, productCache)

	view := cache.ProductView{ID: "prod-1", Name: "Widget", TotalStock: 10, PriceCents: 500}
	payload, err := json.Marshal(view)
	require.NoError(t, err)

	mock.ExpectGet("product:prod-1").RedisNil()
	mock.ExpectSet("product:prod-1", payload, 5*time.Second).SetVal("OK")

	got, err := query.GetProduct(context.Background(), "prod-1")

	require.NoError(t, err)
	require.Equal(t, store.product, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductQuery_CacheHit_StockStillReadFresh(t *testing.T) {
	store := &fakeProductQueryStore{product: domain.Product{ID: "prod-1", Name: "Widget", TotalStock: 10, AvailableStock: 2, PriceCents: 500}}
	db, mock := redismock.NewClientMock()
	productCache := cache.NewProductCache(db, 5*time.Second)
	query := NewProductQuery(store, productCache)

	view := cache.ProductView{ID: "prod-1", Name: "Widget", TotalStock: 10, PriceCents: 500}
	payload, err := json.Marshal(view)
	require.NoError(t, err)
	mock.ExpectGet("product:prod-1").SetVal(string(payload))

	// Stock drops after the view was cached; the cache must never serve it.
	store.product.AvailableStock = 0

	got, err := query.GetProduct(context.Background(), "prod-1")

	require.NoError(t, err)
	require.Equal(t, 0, got.AvailableStock, "available_stock must always be read fresh from the store")
	require.Equal(t, view.Name, got.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
