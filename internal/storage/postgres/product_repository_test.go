package postgres

import (
	"context"
	"testing"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/testutil"
)

func TestProductRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, pool)
	store := NewStore(pool)

	t.Run("CreateProduct seeds AvailableStock equal to TotalStock", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		p, err := store.CreateProduct(ctx, domain.Product{Name: "Widget", TotalStock: 25, PriceCents: 1999})
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		if p.ID == "" {
			t.Fatalf("expected generated id")
		}
		if p.AvailableStock != 25 {
			t.Fatalf("expected available stock 25, got %d", p.AvailableStock)
		}
	})

	t.Run("GetProduct returns ErrProductNotFound for missing id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := store.GetProduct(ctx, "00000000-0000-0000-0000-000000000000")
		if err != domain.ErrProductNotFound {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("UpdateAvailableStock persists new value", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)

		if err := store.UpdateAvailableStock(ctx, id, 4); err != nil {
			t.Fatalf("update stock: %v", err)
		}

		stock, err := store.GetAvailableStock(ctx, id)
		if err != nil {
			t.Fatalf("get available stock: %v", err)
		}
		if stock != 4 {
			t.Fatalf("expected stock 4, got %d", stock)
		}
	})

	t.Run("LockProductForUpdate within a transaction serializes concurrent writers", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)

		err := store.WithTransaction(ctx, func(txCtx context.Context) error {
			p, err := store.LockProductForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			return store.UpdateAvailableStock(txCtx, id, p.AvailableStock-3)
		})
		if err != nil {
			t.Fatalf("transaction: %v", err)
		}

		stock, err := store.GetAvailableStock(ctx, id)
		if err != nil {
			t.Fatalf("get available stock: %v", err)
		}
		if stock != 7 {
			t.Fatalf("expected stock 7, got %d", stock)
		}
	})
}
