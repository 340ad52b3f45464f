package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/testutil"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, pool)
	store := NewStore(pool)

	t.Run("CreateOrder then GetOrder round-trips", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		holdID := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       2,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		created, err := store.CreateOrder(ctx, holdID, productID, 2, 1000)
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if created.Status != domain.OrderStatusPending {
			t.Fatalf("expected pending order, got %s", created.Status)
		}

		got, err := store.GetOrder(ctx, created.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.HoldID != holdID || got.AmountCents != 1000 {
			t.Fatalf("unexpected order: %+v", got)
		}
	})

	t.Run("CreateOrder rejects a second Order on the same Hold", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		holdID := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       2,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		if _, err := store.CreateOrder(ctx, holdID, productID, 2, 1000); err != nil {
			t.Fatalf("first create order: %v", err)
		}

		_, err := store.CreateOrder(ctx, holdID, productID, 2, 1000)
		if err != domain.ErrHoldAlreadyConsumed {
			t.Fatalf("expected ErrHoldAlreadyConsumed, got %v", err)
		}
	})

	t.Run("GetOrderByHoldID returns nil, nil when absent", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		holdID := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       1,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		o, err := store.GetOrderByHoldID(ctx, holdID)
		if err != nil {
			t.Fatalf("get order by hold id: %v", err)
		}
		if o != nil {
			t.Fatalf("expected nil order, got %+v", o)
		}
	})

	t.Run("UpdateOrderStatus transitions state", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		holdID := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusUsed,
			Qty:       2,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
		orderID := testutil.InsertOrder(t, ctx, pool, holdID, productID, 2, 1000, domain.OrderStatusPending)

		if err := store.UpdateOrderStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
			t.Fatalf("update order status: %v", err)
		}

		got, err := store.GetOrder(ctx, orderID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.Status != domain.OrderStatusPaid {
			t.Fatalf("expected Paid, got %s", got.Status)
		}
	})
}
