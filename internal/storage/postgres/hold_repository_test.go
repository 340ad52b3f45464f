package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/testutil"
)

func TestHoldRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, pool)
	store := NewStore(pool)

	t.Run("CreateHold then GetHold round-trips", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		now := time.Now().UTC().Truncate(time.Microsecond)

		created, err := store.CreateHold(ctx, productID, 3, now.Add(10*time.Minute), now)
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}

		got, err := store.GetHold(ctx, created.ID)
		if err != nil {
			t.Fatalf("get hold: %v", err)
		}
		if got.Status != domain.HoldStatusActive || got.Qty != 3 || got.ProductID != productID {
			t.Fatalf("unexpected hold: %+v", got)
		}
	})

	t.Run("GetHold returns ErrHoldNotFound for missing id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := store.GetHold(ctx, "00000000-0000-0000-0000-000000000000")
		if err != domain.ErrHoldNotFound {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
	})

	t.Run("UpdateHoldStatus transitions state", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		holdID := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       2,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		if err := store.UpdateHoldStatus(ctx, holdID, domain.HoldStatusUsed, time.Now().UTC()); err != nil {
			t.Fatalf("update status: %v", err)
		}

		got, err := store.GetHold(ctx, holdID)
		if err != nil {
			t.Fatalf("get hold: %v", err)
		}
		if got.Status != domain.HoldStatusUsed {
			t.Fatalf("expected Used, got %s", got.Status)
		}
	})

	t.Run("ListExpiredActiveHolds only returns expired active holds, paged by id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "Widget", 10, 500)
		now := time.Now().UTC()

		expiredActive := testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       1,
			ExpiresAt: now.Add(-1 * time.Minute),
		})
		testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusActive,
			Qty:       1,
			ExpiresAt: now.Add(5 * time.Minute),
		})
		testutil.InsertHold(t, ctx, pool, productID, domain.Hold{
			Status:    domain.HoldStatusUsed,
			Qty:       1,
			ExpiresAt: now.Add(-1 * time.Minute),
		})

		holds, err := store.ListExpiredActiveHolds(ctx, now, "", 10)
		if err != nil {
			t.Fatalf("list expired holds: %v", err)
		}
		if len(holds) != 1 || holds[0].ID != expiredActive {
			t.Fatalf("expected exactly the expired active hold, got %+v", holds)
		}
	})
}
