package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

type noopLease struct{}

func (noopLease) Acquire(ctx context.Context, name string) (func(), error) {
	return func() {}, nil
}

type fakeReaperStore struct {
	holds    map[string]domain.Hold
	products map[string]domain.Product
}

func newFakeReaperStore(holds []domain.Hold, products []domain.Product) *fakeReaperStore {
	s := &fakeReaperStore{holds: map[string]domain.Hold{}, products: map[string]domain.Product{}}
	for _, h := range holds {
		s.holds[h.ID] = h
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeReaperStore) WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *fakeReaperStore) ListExpiredActiveHolds(ctx context.Context, now time.Time, afterID string, pageSize int) ([]domain.Hold, error) {
	var page []domain.Hold
	for _, h := range s.holds {
		if h.Status == domain.HoldStatusActive && h.ExpiresAt.Before(now) && h.ID > afterID {
			page = append(page, h)
		}
	}
	if len(page) > pageSize {
		page = page[:pageSize]
	}
	return page, nil
}

func (s *fakeReaperStore) LockHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	h, ok := s.holds[id]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (s *fakeReaperStore) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, now time.Time) error {
	h := s.holds[id]
	h.Status = status
	h.UpdatedAt = now
	s.holds[id] = h
	return nil
}

func (s *fakeReaperStore) LockProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *fakeReaperStore) UpdateAvailableStock(ctx context.Context, productID string, availableStock int) error {
	p := s.products[productID]
	p.AvailableStock = availableStock
	s.products[productID] = p
	return nil
}

func TestExpiryReaper_RestoresStockForExpiredHolds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeReaperStore(
		[]domain.Hold{
			{ID: "hold-1", ProductID: "prod-1", Qty: 3, Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute)},
			{ID: "hold-2", ProductID: "prod-1", Qty: 2, Status: domain.HoldStatusActive, ExpiresAt: now.Add(time.Minute)},
		},
		[]domain.Product{{ID: "prod-1", TotalStock: 10, AvailableStock: 5}},
	)
	reaper := NewExpiryReaper(store, clock.NewFixed(now), noopLease{})

	reaped, err := reaper.RunOnce(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, reaped)
	require.Equal(t, domain.HoldStatusExpired, store.holds["hold-1"].Status)
	require.Equal(t, domain.HoldStatusActive, store.holds["hold-2"].Status, "unexpired holds must be left alone")
	require.Equal(t, 8, store.products["prod-1"].AvailableStock)
}

func TestExpiryReaper_SkipsAlreadyResolvedHolds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeReaperStore(
		[]domain.Hold{
			{ID: "hold-1", ProductID: "prod-1", Qty: 3, Status: domain.HoldStatusUsed, ExpiresAt: now.Add(-time.Minute)},
		},
		[]domain.Product{{ID: "prod-1", TotalStock: 10, AvailableStock: 5}},
	)
	reaper := NewExpiryReaper(store, clock.NewFixed(now), noopLease{})

	reaped, err := reaper.RunOnce(context.Background())

	require.NoError(t, err)
	require.Equal(t, 0, reaped, "a hold already consumed by an order must not be reaped")
	require.Equal(t, 5, store.products["prod-1"].AvailableStock)
}

func TestExpiryReaper_NoExpiredHolds_IsNoop(t *testing.T) {
	now := time.Now()
	store := newFakeReaperStore(nil, nil)
	reaper := NewExpiryReaper(store, clock.NewFixed(now), noopLease{})

	reaped, err := reaper.RunOnce(context.Background())

	require.NoError(t, err)
	require.Equal(t, 0, reaped)
}
