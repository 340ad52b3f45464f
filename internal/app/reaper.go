package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/lease"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/tracing"
)

// ReaperStore is the slice of the Store the ExpiryReaper depends on.
type ReaperStore interface {
	WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error
	ListExpiredActiveHolds(ctx context.Context, now time.Time, afterID string, pageSize int) ([]domain.Hold, error)
	LockHoldForUpdate(ctx context.Context, id string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, now time.Time) error
	LockProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	UpdateAvailableStock(ctx context.Context, productID string, availableStock int) error
}

const (
	defaultReaperPageSize    = 100
	defaultReaperConcurrency = 8
	defaultReaperMaxRetries  = 3
)

// ExpiryReaper implements spec.md §4.F: periodically scan Holds whose
// TTL elapsed while still active, and return their reserved quantity
// to the owning Product. Mutual exclusion across reaper instances is
// delegated to a Lease; correctness does not depend on it, since every
// candidate is re-locked and re-checked inside its own transaction.
type ExpiryReaper struct {
	store       ReaperStore
	clock       clock.Clock
	lease       lease.Lease
	pageSize    int
	concurrency int
	maxRetries  int
	logger      logging.Logger
	metrics     *metrics.Registry
}

type ReaperOption func(*ExpiryReaper)

func WithReaperPageSize(n int) ReaperOption {
	return func(r *ExpiryReaper) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

func WithReaperConcurrency(n int) ReaperOption {
	return func(r *ExpiryReaper) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithReaperLogger(l logging.Logger) ReaperOption {
	return func(r *ExpiryReaper) { r.logger = l }
}

func WithReaperMetrics(m *metrics.Registry) ReaperOption {
	return func(r *ExpiryReaper) { r.metrics = m }
}

func NewExpiryReaper(store ReaperStore, clk clock.Clock, ls lease.Lease, opts ...ReaperOption) *ExpiryReaper {
	r := &ExpiryReaper{
		store:       store,
		clock:       clk,
		lease:       ls,
		pageSize:    defaultReaperPageSize,
		concurrency: defaultReaperConcurrency,
		maxRetries:  defaultReaperMaxRetries,
		logger:      logging.New(false),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce sweeps every expired active Hold once, paging by id. It
// takes the lease for the duration of the sweep and releases it
// before returning.
func (r *ExpiryReaper) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ExpiryReaper.RunOnce")
	defer span.End()

	release, err := r.lease.Acquire(ctx, "expiry-reaper")
	if err != nil {
		return 0, err
	}
	defer release()

	now := r.clock.Now()
	afterID := ""
	total := 0

	for {
		page, err := r.store.ListExpiredActiveHolds(ctx, now, afterID, r.pageSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}

		reaped, err := r.reapPage(ctx, page, now)
		total += reaped
		if err != nil {
			return total, err
		}

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			return total, nil
		}
	}
}

func (r *ExpiryReaper) reapPage(ctx context.Context, holds []domain.Hold, now time.Time) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	reaped := make([]bool, len(holds))
	for i, h := range holds {
		i, h := i, h
		g.Go(func() error {
			ok, err := r.reapOne(gctx, h.ID, now)
			if err != nil {
				return err
			}
			reaped[i] = ok
			return nil
		})
	}

	err := g.Wait()
	count := 0
	for _, ok := range reaped {
		if ok {
			count++
		}
	}
	return count, err
}

// reapOne implements §4.F steps 1-5 for a single Hold. It reports
// false, not an error, when another actor already won the race.
func (r *ExpiryReaper) reapOne(ctx context.Context, holdID string, now time.Time) (bool, error) {
	reaped := false
	err := r.store.WithTransactionRetry(ctx, r.maxRetries, func(txCtx context.Context) error {
		hold, err := r.store.LockHoldForUpdate(txCtx, holdID)
		if err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				return nil
			}
			return err
		}
		if hold.Status != domain.HoldStatusActive || hold.ExpiresAt.After(now) {
			return nil
		}

		product, err := r.store.LockProductForUpdate(txCtx, hold.ProductID)
		if err != nil {
			return err
		}
		if err := r.store.UpdateAvailableStock(txCtx, product.ID, product.AvailableStock+hold.Qty); err != nil {
			return err
		}
		if err := r.store.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusExpired, now); err != nil {
			return err
		}

		reaped = true
		r.logger.Event("hold_expired").
			Str("hold_id", hold.ID).
			Str("product_id", hold.ProductID).
			Int("qty", hold.Qty).
			Send()
		if r.metrics != nil {
			r.metrics.HoldsExpired.Inc()
		}
		return nil
	})
	return reaped, err
}
