package app

import (
	"context"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/tracing"
)

// OrderStore is the slice of the Store the OrderEngine depends on.
type OrderStore interface {
	WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error
	LockHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, now time.Time) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateOrder(ctx context.Context, holdID, productID string, qty int, amountCents int64) (domain.Order, error)
}

type OrderEngine struct {
	store      OrderStore
	clock      clock.Clock
	maxRetries int
	logger     logging.Logger
	metrics    *metrics.Registry
}

type OrderEngineOption func(*OrderEngine)

func WithOrderMaxRetries(n int) OrderEngineOption {
	return func(e *OrderEngine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func WithOrderLogger(l logging.Logger) OrderEngineOption {
	return func(e *OrderEngine) { e.logger = l }
}

func WithOrderMetrics(m *metrics.Registry) OrderEngineOption {
	return func(e *OrderEngine) { e.metrics = m }
}

func NewOrderEngine(store OrderStore, clk clock.Clock, opts ...OrderEngineOption) *OrderEngine {
	e := &OrderEngine{store: store, clock: clk, maxRetries: 3, logger: logging.New(false)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder implements spec.md §4.D: lock the Hold, validate it is
// still active and unexpired, read the Product's current price, and
// insert a pending Order, then mark the Hold used. Stock is not
// touched here; the Hold already holds the reservation.
func (e *OrderEngine) CreateOrder(ctx context.Context, holdID string) (domain.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderEngine.CreateOrder")
	defer span.End()

	now := e.clock.Now()
	var result domain.Order

	err := e.store.WithTransactionRetry(ctx, e.maxRetries, func(txCtx context.Context) error {
		hold, err := e.store.LockHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if !hold.Usable(now) {
			return domain.ErrHoldNotUsable
		}

		product, err := e.store.GetProduct(txCtx, hold.ProductID)
		if err != nil {
			return err
		}

		amountCents := product.PriceCents * int64(hold.Qty)
		order, err := e.store.CreateOrder(txCtx, hold.ID, hold.ProductID, hold.Qty, amountCents)
		if err != nil {
			return err
		}
		if err := e.store.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusUsed, now); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if e.metrics != nil {
		e.metrics.OrdersCreated.Inc()
	}
	return result, nil
}
