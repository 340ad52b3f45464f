package app

import (
	"context"
	"errors"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/tracing"
)

const defaultHoldTTL = 2 * time.Minute

// HoldStore is the slice of the Store the HoldEngine depends on.
type HoldStore interface {
	WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error
	LockProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	UpdateAvailableStock(ctx context.Context, productID string, availableStock int) error
	CreateHold(ctx context.Context, productID string, qty int, expiresAt, now time.Time) (domain.Hold, error)
}

type HoldEngine struct {
	store      HoldStore
	clock      clock.Clock
	holdTTL    time.Duration
	maxRetries int
	logger     logging.Logger
	metrics    *metrics.Registry
}

type HoldEngineOption func(*HoldEngine)

func WithHoldTTL(d time.Duration) HoldEngineOption {
	return func(e *HoldEngine) {
		if d > 0 {
			e.holdTTL = d
		}
	}
}

func WithHoldMaxRetries(n int) HoldEngineOption {
	return func(e *HoldEngine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func WithHoldLogger(l logging.Logger) HoldEngineOption {
	return func(e *HoldEngine) { e.logger = l }
}

func WithHoldMetrics(m *metrics.Registry) HoldEngineOption {
	return func(e *HoldEngine) { e.metrics = m }
}

func NewHoldEngine(store HoldStore, clk clock.Clock, opts ...HoldEngineOption) *HoldEngine {
	e := &HoldEngine{
		store:      store,
		clock:      clk,
		holdTTL:    defaultHoldTTL,
		maxRetries: 3,
		logger:     logging.New(false),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateHold implements spec.md §4.C: lock the Product row, check
// available stock, decrement it, and insert a new active Hold, all in
// one transaction.
func (e *HoldEngine) CreateHold(ctx context.Context, productID string, qty int) (domain.Hold, error) {
	ctx, span := tracing.StartSpan(ctx, "HoldEngine.CreateHold")
	defer span.End()

	if qty < 1 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}

	now := e.clock.Now()
	expiresAt := now.Add(e.holdTTL)
	var result domain.Hold

	err := e.store.WithTransactionRetry(ctx, e.maxRetries, func(txCtx context.Context) error {
		product, err := e.store.LockProductForUpdate(txCtx, productID)
		if err != nil {
			return err
		}
		if product.AvailableStock < qty {
			return domain.ErrInsufficientStock
		}
		if err := e.store.UpdateAvailableStock(txCtx, productID, product.AvailableStock-qty); err != nil {
			return err
		}
		hold, err := e.store.CreateHold(txCtx, productID, qty, expiresAt, now)
		if err != nil {
			return err
		}
		result = hold
		return nil
	})
	if err != nil {
		if e.metrics != nil && errors.Is(err, domain.ErrInsufficientStock) {
			e.metrics.HoldsInsufficient.Inc()
		}
		return domain.Hold{}, err
	}

	e.logger.Event("hold_created").
		Str("hold_id", result.ID).
		Str("product_id", productID).
		Int("qty", qty).
		Time("expires_at", result.ExpiresAt).
		Send()
	if e.metrics != nil {
		e.metrics.HoldsCreated.Inc()
	}
	return result, nil
}
