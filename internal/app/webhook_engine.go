package app

import (
	"context"
	"errors"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/storage/postgres"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/tracing"
)

// errWebhookRace is returned internally by attempt when CreateWebhook
// reports postgres.ErrAlreadyRecorded, i.e. a concurrent first-time
// insert won the unique-key race; the handler must retry from the top
// so it enters the replay path.
var errWebhookRace = errors.New("webhook race, retry")

// WebhookStore is the slice of the Store the WebhookEngine depends on.
type WebhookStore interface {
	WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error
	FindWebhookByKey(ctx context.Context, key string) (*domain.PaymentWebhook, error)
	CreateWebhook(ctx context.Context, key, orderID string, result domain.WebhookResult, payload []byte, now time.Time) error
	LockOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	LockHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, now time.Time) error
	LockProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	UpdateAvailableStock(ctx context.Context, productID string, availableStock int) error
}

type WebhookEngine struct {
	store          WebhookStore
	clock          clock.Clock
	maxRetries     int
	maxRaceRetries int
	logger         logging.Logger
	metrics        *metrics.Registry
}

type WebhookEngineOption func(*WebhookEngine)

func WithWebhookMaxRetries(n int) WebhookEngineOption {
	return func(e *WebhookEngine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func WithWebhookLogger(l logging.Logger) WebhookEngineOption {
	return func(e *WebhookEngine) { e.logger = l }
}

func WithWebhookMetrics(m *metrics.Registry) WebhookEngineOption {
	return func(e *WebhookEngine) { e.metrics = m }
}

func NewWebhookEngine(store WebhookStore, clk clock.Clock, opts ...WebhookEngineOption) *WebhookEngine {
	e := &WebhookEngine{store: store, clock: clk, maxRetries: 3, maxRaceRetries: 3, logger: logging.New(false)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type HandleWebhookResult struct {
	OrderID        string
	OrderStatus    domain.OrderStatus
	IdempotencyKey string
}

// HandleWebhook implements spec.md §4.E. The unique-key race between
// two concurrent first-time deliveries is handled by retrying the
// whole handler (not just the insert): the losing transaction sees
// errWebhookRace, the outer loop re-enters at the top and takes the
// replay path on re-read.
func (e *WebhookEngine) HandleWebhook(ctx context.Context, idempotencyKey, orderID string, result domain.WebhookResult, payload []byte) (HandleWebhookResult, error) {
	ctx, span := tracing.StartSpan(ctx, "WebhookEngine.HandleWebhook")
	defer span.End()

	if idempotencyKey == "" {
		return HandleWebhookResult{}, domain.ErrIdempotencyKeyRequired
	}

	var out HandleWebhookResult
	for attempt := 0; attempt < e.maxRaceRetries; attempt++ {
		handled, err := e.attempt(ctx, idempotencyKey, orderID, result, payload)
		if err == nil {
			out = handled
			break
		}
		if errors.Is(err, errWebhookRace) {
			continue
		}
		return HandleWebhookResult{}, err
	}
	if out.OrderID == "" {
		return HandleWebhookResult{}, domain.ErrTransientConflict
	}
	return out, nil
}

func (e *WebhookEngine) attempt(ctx context.Context, idempotencyKey, orderID string, result domain.WebhookResult, payload []byte) (HandleWebhookResult, error) {
	now := e.clock.Now()
	var out HandleWebhookResult

	err := e.store.WithTransactionRetry(ctx, e.maxRetries, func(txCtx context.Context) error {
		existing, err := e.store.FindWebhookByKey(txCtx, idempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.OrderID != orderID {
				return domain.ErrIdempotencyKeyConflict
			}
			order, err := e.store.LockOrderForUpdate(txCtx, orderID)
			if err != nil {
				return err
			}
			out = HandleWebhookResult{OrderID: order.ID, OrderStatus: order.Status, IdempotencyKey: idempotencyKey}
			if e.metrics != nil {
				e.metrics.WebhooksReplayed.Inc()
			}
			return nil
		}

		order, err := e.store.LockOrderForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		if err := e.store.CreateWebhook(txCtx, idempotencyKey, orderID, result, payload, now); err != nil {
			if errors.Is(err, postgres.ErrAlreadyRecorded) {
				return errWebhookRace
			}
			return err
		}
		if e.metrics != nil {
			e.metrics.WebhooksRecorded.Inc()
		}

		newStatus, err := e.applyOutcome(txCtx, order, result, now)
		if err != nil {
			return err
		}

		out = HandleWebhookResult{OrderID: order.ID, OrderStatus: newStatus, IdempotencyKey: idempotencyKey}
		return nil
	})
	return out, err
}

// applyOutcome implements §4.E step 5, including terminal absorption
// and the reservation-restoration guard against double-counting stock
// that the reaper may have already restored.
func (e *WebhookEngine) applyOutcome(ctx context.Context, order domain.Order, result domain.WebhookResult, now time.Time) (domain.OrderStatus, error) {
	if order.Status.Terminal() {
		// Terminal absorption: record the webhook (already done), don't mutate.
		return order.Status, nil
	}

	switch result {
	case domain.WebhookResultSuccess:
		if err := e.store.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
			return "", err
		}
		e.logger.Event("payment_webhook_handled").
			Str("order_id", order.ID).Str("result", string(result)).Send()
		if e.metrics != nil {
			e.metrics.OrdersPaid.Inc()
		}
		return domain.OrderStatusPaid, nil

	case domain.WebhookResultFailure:
		if err := e.store.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
			return "", err
		}
		if err := e.restoreReservation(ctx, order, now); err != nil {
			return "", err
		}
		e.logger.Event("payment_webhook_handled").
			Str("order_id", order.ID).Str("result", string(result)).Send()
		if e.metrics != nil {
			e.metrics.OrdersCancelled.Inc()
		}
		return domain.OrderStatusCancelled, nil

	default:
		e.logger.ErrorEvent("payment_webhook_failed", domain.ErrInvalidID).
			Str("order_id", order.ID).Str("result", string(result)).Send()
		return "", domain.ErrInvalidID
	}
}

// restoreReservation returns the Hold's qty to available_stock unless
// the Hold has already been expired or cancelled (the reaper or a
// prior webhook already restored it).
func (e *WebhookEngine) restoreReservation(ctx context.Context, order domain.Order, now time.Time) error {
	hold, err := e.store.LockHoldForUpdate(ctx, order.HoldID)
	if err != nil {
		return err
	}
	if hold.Status == domain.HoldStatusExpired || hold.Status == domain.HoldStatusCancelled {
		return nil
	}

	product, err := e.store.LockProductForUpdate(ctx, hold.ProductID)
	if err != nil {
		return err
	}
	if err := e.store.UpdateAvailableStock(ctx, product.ID, product.AvailableStock+hold.Qty); err != nil {
		return err
	}
	return e.store.UpdateHoldStatus(ctx, hold.ID, domain.HoldStatusCancelled, now)
}
