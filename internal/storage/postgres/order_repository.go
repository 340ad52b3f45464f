package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pkgerrors "github.com/pkg/errors"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// CreateOrder inserts an Order bound to exactly one Hold. The UNIQUE
// constraint on hold_id enforces "exactly one Order per Hold" (§4.D
// step 3); a unique violation here is translated to
// ErrHoldAlreadyConsumed.
func (s *Store) CreateOrder(ctx context.Context, holdID, productID string, qty int, amountCents int64) (domain.Order, error) {
	const stmt = `
INSERT INTO orders (id, hold_id, product_id, qty, amount_cents, status)
VALUES ($1, $2, $3, $4, $5, $6)`

	o := domain.Order{
		ID:          uuid.NewString(),
		HoldID:      holdID,
		ProductID:   productID,
		Qty:         qty,
		AmountCents: amountCents,
		Status:      domain.OrderStatusPending,
	}
	_, err := s.exec(ctx, stmt, o.ID, o.HoldID, o.ProductID, o.Qty, o.AmountCents, o.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrHoldAlreadyConsumed
		}
		return domain.Order{}, pkgerrors.Wrap(classify(err), "create order")
	}
	return o, nil
}

// GetOrder reads an Order without locking.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	const query = `SELECT id, hold_id, product_id, qty, amount_cents, status FROM orders WHERE id = $1`
	return s.scanOrder(s.queryRow(ctx, query, id))
}

// GetOrderByHoldID reads the (at most one) Order referencing a Hold.
func (s *Store) GetOrderByHoldID(ctx context.Context, holdID string) (*domain.Order, error) {
	const query = `SELECT id, hold_id, product_id, qty, amount_cents, status FROM orders WHERE hold_id = $1`
	o, err := s.scanOrder(s.queryRow(ctx, query, holdID))
	if err != nil {
		if err == domain.ErrOrderNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// LockOrderForUpdate locks the Order row for the enclosing transaction
// (§4.E step 3).
func (s *Store) LockOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	const query = `SELECT id, hold_id, product_id, qty, amount_cents, status FROM orders WHERE id = $1 FOR UPDATE`
	return s.scanOrder(s.queryRow(ctx, query, id))
}

func (s *Store) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.HoldID, &o.ProductID, &o.Qty, &o.AmountCents, &o.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, pkgerrors.Wrap(classify(err), "scan order")
	}
	return o, nil
}

// UpdateOrderStatus transitions an Order already locked within the
// current transaction.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	const stmt = `UPDATE orders SET status = $2 WHERE id = $1`
	tag, err := s.exec(ctx, stmt, id, status)
	if err != nil {
		return pkgerrors.Wrap(classify(err), "update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
