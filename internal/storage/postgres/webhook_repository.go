package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	pkgerrors "github.com/pkg/errors"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// FindWebhookByKey looks up a previously recorded PaymentWebhook
// (§4.E step 1, the replay path).
func (s *Store) FindWebhookByKey(ctx context.Context, key string) (*domain.PaymentWebhook, error) {
	const query = `
SELECT idempotency_key, order_id, result, payload, processed_at
FROM payment_webhooks WHERE idempotency_key = $1`
	var w domain.PaymentWebhook
	err := s.queryRow(ctx, query, key).Scan(&w.IdempotencyKey, &w.OrderID, &w.Result, &w.Payload, &w.ProcessedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(classify(err), "find webhook")
	}
	return &w, nil
}

// CreateWebhook inserts a PaymentWebhook row. A unique-key race on the
// first-time path (detected via isUniqueViolation) returns
// ErrAlreadyRecorded; callers must re-enter the replay path rather
// than treat this as a hard failure (§4.E step 4).
func (s *Store) CreateWebhook(ctx context.Context, key, orderID string, result domain.WebhookResult, payload []byte, now time.Time) error {
	const stmt = `
INSERT INTO payment_webhooks (idempotency_key, order_id, result, payload, processed_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := s.exec(ctx, stmt, key, orderID, result, payload, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRecorded
		}
		return pkgerrors.Wrap(classify(err), "create webhook")
	}
	return nil
}
