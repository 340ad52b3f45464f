package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pkgerrors "github.com/pkg/errors"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// CreateHold inserts a new active Hold (§4.C step 4).
func (s *Store) CreateHold(ctx context.Context, productID string, qty int, expiresAt, now time.Time) (domain.Hold, error) {
	const stmt = `
INSERT INTO holds (id, product_id, qty, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

	h := domain.Hold{
		ID:        uuid.NewString(),
		ProductID: productID,
		Qty:       qty,
		Status:    domain.HoldStatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.exec(ctx, stmt, h.ID, h.ProductID, h.Qty, h.Status, h.ExpiresAt, h.CreatedAt)
	if err != nil {
		return domain.Hold{}, pkgerrors.Wrap(classify(err), "create hold")
	}
	return h, nil
}

// GetHold reads a Hold without locking.
func (s *Store) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	const query = `
SELECT id, product_id, qty, status, expires_at, created_at, updated_at
FROM holds WHERE id = $1`
	return s.scanHold(s.queryRow(ctx, query, id))
}

// LockHoldForUpdate locks the Hold row for the enclosing transaction
// (§4.D step 1, §4.E step 5 Hold restoration, §4.F step 1).
func (s *Store) LockHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	const query = `
SELECT id, product_id, qty, status, expires_at, created_at, updated_at
FROM holds WHERE id = $1 FOR UPDATE`
	return s.scanHold(s.queryRow(ctx, query, id))
}

func (s *Store) scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(&h.ID, &h.ProductID, &h.Qty, &h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, pkgerrors.Wrap(classify(err), "scan hold")
	}
	return h, nil
}

// UpdateHoldStatus transitions a Hold already locked within the
// current transaction. Callers are responsible for only requesting
// transitions permitted by the DAG in spec.md §3.
func (s *Store) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, now time.Time) error {
	const stmt = `UPDATE holds SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := s.exec(ctx, stmt, id, status, now)
	if err != nil {
		return pkgerrors.Wrap(classify(err), "update hold status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

// ListExpiredActiveHolds pages through Holds eligible for reaping
// (§4.F: status=active AND expires_at < now, ordered by id).
func (s *Store) ListExpiredActiveHolds(ctx context.Context, now time.Time, afterID string, pageSize int) ([]domain.Hold, error) {
	const query = `
SELECT id, product_id, qty, status, expires_at, created_at, updated_at
FROM holds
WHERE status = 'active' AND expires_at < $1 AND id > $2
ORDER BY id
LIMIT $3`
	rows, err := s.query(ctx, query, now, afterID, pageSize)
	if err != nil {
		return nil, pkgerrors.Wrap(classify(err), "list expired holds")
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		h, err := s.scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		return nil, pkgerrors.Wrap(classify(rows.Err()), "iterate expired holds")
	}
	return holds, nil
}
