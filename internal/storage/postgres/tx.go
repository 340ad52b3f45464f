package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

type txKey struct{}

// Store implements the §4.A contract: WithTransaction runs fn
// atomically; row locks are acquired with explicit SELECT ... FOR
// UPDATE statements issued by the per-entity lock helpers below.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTransaction runs fn atomically. A transaction already present on
// ctx is reused (supports composing engine calls), otherwise a new one
// is opened, committed on success and rolled back on any error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return pkgerrors.Wrap(classify(err), "begin transaction")
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return pkgerrors.Wrap(classify(err), "commit transaction")
	}
	return nil
}

// WithTransactionRetry runs fn inside WithTransaction, retrying the
// whole attempt (including reacquiring locks) up to maxAttempts times
// when the Store classifies the failure as a transient conflict.
func (s *Store) WithTransactionRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	return withRetry(ctx, maxAttempts, func(ctx context.Context) error {
		return s.WithTransaction(ctx, fn)
	})
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return s.pool.Exec(ctx, sql, args...)
}

func (s *Store) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

// classify maps driver-level failures onto the §7 TransientConflict
// category (deadlocks, lock-wait timeouts) so callers can retry a
// bounded number of times; anything else is returned unchanged for
// the caller to wrap as Fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01": // deadlock_detected
			return domain.ErrTransientConflict
		case "55P03": // lock_not_available
			return domain.ErrTransientConflict
		case "40001": // serialization_failure
			return domain.ErrTransientConflict
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTransientConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// withRetry retries fn up to maxAttempts times while it returns
// ErrTransientConflict, per spec.md §5 ("retried a small bounded
// number of times (e.g., 3) with short backoff").
func withRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrTransientConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeAfter(backoff(attempt)):
		}
	}
	return err
}
