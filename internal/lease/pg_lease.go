package lease

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLease implements Lease with a session-scoped Postgres advisory
// lock, grounded on the advisory-lock pattern in the teacher's
// migrations/migrate.go. It holds one pooled connection for the
// lifetime of the lease, since pg_advisory_lock is tied to the
// session that took it.
type PgLease struct {
	pool *pgxpool.Pool
}

func NewPgLease(pool *pgxpool.Pool) *PgLease {
	return &PgLease{pool: pool}
}

func (l *PgLease) Acquire(ctx context.Context, name string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for lease: %w", err)
	}

	key := advisoryKey(name)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lease %s: %w", name, err)
	}

	release := func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}
	return release, nil
}

func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}
