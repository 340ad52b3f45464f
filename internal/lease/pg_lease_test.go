package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/lease"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/testutil"
)

func TestPgLease_ExcludesConcurrentHolders(t *testing.T) {
	pool := testutil.NewTestPool(t)
	l := lease.NewPgLease(pool)

	release, err := l.Acquire(context.Background(), "test-lease")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		second, err := l.Acquire(ctx, "test-lease")
		if err == nil {
			second()
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatalf("expected second Acquire to block while the first holder has not released")
	case <-time.After(200 * time.Millisecond):
	}

	release()
}
