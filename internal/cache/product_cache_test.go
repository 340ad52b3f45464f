package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/cache"
)

func TestProductCache_Get_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewProductCache(db, 5*time.Second)

	mock.ExpectGet("product:prod-1").RedisNil()

	_, hit, err := c.Get(context.Background(), "prod-1")

	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCache_Get_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewProductCache(db, 5*time.Second)

	view := cache.ProductView{ID: "prod-1", Name: "Widget", TotalStock: 100, PriceCents: 999}
	payload, err := json.Marshal(view)
	require.NoError(t, err)

	mock.ExpectGet("product:prod-1").SetVal(string(payload))

	got, hit, err := c.Get(context.Background(), "prod-1")

	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, view, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewProductCache(db, 5*time.Second)

	view := cache.ProductView{ID: "prod-1", Name: "Widget", TotalStock: 100, PriceCents: 999}
	payload, err := json.Marshal(view)
	require.NoError(t, err)

	mock.ExpectSet("product:prod-1", payload, 5*time.Second).SetVal("OK")

	err = c.Set(context.Background(), view)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
