package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"nine-pos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Runs against a real server; set REDIS_TEST_ADDR to enable.
func newTestCache(t *testing.T) *RedisSummaryCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := NewRedisSummaryCache(addr, os.Getenv("REDIS_TEST_PASSWORD"), 0)
	c.key = "nine-pos:test:" + t.Name()
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() {
		_ = c.Invalidate(context.Background())
		_ = c.Close()
	})
	return c
}

func TestSummaryRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	in := &service.DashboardSummary{TotalSales: decimal.RequireFromString("19.75"), TotalProducts: 3, TotalUsers: 2}
	require.NoError(t, c.Set(ctx, in, time.Minute))

	out, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, in.TotalSales.Equal(out.TotalSales))
	require.Equal(t, int64(3), out.TotalProducts)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetNilIsNoop(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set(context.Background(), nil, time.Minute))
	_, ok, err := c.Get(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
