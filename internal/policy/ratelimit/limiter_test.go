package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1 hands out a token every 100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "http://localhost:8000/api/v1/crawler/tasks"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "http://localhost:8000/api/v1/results"))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// A different host has its own bucket.
	start = time.Now()
	require.NoError(t, l.Wait(ctx, "http://backup:8000/api/v1/results"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 2, l.Hosts())
}

func TestLimiter_Disabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for range 100 {
		require.NoError(t, l.Wait(context.Background(), "http://localhost:8000/x"))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_ContextCancellation(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx, "http://localhost:8000/x"))

	cancel()
	require.Error(t, l.Wait(ctx, "http://localhost:8000/x"))
}
