package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeBM25(t *testing.T) {
	t.Parallel()

	t.Run("zero and negative scores map to zero", func(t *testing.T) {
		require.Zero(t, NormalizeBM25(0, 8))
		require.Zero(t, NormalizeBM25(-3, 8))
	})

	t.Run("stays below one", func(t *testing.T) {
		require.Less(t, NormalizeBM25(1e9, 8), 1.0)
	})

	t.Run("monotonic in the raw score", func(t *testing.T) {
		require.Greater(t, NormalizeBM25(20, 8), NormalizeBM25(10, 8))
	})

	t.Run("k equal to raw score yields one half", func(t *testing.T) {
		require.InDelta(t, 0.5, NormalizeBM25(8, 8), 1e-9)
	})

	t.Run("non-positive k falls back to default", func(t *testing.T) {
		require.Equal(t, NormalizeBM25(10, DefaultBM25NormK), NormalizeBM25(10, 0))
	})
}

func TestClamp01(t *testing.T) {
	t.Parallel()

	require.Zero(t, Clamp01(-0.001))
	require.Equal(t, 1.0, Clamp01(1.000001))
	require.Equal(t, 0.42, Clamp01(0.42))
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("stops on first success", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("retries up to the attempt budget", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := withRetry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 3, calls)
	})

	t.Run("recovers when a later attempt succeeds", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("cancelled context cuts retries short", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := withRetry(ctx, 3, time.Millisecond, func() error {
			calls++
			return errors.New("transient")
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}
