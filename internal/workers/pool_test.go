package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("uses given size", func(t *testing.T) {
		assert.Equal(t, 4, New(4).Size())
	})

	t.Run("falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultSize, New(0).Size())
		assert.Equal(t, DefaultSize, New(-3).Size())
	})
}

func TestMapPreservesOrder(t *testing.T) {
	pool := New(3)
	items := []int{5, 1, 4, 2, 3}

	results := Map(context.Background(), pool, items, func(_ context.Context, n int) (string, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("host-%d", n), nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, fmt.Sprintf("host-%d", n), results[i].Value)
	}
}

func TestMapRespectsLimit(t *testing.T) {
	const limit = 2
	pool := New(limit)

	var running, peak int32
	items := make([]int, 10)

	Map(context.Background(), pool, items, func(context.Context, int) (struct{}, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
	assert.Positive(t, atomic.LoadInt32(&peak))
}

func TestMapCollectsErrors(t *testing.T) {
	pool := New(2)
	boom := errors.New("lookup failed")

	results := Map(context.Background(), pool, []string{"a", "b", "c"}, func(_ context.Context, s string) (int, error) {
		if s == "b" {
			return 0, boom
		}
		if s == "c" {
			panic("bad host")
		}
		return 1, nil
	})

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "worker panic")
}

func TestMapCancelledContext(t *testing.T) {
	pool := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Map(ctx, pool, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	})

	assert.Zero(t, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
