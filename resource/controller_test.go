package resource

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_InFlight(t *testing.T) {
	c := NewController(Config{MaxInFlight: 2})

	r1, err := c.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := c.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.InFlight())

	// Third acquire should block/timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r1()
	r1() // second call is a no-op
	assert.Equal(t, int64(1), c.InFlight())

	r3, err := c.Acquire(context.Background())
	require.NoError(t, err)
	r2()
	r3()
	assert.Equal(t, int64(0), c.InFlight())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})

	var releases []func()
	for i := 0; i < 100; i++ {
		r, err := c.Acquire(context.Background())
		require.NoError(t, err)
		releases = append(releases, r)
	}
	assert.Equal(t, int64(100), c.InFlight())
	for _, r := range releases {
		r()
	}
	assert.Equal(t, int64(0), c.InFlight())

	require.NoError(t, c.WaitWrites(context.Background(), 1_000_000))
	require.NoError(t, c.WaitReads(context.Background(), 1_000_000))
}

func TestController_NilIsUnlimited(t *testing.T) {
	var c *Controller

	r, err := c.Acquire(context.Background())
	require.NoError(t, err)
	r()

	assert.Equal(t, int64(0), c.InFlight())
	assert.NoError(t, c.WaitWrites(context.Background(), 10))
	assert.NoError(t, c.WaitReads(context.Background(), 10))
	assert.Zero(t, c.ReadUnits())
	assert.Zero(t, c.WriteUnits())
}

func TestController_WriteRate(t *testing.T) {
	c := NewController(Config{WriteUnitsPerSec: 10, Burst: 5})

	// The initial burst is free.
	start := time.Now()
	require.NoError(t, c.WaitWrites(context.Background(), 5))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// Bucket is drained; the next units must wait.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.WaitWrites(ctx, 5))
}

func TestController_WaitLargerThanBurst(t *testing.T) {
	c := NewController(Config{ReadUnitsPerSec: 1000, Burst: 10})

	// 25 units with burst 10 is split instead of failing.
	require.NoError(t, c.WaitReads(context.Background(), 25))
	assert.Equal(t, int64(25), c.ReadUnits())
	assert.Zero(t, c.WriteUnits())
}

func TestController_UnitsCountedWithoutLimit(t *testing.T) {
	c := NewController(Config{})
	require.NoError(t, c.WaitWrites(context.Background(), 3))
	require.NoError(t, c.WaitReads(context.Background(), 7))
	require.NoError(t, c.WaitReads(context.Background(), 0))
	assert.Equal(t, int64(3), c.WriteUnits())
	assert.Equal(t, int64(7), c.ReadUnits())
}

func TestController_ConcurrentRelease(t *testing.T) {
	c := NewController(Config{MaxInFlight: 4})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Acquire(context.Background())
			if err != nil {
				return
			}
			assert.LessOrEqual(t, c.InFlight(), int64(4))
			r()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), c.InFlight())
}
