package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrent storage requests.
	// If 0, unlimited.
	MaxInFlight int64

	// WriteUnitsPerSec is the sustained write rate (one unit per item written).
	// If 0, unlimited.
	WriteUnitsPerSec float64

	// ReadUnitsPerSec is the sustained read rate (one unit per item read).
	// If 0, unlimited.
	ReadUnitsPerSec float64

	// Burst is the token-bucket size for both limiters.
	// If 0, defaults to one second of the configured rate (at least 1).
	Burst int
}

// Controller manages storage concurrency and throughput.
type Controller struct {
	cfg Config

	// Concurrency
	sem      *semaphore.Weighted // nil if unlimited
	inFlight atomic.Int64

	// Throughput
	writes *rate.Limiter // nil if unlimited
	reads  *rate.Limiter // nil if unlimited

	writeUnits atomic.Int64
	readUnits  atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	if cfg.WriteUnitsPerSec > 0 {
		c.writes = rate.NewLimiter(rate.Limit(cfg.WriteUnitsPerSec), burst(cfg.Burst, cfg.WriteUnitsPerSec))
	}
	if cfg.ReadUnitsPerSec > 0 {
		c.reads = rate.NewLimiter(rate.Limit(cfg.ReadUnitsPerSec), burst(cfg.Burst, cfg.ReadUnitsPerSec))
	}

	return c
}

func burst(configured int, perSec float64) int {
	if configured > 0 {
		return configured
	}
	if perSec < 1 {
		return 1
	}
	return int(perSec)
}

// Acquire reserves a request slot, blocking until one is free or ctx is
// canceled. The returned release func must be called exactly once.
func (c *Controller) Acquire(ctx context.Context) (release func(), err error) {
	if c == nil {
		return func() {}, nil
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	c.inFlight.Add(1)

	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		c.inFlight.Add(-1)
		if c.sem != nil {
			c.sem.Release(1)
		}
	}, nil
}

// InFlight returns the number of currently held request slots.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

// WaitWrites blocks until n write units are available.
// Requests larger than the burst are split into burst-sized waits.
func (c *Controller) WaitWrites(ctx context.Context, n int) error {
	if c == nil {
		return nil
	}
	return waitN(ctx, c.writes, &c.writeUnits, n)
}

// WaitReads blocks until n read units are available.
func (c *Controller) WaitReads(ctx context.Context, n int) error {
	if c == nil {
		return nil
	}
	return waitN(ctx, c.reads, &c.readUnits, n)
}

// WriteUnits returns the write units granted so far.
func (c *Controller) WriteUnits() int64 {
	if c == nil {
		return 0
	}
	return c.writeUnits.Load()
}

// ReadUnits returns the read units granted so far.
func (c *Controller) ReadUnits() int64 {
	if c == nil {
		return 0
	}
	return c.readUnits.Load()
}

func waitN(ctx context.Context, l *rate.Limiter, granted *atomic.Int64, n int) error {
	if n <= 0 {
		return nil
	}
	if l == nil {
		granted.Add(int64(n))
		return nil
	}
	b := l.Burst()
	for n > 0 {
		step := min(n, b)
		if err := l.WaitN(ctx, step); err != nil {
			return err
		}
		granted.Add(int64(step))
		n -= step
	}
	return nil
}
