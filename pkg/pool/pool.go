// Package pool provides a bounded worker pool for offloading pure-CPU
// cryptographic work (group exponentiations, pairings, NIZK verification)
// off of the single logical executor described in spec §5. Use of the pool
// is optional and not observable by protocol code: New(0) sizes the pool to
// runtime.NumCPU(), and NoPool admits one function at a time.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs CPU-bound closures on a bounded number of goroutines.
type Pool struct {
	sem chan struct{}
}

// New creates a Pool with the given number of workers. A non-positive n
// defaults to runtime.NumCPU().
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{sem: make(chan struct{}, n)}
}

// NoPool returns a Pool that runs every submitted function synchronously on
// the calling goroutine. Useful for tests and for deterministic benchmarks.
func NoPool() *Pool {
	return &Pool{sem: make(chan struct{}, 1)}
}

// Submit waits for a free worker slot, runs fn on the calling goroutine while
// holding that slot, and returns fn's error.
func (p *Pool) Submit(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}

// Parallel runs every fn in fns on the pool and waits for all of them,
// returning the first error encountered (if any). Each fn gets its own
// goroutine, and at most the pool's worker cap of them run at once; the
// dealer uses it to compute per-party verification points.
func Parallel(ctx context.Context, p *Pool, fns ...func() error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			return p.Submit(ctx, fn)
		})
	}
	return g.Wait()
}
