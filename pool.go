package notes2pdf

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent documents; each runs pandoc then typst.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for typst, which is itself multithreaded.
	cpuDivisor = 2
)

// ResolvePoolSize determines the number of documents exported at once.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// runPool calls fn for every index in [0, jobs) from at most size goroutines
// and waits for all of them. fn is expected to check ctx itself; one job's
// failure never stops the others.
func runPool(ctx context.Context, size, jobs int, fn func(ctx context.Context, idx int)) {
	if jobs == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(min(max(size, 1), jobs))
	for i := 0; i < jobs; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
