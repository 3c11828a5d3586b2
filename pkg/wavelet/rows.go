package wavelet

import (
	"golang.org/x/sync/errgroup"
)

// forRanges splits [0, n) into contiguous chunks, one per worker, and runs fn
// on each. Chunks write disjoint output so the result does not depend on the
// worker count. The first error returned by fn is returned.
func forRanges(workers, n int, fn func(start, end int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers == 1 || n < 2*workers {
		return fn(0, n)
	}

	perWorker := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		startIdx := w * perWorker
		endIdx := min(startIdx+perWorker, n)
		if startIdx >= n {
			break
		}
		g.Go(func() error {
			return fn(startIdx, endIdx)
		})
	}
	return g.Wait()
}
