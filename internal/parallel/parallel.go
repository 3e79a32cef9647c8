// Package parallel provides a read-only concurrent iteration helper over a
// query-set's entity slice (spec.md §5: "parallel read-only query
// iteration" is a permitted concurrency mode as long as no handler mutates
// world state).
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Each splits items into contiguous chunks and runs fn over each chunk
// concurrently, using at most workers goroutines (GOMAXPROCS if workers
// <= 0). fn must not mutate shared world state; it is meant for read-only
// work over a query-set snapshot such as EntitySet.Entities().
func Each[T any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) error) error {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(items) + workers - 1) / workers

	for start := 0; start < len(items); start += chunk {
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}
		slice := items[start:end]
		g.Go(func() error {
			for _, item := range slice {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, item); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
