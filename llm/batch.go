package llm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Batch runs n independent calls concurrently and returns their results in
// index order. At most limit calls are in flight (limit <= 0 means no bound).
// The first error cancels the remaining calls and is returned alone; partial
// results are discarded.
func Batch[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if n <= 0 {
		return []T{}, nil
	}
	out := make([]T, n)
	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			v, err := fn(egCtx, i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
