package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// Result is the outcome of resolving one item. Resolved is false when the
// resolver produced no value; Value is then the zero value of R.
type Result[R any] struct {
	Value    R
	Resolved bool
}

// BatchStats is reported to BatchOptions.OnBatch after each batch settles.
type BatchStats struct {
	Index    int
	Size     int
	Resolved int
	Elapsed  time.Duration
}

// BatchOptions configures RunBatches.
type BatchOptions struct {
	// Size is the maximum number of concurrent resolutions. Must be >= 1.
	Size int
	// Delay is the pause between two consecutive batches.
	Delay time.Duration
	// OnBatch is optional (nil = no-op).
	OnBatch func(BatchStats)
}

// RunBatches resolves items in consecutive batches of opts.Size.
//
// resolve must not panic; a failure is reported by returning false and
// never aborts the run.
//
// Every item of a batch is resolved in its own goroutine and the batch is
// fully settled before the next one starts. Results are returned in input
// order, one per item, whatever order the goroutines finish in. The delay is
// only applied between batches: there is no pause after the final one.
//
// The returned error is non-nil only for an invalid batch size, or when ctx
// is cancelled between batches; in the latter case the results of every
// settled batch are returned alongside ctx.Err().
func RunBatches[T, R any](ctx context.Context, items []T, opts BatchOptions, resolve func(ctx context.Context, item T) (R, bool)) ([]Result[R], error) {
	if opts.Size < 1 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidBatchSize, opts.Size)
	}

	results := make([]Result[R], 0, len(items))

	for i, batch := range lo.Chunk(items, opts.Size) {
		if i > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return results, err
			}
		}

		start := time.Now()
		out := make([]Result[R], len(batch))

		// Each goroutine owns exactly one slot of out, so no locking is needed.
		var g errgroup.Group
		for j, item := range batch {
			g.Go(func() error {
				v, ok := resolve(ctx, item)
				out[j] = Result[R]{Value: v, Resolved: ok}
				return nil
			})
		}
		_ = g.Wait()

		results = append(results, out...)

		if opts.OnBatch != nil {
			opts.OnBatch(BatchStats{
				Index:    i,
				Size:     len(batch),
				Resolved: lo.CountBy(out, func(r Result[R]) bool { return r.Resolved }),
				Elapsed:  time.Since(start),
			})
		}
	}

	return results, nil
}

// Values returns the resolved values of results in order, dropping absent ones.
func Values[R any](results []Result[R]) []R {
	return lo.FilterMap(results, func(r Result[R], _ int) (R, bool) {
		return r.Value, r.Resolved
	})
}

// BatchCount is the number of batches RunBatches produces for n items.
func BatchCount(n, size int) int {
	if size < 1 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
