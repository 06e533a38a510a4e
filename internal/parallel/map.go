package parallel

import (
	"runtime"
	"sync"
)

// Map applies fn to every index in [0, n) across a fixed pool of workers and
// returns the results in index order, regardless of which worker finished
// first. Indices are grouped into contiguous batches of batchSize; a worker
// claims a whole batch at a time, so larger batches mean fewer handoffs at
// the cost of coarser load balancing.
//
// The first error (lowest index) aborts the result: Map still waits for all
// in-flight batches but returns nil results and that error. batchSize < 1 is
// treated as 1; workers < 1 defaults to runtime.NumCPU().
func Map[T any](n, batchSize, workers int, fn func(i int) (T, error)) ([]T, error) {
	if n <= 0 {
		return []T{}, nil
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	results := make([]T, n)
	errs := make([]error, n)

	type batch struct{ start, end int }
	batches := make(chan batch)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for b := range batches {
				for i := b.start; i < b.end; i++ {
					results[i], errs[i] = fn(i)
				}
			}
		}()
	}

	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batches <- batch{start, end}
	}
	close(batches)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
