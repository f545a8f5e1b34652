package solver

import (
	"context"
	"sync"

	"hydroengine/internal/lp"
)

// Pool distributes one Solve call per scenario across a fixed number
// of worker goroutines. Every worker calls Solve on the single Driver
// handed to SolveAll.
type Pool struct {
	workers int
}

// NewPool builds a Pool with the given worker count; a non-positive
// count is treated as 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// job pairs a scenario-local model with the slot its result belongs in.
type job struct {
	index int
	model *lp.Model
}

// SolveAll solves one model per scenario concurrently across the
// pool's workers, returning results in the same order as models. An
// error does not stop the workers: every job is still solved, the
// first error encountered is returned, and results are populated for
// every scenario whose solve succeeded.
func (p *Pool) SolveAll(ctx context.Context, driver Driver, models []*lp.Model) ([]*Result, error) {
	results := make([]*Result, len(models))
	jobs := make(chan job, len(models))
	for i, m := range models {
		jobs <- job{index: i, model: m}
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	workers := p.workers
	if workers > len(models) {
		workers = len(models)
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := driver.Solve(ctx, j.model)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				results[j.index] = res
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}
