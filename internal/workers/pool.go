// Package workers provides a bounded pool for running blocking per-host calls
// (reverse lookups, latency probes) concurrently from inside a scan job.
// Concurrency is capped with a weighted semaphore shared by every caller of the pool.
package workers

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is used when a pool is created with a non-positive size.
const DefaultSize = 16

// Result is the outcome of one task submitted through Map.
type Result[R any] struct {
	Value R
	Err   error
}

// Pool caps the number of tasks running at the same time.
// A single Pool may be shared by several jobs.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
}

// New creates a pool allowing size concurrent tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return int(p.size)
}

// Map applies fn to every item through the pool and returns the results in
// input order. Items that could not start because ctx ended carry ctx's error.
// A panicking task is reported as an error in its slot.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(items); j++ {
				results[j].Err = err
			}
			break
		}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer p.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					results[i].Err = fmt.Errorf("worker panic: %v", r)
				}
			}()
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
