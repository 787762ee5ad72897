// Package pool runs independent tasks under a concurrency ceiling.
//
// Results are keyed by each task's identity, so completion order never
// matters, and no task's failure cancels its siblings: a task expresses
// failure through its own result value.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the ceiling used when callers pass a non-positive one.
const DefaultLimit = 5

// Run executes every task in tasks with at most limit in flight at once
// and returns the results keyed by task identity. Every key in tasks is
// guaranteed a result, even when the context is canceled mid-batch: a
// task that could not acquire a slot still runs with the canceled
// context and reports through its own result value.
func Run[T any](ctx context.Context, limit int64, tasks map[string]func(context.Context) T) map[string]T {
	if limit <= 0 {
		limit = DefaultLimit
	}

	sem := semaphore.NewWeighted(limit)
	results := make(map[string]T, len(tasks))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for key, task := range tasks {
		wg.Add(1)
		go func(key string, task func(context.Context) T) {
			defer wg.Done()

			acquired := sem.Acquire(ctx, 1) == nil
			if acquired {
				defer sem.Release(1)
			}

			result := task(ctx)

			mu.Lock()
			results[key] = result
			mu.Unlock()
		}(key, task)
	}
	wg.Wait()

	return results
}
