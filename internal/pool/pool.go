// Package pool provides the bounded worker pool that runs every unit of
// schedulable work in the system. All concurrency flows through Execute;
// callers never start their own worker goroutines.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WorkItem is the minimal unit of schedulable, independently-failable work.
// Items are disposable and must not share mutable state.
type WorkItem struct {
	ID          string
	DisplayName string
	Execute     func(ctx context.Context) (any, error)
}

// TaskResult is the settled outcome of one work item: exactly one of Value
// or Err is meaningful, decided by Err being nil.
type TaskResult struct {
	ID          string
	DisplayName string
	Value       any
	Err         error
	Duration    time.Duration
}

// BatchResult partitions a batch's settled items. Every submitted item
// appears in exactly one of Succeeded or Failed.
type BatchResult struct {
	Succeeded []TaskResult
	Failed    []TaskResult
	Duration  time.Duration
}

// ProgressFunc observes completion. It is invoked synchronously after every
// item settles, so completed is strictly monotonic from 1 to total.
type ProgressFunc func(completed, total int)

type settled struct {
	result TaskResult
	failed bool
}

// Execute runs items with at most concurrency in flight at once.
//
// The queue is pull-based: all items are enqueued up front and
// min(concurrency, len(items)) workers repeatedly pop the next item and run
// it to completion, which bounds in-flight work exactly regardless of item
// duration variance. A failing item is recorded into Failed and never stops
// the worker or any other item. A panicking item is likewise converted into
// a failure. When ctx is cancelled, remaining queued items are still drained
// and recorded as failed with the context error, preserving the one-result-
// per-item invariant.
func Execute(ctx context.Context, items []WorkItem, concurrency int, onProgress ProgressFunc) BatchResult {
	if len(items) == 0 {
		return BatchResult{}
	}
	if concurrency <= 0 || concurrency > len(items) {
		concurrency = len(items)
	}

	queue := make(chan WorkItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	results := make(chan settled, len(items))
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if err := ctx.Err(); err != nil {
					results <- settled{
						result: TaskResult{ID: item.ID, DisplayName: item.DisplayName, Err: err},
						failed: true,
					}
					continue
				}
				results <- runItem(ctx, item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	batch := BatchResult{}
	total := len(items)
	completed := 0
	for s := range results {
		if s.failed {
			batch.Failed = append(batch.Failed, s.result)
		} else {
			batch.Succeeded = append(batch.Succeeded, s.result)
		}
		completed++
		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	batch.Duration = time.Since(start)
	return batch
}

// runItem executes one item, converting panics into failures so a bad
// analyzer can never take down a worker.
func runItem(ctx context.Context, item WorkItem) (s settled) {
	itemStart := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s = settled{
				result: TaskResult{
					ID:          item.ID,
					DisplayName: item.DisplayName,
					Err:         fmt.Errorf("work item panicked: %v", r),
					Duration:    time.Since(itemStart),
				},
				failed: true,
			}
		}
	}()

	value, err := item.Execute(ctx)
	result := TaskResult{
		ID:          item.ID,
		DisplayName: item.DisplayName,
		Value:       value,
		Err:         err,
		Duration:    time.Since(itemStart),
	}
	return settled{result: result, failed: err != nil}
}
