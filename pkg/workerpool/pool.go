// Package workerpool runs independent tasks with bounded parallelism.
package workerpool

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config configures the pool.
type Config struct {
	MaxConcurrent int // Maximum tasks running at once (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
	}
}

// Pool runs tasks with bounded parallelism. A semaphore limits outstanding
// tasks and results are collected as they complete, so a new task starts as
// soon as any running one finishes.
type Pool struct {
	config Config
	logger *zap.Logger
}

// New creates a pool.
func New(config Config, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// MaxConcurrent returns the concurrency limit.
func (p *Pool) MaxConcurrent() int { return p.config.MaxConcurrent }

// Task is a unit of work. Tasks share nothing with each other.
type Task struct {
	ID      string                          // For logging/tracking
	Execute func(ctx context.Context) error // The work to be executed
}

// Result is the outcome of one task.
type Result struct {
	ID  string
	Err error
}

// Run executes all tasks and returns their results in completion order.
// A failing task does not stop the others. Tasks that have not started when
// ctx is canceled report ctx.Err() without running.
func (p *Pool) Run(ctx context.Context, tasks []Task, onProgress func(completed, total int)) []Result {
	if len(tasks) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(p.config.MaxConcurrent))
	resultsChan := make(chan Result, len(tasks))
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			// Blocks while MaxConcurrent tasks are running.
			if err := sem.Acquire(ctx, 1); err != nil {
				resultsChan <- Result{ID: task.ID, Err: err}
				return
			}
			defer sem.Release(1)

			// Acquire may succeed on a done context.
			if err := ctx.Err(); err != nil {
				resultsChan <- Result{ID: task.ID, Err: err}
				return
			}

			resultsChan <- Result{ID: task.ID, Err: task.Execute(ctx)}
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]Result, 0, len(tasks))
	for result := range resultsChan {
		results = append(results, result)
		if result.Err != nil {
			p.logger.Debug("Task failed", zap.String("task_id", result.ID), zap.Error(result.Err))
		}
		if onProgress != nil {
			onProgress(len(results), len(tasks))
		}
	}

	return results
}
