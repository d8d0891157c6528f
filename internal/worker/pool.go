package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing a value
type Task[T any] func(ctx context.Context) T

type indexed[T any] struct {
	index int
	value T
}

// Pool runs tasks on a fixed number of goroutines and returns their results in
// submission order. Submit must be called from a single goroutine.
type Pool[T any] struct {
	workers   int
	tasks     chan indexed[Task[T]]
	results   chan indexed[T]
	collected []indexed[T]
	collectWG sync.WaitGroup
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	submitted int
	closeOnce sync.Once
	final     []T
	finalErr  error
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		workers: workers,
		tasks:   make(chan indexed[Task[T]], workers*2),
		results: make(chan indexed[T], workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool[T]) Start() {
	p.collectWG.Add(1)
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// collect drains results continuously so workers never block on a full channel
func (p *Pool[T]) collect() {
	defer p.collectWG.Done()
	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.results <- indexed[T]{index: task.index, value: task.value(p.ctx)}
		}
	}
}

// Submit queues a task. It returns false without queuing when the pool has
// been cancelled.
func (p *Pool[T]) Submit(task Task[T]) bool {
	// Checked first: after Wait the task channel is closed and the context cancelled
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- indexed[Task[T]]{index: p.submitted, value: task}:
		p.submitted++
		return true
	}
}

// Wait stops accepting tasks, waits for the workers and returns one result per
// accepted task, in submission order. If the pool was cancelled before every
// accepted task ran, the missing slots hold zero values and the context error
// is returned. Wait may be called more than once.
func (p *Pool[T]) Wait() ([]T, error) {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		close(p.results)
		p.collectWG.Wait()

		out := make([]T, p.submitted)
		for _, r := range p.collected {
			out[r.index] = r.value
		}
		p.final = out

		if len(p.collected) < p.submitted {
			p.finalErr = p.ctx.Err()
			if p.finalErr == nil {
				p.finalErr = context.Canceled
			}
		}
		p.cancel()
	})
	return p.final, p.finalErr
}

// Shutdown cancels in-flight work and releases the workers
func (p *Pool[T]) Shutdown() {
	p.cancel()
	_, _ = p.Wait()
}

// Map runs fn over items with the given number of workers and returns the
// results aligned with items.
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) Out) ([]Out, error) {
	pool := NewPool[Out](ctx, workers)
	pool.Start()

	for _, item := range items {
		if !pool.Submit(func(ctx context.Context) Out { return fn(ctx, item) }) {
			// ctx ended: stop the tasks already queued
			pool.Shutdown()
			break
		}
	}

	results, err := pool.Wait()
	if err == nil && len(results) < len(items) {
		err = ctx.Err()
		if err == nil {
			err = context.Canceled
		}
	}
	return results, err
}
