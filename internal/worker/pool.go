// Package worker runs document fetches concurrently.
package worker

import (
	"context"
	"sort"
	"sync"
)

// Task is a unit of work producing a value of type T
type Task[T any] func(ctx context.Context) (T, error)

// Outcome is the result of one submitted task. Index is the submission order.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

type indexedTask[T any] struct {
	index int
	task  Task[T]
}

// Pool runs tasks on a fixed number of workers and returns outcomes in
// submission order
type Pool[T any] struct {
	workers    int
	tasks      chan indexedTask[T]
	results    chan Outcome[T]
	collected  []Outcome[T]
	collectWG  sync.WaitGroup
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	mu         sync.Mutex
	submitted  int
	closed     bool
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		workers:    workers,
		tasks:      make(chan indexedTask[T], workers*2),
		results:    make(chan Outcome[T], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool[T]) Start() {
	p.collectWG.Add(1)
	go func() {
		defer p.collectWG.Done()
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			value, err := t.task(p.ctx)
			p.results <- Outcome[T]{Index: t.index, Value: value, Err: err}
		}
	}
}

// Submit queues a task, blocking while the queue is full. It returns false
// once Wait was called or the pool's context is cancelled.
func (p *Pool[T]) Submit(task Task[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.ctx.Err() != nil {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- indexedTask[T]{index: p.submitted, task: task}:
		p.submitted++
		return true
	}
}

// Wait waits for all submitted tasks and returns their outcomes in submission
// order. Tasks dropped by cancellation have no outcome.
func (p *Pool[T]) Wait() []Outcome[T] {
	p.closeTasks()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
	p.cancelFunc()

	sort.Slice(p.collected, func(i, j int) bool {
		return p.collected[i].Index < p.collected[j].Index
	})
	return p.collected
}

func (p *Pool[T]) closeTasks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
}

func (p *Pool[T]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Map runs fn over items with the given concurrency and returns outcomes in
// item order
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) (Out, error)) []Outcome[Out] {
	pool := NewPool[Out](ctx, workers)
	pool.Start()

	for _, item := range items {
		item := item
		if !pool.Submit(func(ctx context.Context) (Out, error) { return fn(ctx, item) }) {
			break
		}
	}

	return pool.Wait()
}
