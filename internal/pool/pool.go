// Package pool provides a fixed-width worker pool for short-lived AWS fan-outs.
//
// Unlike an auto-scaling pool, width is a constant chosen to stay under
// provider-side rate limits. Tasks are isolated: a failing task contributes
// its error to the collected slice without affecting siblings, and Join
// blocks until every submitted task has finished.
package pool

import (
	"context"
	"sync"
)

// MaxParallelWorkers is the default fan-out width for AWS API calls.
// Conservative on purpose to avoid throttling.
const MaxParallelWorkers = 10

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context) error

// Pool runs tasks across a fixed number of workers.
type Pool struct {
	tasks chan Task

	workers sync.WaitGroup
	pending sync.WaitGroup

	mu        sync.Mutex
	errs      []error
	completed int
}

// New starts a pool with the given width. Width values below one are
// clamped to one.
func New(ctx context.Context, width int) *Pool {
	if width < 1 {
		width = 1
	}
	p := &Pool{tasks: make(chan Task)}
	for i := 0; i < width; i++ {
		p.workers.Add(1)
		go p.worker(ctx)
	}
	return p
}

// Submit queues a task. Blocks when all workers are busy, which keeps the
// number of in-flight API calls bounded by the pool width.
func (p *Pool) Submit(t Task) {
	p.pending.Add(1)
	p.tasks <- t
}

// Join waits for all submitted tasks to finish, shuts the workers down, and
// returns the errors collected from failed tasks. Order is completion order,
// not submission order.
func (p *Pool) Join() []error {
	p.pending.Wait()
	close(p.tasks)
	p.workers.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs
}

// Completed reports how many tasks have finished, successfully or not.
func (p *Pool) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

func (p *Pool) worker(ctx context.Context) {
	defer p.workers.Done()
	for task := range p.tasks {
		err := task(ctx)

		p.mu.Lock()
		p.completed++
		if err != nil {
			p.errs = append(p.errs, err)
		}
		p.mu.Unlock()

		p.pending.Done()
	}
}
