// Package dispatch runs compliance check tasks on a fixed pool of workers
// behind a bounded queue. Scheduler sweeps enqueue tasks; a full queue
// drops new work rather than blocking the sweep.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Task identifies one compliance check execution for one contract.
type Task struct {
	ContractID   uuid.UUID
	ContractName string
	CheckType    string
	Attempt      int
	EnqueuedAt   time.Time
	// StartedAt anchors the run budget. Zero until the first execution
	// attempt; retries inherit it so the budget spans all attempts.
	StartedAt time.Time
}

// Handler executes a task. Panics are recovered by the pool.
type Handler func(ctx context.Context, task Task)

// Options tune the worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

// Pool is a fixed-size worker pool with a bounded task queue.
type Pool struct {
	opts    Options
	handler Handler
	logger  zerolog.Logger
	queue   chan Task
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	dropped int64
}

// New constructs a worker pool. The handler is invoked once per task.
func New(opts Options, handler Handler, logger zerolog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	return &Pool{
		opts:    opts,
		handler: handler,
		logger:  logger.With().Str("component", "dispatch").Logger(),
		queue:   make(chan Task, opts.QueueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the workers. They run until Stop is called or ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info().Int("workers", p.opts.Workers).Int("queue_size", p.opts.QueueSize).Msg("dispatch pool started")
}

// Stop signals the workers and waits for in-flight tasks to finish.
// Queued tasks that no worker picked up are abandoned.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Submit enqueues a task without blocking. It reports false when the task
// was dropped because the queue is full or the pool is stopping.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.stop:
		return false
	default:
	}

	select {
	case p.queue <- task:
		return true
	case <-p.stop:
		return false
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		p.logger.Warn().
			Str("contract", task.ContractName).
			Str("check_type", task.CheckType).
			Int("attempt", task.Attempt).
			Msg("queue full, dropping task")
		return false
	}
}

// SubmitAfter enqueues a task once the delay elapses. Used for retry
// re-enqueues; the delayed task competes for queue space like any other.
func (p *Pool) SubmitAfter(task Task, delay time.Duration) {
	if delay <= 0 {
		p.Submit(task)
		return
	}
	time.AfterFunc(delay, func() {
		p.Submit(task)
	})
}

// QueueDepth reports the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Capacity reports the size of the bounded queue.
func (p *Pool) Capacity() int {
	return cap(p.queue)
}

// Dropped reports how many tasks were rejected by a full queue.
func (p *Pool) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With().Int("worker", id).Logger()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.run(ctx, logger, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, logger zerolog.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("contract", task.ContractName).
				Str("check_type", task.CheckType).
				Msg("task handler panicked")
		}
	}()
	p.handler(ctx, task)
}
