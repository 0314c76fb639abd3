package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

// WorkerPool runs CPU-heavy work on a fixed number of goroutines reading a
// bounded queue.
type WorkerPool struct {
	tasks chan func()
	// quit is closed first on Close so that submitters blocked on a full
	// queue let go of mu.
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewWorkerPool constructs the pool with a bounded task queue.
func NewWorkerPool(queueSize int) *WorkerPool {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &WorkerPool{tasks: make(chan func(), queueSize), quit: make(chan struct{})}
}

// Start runs numWorkers goroutines until ctx is cancelled or Close is called.
func (p *WorkerPool) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for w := 1; w <= numWorkers; w++ {
		p.wg.Add(1)
		go func(w int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Printf("WorkerPool: worker %d shutting down.", w)
					return
				case fn, ok := <-p.tasks:
					if !ok {
						return
					}
					fn()
				}
			}
		}(w)
	}
}

// Close stops accepting work and waits for queued tasks to finish.
// Submitters still waiting for queue space get core.ErrQueueClosed.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// enqueue blocks while the queue is full, until ctx is done or the pool
// closes.
func (p *WorkerPool) enqueue(ctx context.Context, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return core.ErrQueueClosed
	}
	select {
	case p.tasks <- fn:
		return nil
	case <-p.quit:
		return core.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Task is the handle of a unit of work submitted to a WorkerPool.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Submit enqueues fn. fn receives ctx, so cancelling ctx asks it to stop;
// work that ignores cancellation still runs to completion and its result
// is dropped once nobody awaits it. fn is skipped when ctx has already
// ended by the time a worker picks it up.
func Submit[T any](ctx context.Context, p *WorkerPool, fn func(context.Context) (T, error)) (*Task[T], error) {
	t := &Task[T]{done: make(chan struct{})}
	err := p.enqueue(ctx, func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		if err := ctx.Err(); err != nil {
			t.err = err
			return
		}
		t.val, t.err = fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Done is closed once the task has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Await waits for the task result or for ctx to end, whichever is first.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Scheduler runs an Ingestor on the worker pool with a per-document timeout.
type Scheduler struct {
	pool     *WorkerPool
	pipeline Ingestor
	timeout  time.Duration
}

func NewScheduler(pool *WorkerPool, pipeline Ingestor, timeout time.Duration) *Scheduler {
	return &Scheduler{pool: pool, pipeline: pipeline, timeout: timeout}
}

// Timeout is the per-document processing budget.
func (s *Scheduler) Timeout() time.Duration {
	return s.timeout
}

// Run returns an error wrapping core.ErrJobTimeout when the budget runs out,
// whether the document was still queued or already running.
func (s *Scheduler) Run(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	task, err := Submit(ctx, s.pool, func(ctx context.Context) (*models.IngestResult, error) {
		return s.pipeline.Run(ctx, req)
	})
	if err == nil {
		var res *models.IngestResult
		res, err = task.Await(ctx)
		if err == nil {
			return res, nil
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Printf("Scheduler: %q for owner %s exceeded %s", req.Filename, req.OwnerID, s.timeout)
		return nil, fmt.Errorf("%w: processing timed out after %s", core.ErrJobTimeout, s.timeout)
	}
	return nil, err
}
