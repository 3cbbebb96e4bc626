package hooks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task is a unit of hook work executed by the async queue.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

type submission struct {
	task Task
	done chan error
}

// AsyncQueue executes hook bodies on a worker pool. The asynchronous
// save path submits synchronous hook bodies here so the calling
// goroutine never runs them directly, while still waiting for the
// result to preserve strict sequential ordering.
type AsyncQueue struct {
	tasks       chan submission
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	shutdown    bool
	mu          sync.Mutex
	logger      *zap.Logger
}

// NewAsyncQueue creates a queue with the specified worker count.
func NewAsyncQueue(workerCount int, logger *zap.Logger) *AsyncQueue {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AsyncQueue{
		tasks:       make(chan submission, 100),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start starts the worker pool.
func (q *AsyncQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.started = true
}

func (q *AsyncQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case sub, ok := <-q.tasks:
			if !ok {
				return
			}
			sub.done <- q.run(id, sub.task)
		}
	}
}

// run executes a task with panic recovery so a misbehaving hook body
// cannot kill a worker.
func (q *AsyncQueue) run(id int, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in hook task",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Any("panic", r))
			err = fmt.Errorf("hook task %s panicked: %v", task.Name, r)
		}
	}()

	return task.Fn(q.ctx)
}

// Submit enqueues a task and waits for its result.
func (q *AsyncQueue) Submit(task Task) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue not started")
	}
	if q.shutdown {
		q.mu.Unlock()
		return fmt.Errorf("queue shutdown")
	}
	q.mu.Unlock()

	sub := submission{task: task, done: make(chan error, 1)}

	select {
	case q.tasks <- sub:
	case <-q.ctx.Done():
		return fmt.Errorf("queue closed")
	}

	select {
	case err := <-sub.done:
		return err
	case <-q.ctx.Done():
		return fmt.Errorf("queue closed")
	}
}

// Shutdown stops accepting tasks and waits for in-flight work.
func (q *AsyncQueue) Shutdown() {
	q.mu.Lock()
	if !q.started || q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
}

// Stop cancels in-flight work without draining the queue.
func (q *AsyncQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
