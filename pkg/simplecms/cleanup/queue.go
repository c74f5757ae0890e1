// Package cleanup runs secondary tasks, such as removing orphaned media,
// after the primary mutation that produced them has succeeded. Tasks run on
// a small worker pool and are retried with exponential backoff; their
// failures are logged and never reach the caller that submitted them.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default queue settings.
const (
	DefaultWorkers     = 2
	DefaultBuffer      = 64
	DefaultMaxAttempts = 3
	DefaultBackoff     = 200 * time.Millisecond
	DefaultTaskTimeout = 30 * time.Second
)

// ErrClosed is logged for tasks submitted after Close.
var ErrClosed = errors.New("cleanup queue closed")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type job struct {
	name string
	task func(ctx context.Context) error
}

// Queue is a buffered task queue served by a fixed set of workers.
type Queue struct {
	logger      *slog.Logger
	workers     int
	buffer      int
	maxAttempts uint64
	backoff     time.Duration
	taskTimeout time.Duration

	tasks   chan job
	ctx     context.Context
	cancel  context.CancelFunc
	workWG  sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for task failures.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBuffer sets the capacity of the task channel.
func WithBuffer(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.buffer = n
		}
	}
}

// WithRetry sets the maximum number of attempts per task and the initial
// backoff between them.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(q *Queue) {
		if maxAttempts > 0 {
			q.maxAttempts = uint64(maxAttempts)
		}
		if backoff > 0 {
			q.backoff = backoff
		}
	}
}

// WithTaskTimeout bounds a single attempt of a task.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.taskTimeout = d
		}
	}
}

// New creates a queue and starts its workers.
func New(options ...Option) *Queue {
	q := &Queue{
		logger:      slog.Default(),
		workers:     DefaultWorkers,
		buffer:      DefaultBuffer,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		taskTimeout: DefaultTaskTimeout,
	}
	for _, option := range options {
		option(q)
	}

	q.tasks = make(chan job, q.buffer)
	q.ctx, q.cancel = context.WithCancel(context.Background())
	for i := 0; i < q.workers; i++ {
		q.workWG.Add(1)
		go q.work()
	}
	return q
}

// Submit queues task under a descriptive name. It never blocks the caller:
// when the buffer is full the hand-off continues in the background.
func (q *Queue) Submit(name string, task func(ctx context.Context) error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cleanup task dropped", "task", name, "error", ErrClosed)
		return
	}
	q.pending.Add(1)
	q.mu.Unlock()

	j := job{name: name, task: task}
	select {
	case q.tasks <- j:
	default:
		go func() {
			select {
			case q.tasks <- j:
			case <-q.ctx.Done():
				q.pending.Done()
			}
		}()
	}
}

// Wait blocks until every submitted task has finished.
func (q *Queue) Wait() {
	q.pending.Wait()
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to
// expire. Pending tasks are cancelled in the latter case.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("cleanup queue drain: %w", ctx.Err())
	}
	q.cancel()
	q.workWG.Wait()
	return err
}

func (q *Queue) work() {
	defer q.workWG.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.tasks:
			q.run(j)
		}
	}
}

func (q *Queue) run(j job) {
	defer q.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("cleanup task panicked", "task", j.name, "panic", r)
		}
	}()

	attempts := 0
	backoff := retry.WithMaxRetries(q.maxAttempts-1, retry.NewExponential(q.backoff))
	err := retry.Do(q.ctx, backoff, func(ctx context.Context) error {
		attempts++
		ctx, cancel := context.WithTimeout(ctx, q.taskTimeout)
		defer cancel()

		err := j.task(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		q.logger.Warn("cleanup task failed", "task", j.name, "attempts", attempts, "error", err)
		return
	}
	q.logger.Debug("cleanup task done", "task", j.name, "attempts", attempts)
}
