// Package workerpool provides a bounded, typed worker pool with retries.
// Jobs are queued on a buffered channel and run by a fixed set of workers;
// callers get each job's outcome back on its own channel.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by TrySubmit when no queue slot is free
	ErrQueueFull = errors.New("task queue is full")
	// ErrStopped is returned once Stop has been called
	ErrStopped = errors.New("pool is stopped")
)

// Handler processes one job
type Handler[T, R any] func(ctx context.Context, job T) (R, error)

// Outcome is the result of one job
type Outcome[R any] struct {
	Value    R
	Err      error
	Attempts int
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

// Config holds worker pool configuration
type Config struct {
	Workers   int
	QueueSize int
	// MaxRetries is the number of extra attempts after a failure
	MaxRetries int
	// RetryDelay grows linearly with the attempt number
	RetryDelay              time.Duration
	GracefulShutdownTimeout time.Duration
}

// DefaultConfig returns defaults sized for batch revalidation
func DefaultConfig() Config {
	return Config{
		Workers:                 8,
		QueueSize:               1000,
		MaxRetries:              2,
		RetryDelay:              100 * time.Millisecond,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

type task[T, R any] struct {
	ctx   context.Context
	job   T
	reply chan Outcome[R]
}

// Pool runs jobs of type T producing R
type Pool[T, R any] struct {
	config  Config
	handler Handler[T, R]
	logger  *zap.Logger
	onDepth func(depth int)

	mu      sync.RWMutex
	stopped bool
	tasks   chan task[T, R]
	wg      sync.WaitGroup

	submitted  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	retried    atomic.Int64
	queueDepth atomic.Int64
}

// Option configures a Pool
type Option func(*options)

type options struct {
	onDepth func(int)
}

// WithQueueObserver is called with the queue depth after every change
func WithQueueObserver(fn func(depth int)) Option {
	return func(o *options) { o.onDepth = fn }
}

// New creates a pool and starts its workers
func New[T, R any](cfg Config, handler Handler[T, R], logger *zap.Logger, opts ...Option) (*Pool[T, R], error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = def.GracefulShutdownTimeout
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[T, R]{
		config:  cfg,
		handler: handler,
		logger:  logger,
		onDepth: o.onDepth,
		tasks:   make(chan task[T, R], cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Info("worker pool started",
		zap.Int("workers", cfg.Workers),
		zap.Int("queue_size", cfg.QueueSize))
	return p, nil
}

// Submit queues a job, waiting for a free slot until ctx is done. The job
// runs with ctx, so cancelling it also abandons queued work.
func (p *Pool[T, R]) Submit(ctx context.Context, job T) (<-chan Outcome[R], error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrStopped
	}

	t := task[T, R]{ctx: ctx, job: job, reply: make(chan Outcome[R], 1)}
	select {
	case p.tasks <- t:
		p.enqueued()
		return t.reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TrySubmit queues a job without waiting
func (p *Pool[T, R]) TrySubmit(ctx context.Context, job T) (<-chan Outcome[R], error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrStopped
	}

	t := task[T, R]{ctx: ctx, job: job, reply: make(chan Outcome[R], 1)}
	select {
	case p.tasks <- t:
		p.enqueued()
		return t.reply, nil
	default:
		return nil, ErrQueueFull
	}
}

// Process runs every job and returns the outcomes in input order
func (p *Pool[T, R]) Process(ctx context.Context, jobs []T) ([]Outcome[R], error) {
	replies := make([]<-chan Outcome[R], 0, len(jobs))
	for _, job := range jobs {
		reply, err := p.Submit(ctx, job)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}

	out := make([]Outcome[R], len(replies))
	for i, reply := range replies {
		select {
		case out[i] = <-reply:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// Stop rejects new jobs, drains the queue and waits for the workers
func (p *Pool[T, R]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-time.After(p.config.GracefulShutdownTimeout):
		p.logger.Warn("worker pool shutdown timed out")
	}
}

func (p *Pool[T, R]) enqueued() {
	p.submitted.Add(1)
	depth := p.queueDepth.Add(1)
	if p.onDepth != nil {
		p.onDepth(int(depth))
	}
}

func (p *Pool[T, R]) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		depth := p.queueDepth.Add(-1)
		if p.onDepth != nil {
			p.onDepth(int(depth))
		}
		t.reply <- p.run(id, t)
	}
}

func (p *Pool[T, R]) run(workerID int, t task[T, R]) Outcome[R] {
	var out Outcome[R]
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if err := t.ctx.Err(); err != nil {
			out.Err = err
			break
		}
		out.Attempts = attempt + 1
		out.Value, out.Err = p.handler(t.ctx, t.job)
		if out.Err == nil {
			break
		}
		if IsPermanent(out.Err) || attempt == p.config.MaxRetries {
			break
		}

		p.retried.Add(1)
		p.logger.Debug("retrying task",
			zap.Int("worker_id", workerID),
			zap.Int("attempt", attempt+1),
			zap.Error(out.Err))
		select {
		case <-t.ctx.Done():
			out.Err = t.ctx.Err()
			attempt = p.config.MaxRetries
		case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
		}
	}

	if out.Err != nil {
		p.failed.Add(1)
		p.logger.Warn("task failed",
			zap.Int("worker_id", workerID),
			zap.Int("attempts", out.Attempts),
			zap.Error(out.Err))
	} else {
		p.completed.Add(1)
	}
	return out
}

// Stats is a point-in-time view of pool counters
type Stats struct {
	Submitted     int64
	Completed     int64
	Failed        int64
	Retried       int64
	QueueDepth    int64
	QueueCapacity int
	Workers       int
}

// Stats returns current pool statistics
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		Submitted:     p.submitted.Load(),
		Completed:     p.completed.Load(),
		Failed:        p.failed.Load(),
		Retried:       p.retried.Load(),
		QueueDepth:    p.queueDepth.Load(),
		QueueCapacity: p.config.QueueSize,
		Workers:       p.config.Workers,
	}
}

// IsHealthy reports whether the queue is below 90% of capacity
func (p *Pool[T, R]) IsHealthy() bool {
	s := p.Stats()
	return float64(s.QueueDepth)/float64(s.QueueCapacity) < 0.9
}
