package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
)

const (
	// DefaultMaxConcurrency bounds handlers running at once across users.
	DefaultMaxConcurrency = 16
	// DefaultQueueSize bounds the backlog of a single user.
	DefaultQueueSize = 32
)

var (
	// ErrDispatcherClosed is returned by Enqueue after Shutdown.
	ErrDispatcherClosed = errors.New("bot: dispatcher closed")
	// ErrQueueFull is returned when a user's backlog is at capacity.
	ErrQueueFull = errors.New("bot: user queue full")
)

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg IncomingMessage)

// DispatcherConfig bounds the Dispatcher.
type DispatcherConfig struct {
	MaxConcurrency int
	QueueSize      int
}

type job struct {
	traceID string
	msg     IncomingMessage
}

// userQueue is the backlog of one user. A worker goroutine exists while the
// queue is in Dispatcher.queues.
type userQueue struct {
	jobs []job
}

// Dispatcher turns the serial transport event stream into per-user work
// queues: one user's messages are handled strictly in arrival order while
// different users proceed in parallel, at most MaxConcurrency at a time.
type Dispatcher struct {
	handle HandlerFunc
	cfg    DispatcherConfig
	sem    *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]*userQueue
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher that runs handle for every enqueued
// message.
func NewDispatcher(handle HandlerFunc, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handle: handle,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		ctx:    ctx,
		cancel: cancel,
		queues: make(map[string]*userQueue),
	}
}

// Enqueue schedules msg behind the user's earlier messages. It never blocks.
// The trace ID carried by ctx, if any, follows the message.
func (d *Dispatcher) Enqueue(ctx context.Context, msg IncomingMessage) error {
	traceID := trace.FromContext(ctx)
	if traceID == "" {
		traceID = trace.GenerateID()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	q, running := d.queues[msg.UserID]
	if !running {
		q = &userQueue{}
		d.queues[msg.UserID] = q
	}
	if len(q.jobs) >= d.cfg.QueueSize {
		observability.WithTrace(ctx).Warn("dropping message: user queue full",
			"user", msg.UserID, "queued", len(q.jobs))
		return ErrQueueFull
	}
	q.jobs = append(q.jobs, job{traceID: traceID, msg: msg})

	if !running {
		d.wg.Add(1)
		go d.work(msg.UserID, q)
	}
	return nil
}

// Active returns the number of users with queued or running messages.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// work drains q and exits once it is empty.
func (d *Dispatcher) work(userID string, q *userQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx := trace.WithTraceID(d.ctx, j.traceID)
	if err := d.sem.Acquire(ctx, 1); err != nil {
		observability.WithTrace(ctx).Debug("dropping message: dispatcher stopping", "user", j.msg.UserID)
		return
	}
	defer d.sem.Release(1)

	defer func() {
		if p := recover(); p != nil {
			observability.WithTrace(ctx).Error("handler panic", "user", j.msg.UserID, "panic", p)
		}
	}()
	d.handle(ctx, j.msg)
}

// Shutdown stops accepting messages and waits for queued ones to finish.
// When ctx expires first, in-flight handlers are cancelled, the rest of the
// backlog is dropped and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		slog.Warn("dispatcher shutdown timed out; remaining messages dropped")
		return ctx.Err()
	}
}
