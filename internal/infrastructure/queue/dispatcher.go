package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/metrics"
	"github.com/shopassist/shopchat/internal/core/ports"
)

const (
	defaultWorkers = 2
	defaultTimeout = 30 * time.Second
	channelBuffer  = 64
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher runs detached tasks on a fixed set of workers. Tasks with the
// same name are hashed to the same worker, so they run in submission order.
type Dispatcher struct {
	workers []chan task
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	stopped bool
	pending sync.WaitGroup
}

var _ ports.TaskRunner = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers workers, each task bound
// by timeout. Non-positive values select the defaults.
func NewDispatcher(numWorkers int, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d := &Dispatcher{
		workers: make([]chan task, numWorkers),
		timeout: timeout,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan task, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// tasks still queued at that point are dropped.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Submit queues a task without blocking. When the worker's buffer is full or
// the dispatcher has stopped, the task is dropped and logged.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.drop(name, "dispatcher stopped")
		return
	}

	d.pending.Add(1)
	select {
	case d.workers[d.shardIndex(name)] <- task{name: name, fn: fn}:
		metrics.BackgroundQueueDepth.Inc()
	default:
		d.pending.Done()
		d.drop(name, "queue full")
	}
}

// Wait blocks until every submitted task has finished or been dropped.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// Shutdown refuses further submissions, cancels the workers through cancel
// and waits for queued and running tasks to finish or be dropped.
func (d *Dispatcher) Shutdown(cancel context.CancelFunc) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	cancel()
	d.pending.Wait()
}

// shardIndex maps a task name deterministically to a worker index.
func (d *Dispatcher) shardIndex(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch chan task) {
	for {
		select {
		case <-ctx.Done():
			d.stop(ch)
			return
		case t := <-ch:
			metrics.BackgroundQueueDepth.Dec()
			d.execute(ctx, id, t)
			d.pending.Done()
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, id int, t task) {
	taskCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := safeRun(taskCtx, t.fn)

	log := d.log.With().Str("task", t.name).Int("worker_id", id).Dur("elapsed", time.Since(start)).Logger()
	switch {
	case err == nil:
		metrics.BackgroundTasksTotal.WithLabelValues(t.name, "success").Inc()
		log.Debug().Msg("task finished")
	case isPanic(err):
		metrics.BackgroundTasksTotal.WithLabelValues(t.name, "panic").Inc()
		log.Error().Err(err).Msg("task panicked")
	default:
		metrics.BackgroundTasksTotal.WithLabelValues(t.name, "failure").Inc()
		log.Warn().Err(err).Msg("task failed")
	}
}

// stop marks the dispatcher stopped and discards whatever is left in ch.
func (d *Dispatcher) stop(ch chan task) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	for {
		select {
		case t := <-ch:
			metrics.BackgroundQueueDepth.Dec()
			d.drop(t.name, "dispatcher stopped")
			d.pending.Done()
		default:
			return
		}
	}
}

func (d *Dispatcher) drop(name, reason string) {
	metrics.BackgroundTasksTotal.WithLabelValues(name, "dropped").Inc()
	d.log.Warn().Str("task", name).Str("reason", reason).Msg("task dropped")
}

type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func isPanic(err error) bool {
	_, ok := err.(panicError)
	return ok
}

func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return fn(ctx)
}
