// Package dispatch runs deferred work on a fixed set of workers.
//
// Jobs submitted under the same key run one at a time in submission
// order; jobs under different keys may run concurrently.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Submit when the key's queue has no room.
	ErrQueueFull = errors.New("dispatch queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Job is a unit of deferred work. ctx is cancelled once the Dispatcher
// has drained and stopped.
type Job func(ctx context.Context)

// Option is a Dispatcher option function
type Option func(*Dispatcher)

// WithLogger sets the Dispatcher's logger
func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// Dispatcher is a sharded worker queue.
type Dispatcher struct {
	log    *zap.Logger
	queues []chan Job
	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	panicMu sync.Mutex
	panics  error
}

// New starts workers goroutines, each with a queue of depth jobs.
// It panics if workers or depth is less than 1.
func New(workers, depth int, opts ...Option) *Dispatcher {
	if workers < 1 || depth < 1 {
		panic(fmt.Sprintf("dispatch: invalid workers=%d depth=%d", workers, depth))
	}
	d := &Dispatcher{log: zap.NewNop(), queues: make([]chan Job, workers)}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.g = &errgroup.Group{}
	for i := range d.queues {
		q := make(chan Job, depth)
		d.queues[i] = q
		worker := i
		d.g.Go(func() error {
			d.log.Debug("worker started", zap.Int("worker", worker))
			for job := range q {
				d.run(worker, job)
			}
			d.log.Debug("worker stopped", zap.Int("worker", worker))
			return nil
		})
	}
	return d
}

func (d *Dispatcher) run(worker int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("worker %d: job panicked: %v", worker, r)
			d.log.Error("job panicked", zap.Int("worker", worker), zap.Any("panic", r))
			d.panicMu.Lock()
			d.panics = multierr.Append(d.panics, err)
			d.panicMu.Unlock()
		}
	}()
	job(d.ctx)
}

// Submit queues job on the worker owning key. It never blocks.
func (d *Dispatcher) Submit(key uint32, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.WithStack(ErrClosed)
	}
	select {
	case d.queues[int(key%uint32(len(d.queues)))] <- job:
		return nil
	default:
		return errors.WithStack(ErrQueueFull)
	}
}

// Workers returns the number of workers.
func (d *Dispatcher) Workers() int { return len(d.queues) }

// Close stops accepting jobs, waits for queued jobs to finish and
// returns the combined error of any jobs that panicked. Close must not
// be called from a Job.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errors.WithStack(ErrClosed)
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	err := d.g.Wait()
	d.cancel()
	d.panicMu.Lock()
	defer d.panicMu.Unlock()
	return multierr.Append(err, d.panics)
}
