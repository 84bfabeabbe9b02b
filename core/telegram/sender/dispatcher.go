// Package sender runs fire-and-forget Bot API calls on a small worker pool.
// Calls whose result the conversation depends on must not go through it:
// jobs from one user may run in any order.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the job was rejected because the queue is at capacity.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tunes the pool. Zero values select defaults.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	// RetryBackoff grows linearly with the attempt number.
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) normalized() Options {
	o.QueueSize = positiveOr(o.QueueSize, 256)
	o.Workers = positiveOr(o.Workers, 4)
	o.MaxRetries = max(o.MaxRetries, 0)
	o.RetryBackoff = positiveOr(o.RetryBackoff, 2*time.Second)
	o.MaxDuration = positiveOr(o.MaxDuration, 12*time.Second)
	return o
}

func positiveOr[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

type job struct {
	ctx    context.Context
	action string
	run    func() error
}

// Dispatcher drains queued calls on a fixed number of workers, retrying
// network failures that netutil.ShouldRetry deems transient.
type Dispatcher struct {
	opts  Options
	queue chan job

	gate   sync.RWMutex // guards closed against sends racing Close
	closed bool

	workers sync.WaitGroup
	failed  atomic.Uint64
}

func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{opts: opts.normalized()}
	d.queue = make(chan job, d.opts.QueueSize)
	for i := 0; i < d.opts.Workers; i++ {
		d.workers.Add(1)
		go func() {
			defer d.workers.Done()
			for j := range d.queue {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run without blocking. run may be invoked several times.
func (d *Dispatcher) Enqueue(ctx context.Context, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- job{ctx: ctx, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount is the number of jobs that exhausted their attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close rejects new jobs and blocks until the queue is drained.
func (d *Dispatcher) Close() {
	d.gate.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.gate.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) process(j job) {
	budget, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	tries, err := d.attempt(budget, j)
	if err == nil {
		logger.Debug(j.ctx, "tg.sender", "send.success",
			slog.String("action", j.action),
			slog.Int("attempt", tries),
			slog.Duration("elapsed", logger.Took(start)),
		)
		return
	}

	d.failed.Add(1)
	logger.Warn(j.ctx, "tg.sender", "send.fail",
		slog.String("action", j.action),
		slog.String("error_kind", ClassifyError(err)),
		slog.String("err", RedactToken(err.Error())),
		slog.Int("attempts", tries),
		slog.Duration("elapsed", logger.Took(start)),
	)
}

// attempt runs j until it succeeds, fails permanently, runs out of retries
// or exceeds budget. It reports how many calls were made.
func (d *Dispatcher) attempt(budget context.Context, j job) (int, error) {
	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run()
		if err == nil {
			return n, nil
		}
		if n == limit || !netutil.ShouldRetry(err) {
			return n, err
		}
		wait := d.opts.RetryBackoff * time.Duration(n)
		if werr := sleepCtx(budget, wait); werr != nil {
			return n, errors.Join(err, werr)
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", j.action),
			slog.Int("attempt", n),
			slog.Duration("delay", wait),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
