package logger

import (
	"bufio"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// writeOp is either a log line or, when line is nil, a flush barrier.
type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter moves log output off the caller's goroutine. Lines are copied
// into a bounded queue and drained in order by a single worker.
type asyncWriter struct {
	ops     chan writeOp
	stopped chan struct{}
	closing sync.Once

	errMu   sync.Mutex
	failure error

	sinks []*bufio.Writer
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	w := &asyncWriter{
		ops:     make(chan writeOp, 256),
		stopped: make(chan struct{}),
	}
	for _, out := range writers {
		if out == nil {
			continue
		}
		w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
	}
	go w.drain()
	return w
}

func (w *asyncWriter) drain() {
	defer close(w.stopped)
	for op := range w.ops {
		if op.line == nil {
			op.ack <- w.flushSinks()
			continue
		}
		if err := w.emit(op.line); err != nil {
			w.fail(err)
		}
	}
	w.fail(w.flushSinks())
}

// Write queues a copy of p. A full queue applies backpressure; lines are
// never dropped.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	w.ops <- writeOp{line: line}
	return nil
}

// Flush blocks until every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.ops <- writeOp{ack: ack}
	return <-ack
}

// Close stops the worker after the queue is drained.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() { close(w.ops) })
	<-w.stopped
	return w.err()
}

// emit writes the line to each sink in turn; the first failing sink stops it.
func (w *asyncWriter) emit(line []byte) error {
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	var result *multierror.Error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (w *asyncWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.failure
}

// fail records the first error; later writes report it.
func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.failure == nil {
		w.failure = err
	}
}
