package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter moves sink I/O off the logging goroutines. One worker owns
// the buffered sinks; lines are flushed after every write so a crash loses
// at most what is still queued.
type asyncWriter struct {
	ops   chan writerOp
	done  chan struct{}
	sinks []*bufio.Writer

	gate   sync.RWMutex // guards ops against sends after Close
	closed bool

	mu      sync.Mutex
	failure error
}

// writerOp is either a line to write or, with a non-nil ack, a flush barrier.
type writerOp struct {
	line []byte
	ack  chan error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{ops: make(chan writerOp, 256), done: make(chan struct{})}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.flush()
			continue
		}
		w.record(w.emit(op.line))
	}
	w.record(w.flush())
}

// Write queues a copy of p, blocking while the queue is full. Lines
// written after Close are dropped.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil || len(p) == 0 {
		return err
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return nil
	}
	w.ops <- writerOp{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before it has reached the sinks.
func (w *asyncWriter) Flush() error {
	w.gate.RLock()
	if w.closed {
		w.gate.RUnlock()
		return w.err()
	}
	ack := make(chan error, 1)
	w.ops <- writerOp{ack: ack}
	w.gate.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.gate.Unlock()
	<-w.done
	return w.err()
}

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

func (w *asyncWriter) flush() error {
	errs := make([]error, 0, len(w.sinks))
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.failure == nil {
		w.failure = err
	}
	w.mu.Unlock()
}
