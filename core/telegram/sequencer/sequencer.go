// Package sequencer runs work in per-key FIFO lanes. Work submitted under
// the same key executes one item at a time in submission order; distinct
// keys run concurrently.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/reportbot/core/logger"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("sequencer: closed")

type lane struct {
	queue []func()
}

// Sequencer owns one drain goroutine per busy key. Idle keys hold no state.
type Sequencer struct {
	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
}

// New returns an empty sequencer.
func New() *Sequencer {
	return &Sequencer{lanes: make(map[int64]*lane)}
}

// Submit appends fn to key's lane. It never blocks on the work itself.
func (s *Sequencer) Submit(key int64, fn func()) error {
	if fn == nil {
		return errors.New("sequencer: nil func")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if l, ok := s.lanes[key]; ok {
		l.queue = append(l.queue, fn)
		return nil
	}
	s.lanes[key] = &lane{queue: []func(){fn}}
	s.wg.Add(1)
	go s.drain(key)
	return nil
}

// Pending reports the number of queued or running items across all lanes.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lanes {
		n += len(l.queue)
	}
	return n
}

// Close rejects further submissions and waits for queued work to finish
// or ctx to expire.
func (s *Sequencer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) drain(key int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		l := s.lanes[key]
		if len(l.queue) == 0 {
			delete(s.lanes, key)
			s.mu.Unlock()
			return
		}
		fn := l.queue[0]
		s.mu.Unlock()

		run(key, fn)

		s.mu.Lock()
		l.queue[0] = nil
		l.queue = l.queue[1:]
		s.mu.Unlock()
	}
}

func run(key int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), "tg.sequencer", "lane.panic",
				slog.Int64("user_id", key),
				slog.String("err", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}
