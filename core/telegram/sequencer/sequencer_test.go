package sequencer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSameKeyRunsInOrder(t *testing.T) {
	s := New()
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		if err := s.Submit(7, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("ran %d items, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d ran item %d", i, v)
		}
	}
}

func TestSameKeyNeverOverlaps(t *testing.T) {
	s := New()
	var active, maxActive atomic.Int32
	for i := 0; i < 20; i++ {
		_ = s.Submit(1, func() {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}
	_ = s.Close(context.Background())
	if maxActive.Load() != 1 {
		t.Fatalf("max concurrent items for one key = %d", maxActive.Load())
	}
}

func TestDistinctKeysRunConcurrently(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan int64, 2)
	for _, key := range []int64{1, 2} {
		key := key
		_ = s.Submit(key, func() {
			started <- key
			<-release
		})
	}
	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-timeout:
			t.Fatal("second key blocked behind the first")
		}
	}
	close(release)
	_ = s.Close(context.Background())
}

func TestSubmitAfterClose(t *testing.T) {
	s := New()
	_ = s.Close(context.Background())
	if err := s.Submit(1, func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPanicDoesNotStallLane(t *testing.T) {
	s := New()
	var ran atomic.Bool
	_ = s.Submit(3, func() { panic("boom") })
	_ = s.Submit(3, func() { ran.Store(true) })
	_ = s.Close(context.Background())
	if !ran.Load() {
		t.Fatal("item after panic did not run")
	}
	if s.Pending() != 0 {
		t.Fatalf("lane not released")
	}
}

func TestPendingCountsAllLanes(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func() { started <- struct{}{}; <-release }
	_ = s.Submit(1, block)
	_ = s.Submit(1, func() {})
	_ = s.Submit(2, block)
	<-started
	<-started
	if got := s.Pending(); got != 3 {
		t.Fatalf("Pending = %d, want 3", got)
	}
	close(release)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending after close = %d", got)
	}
}
