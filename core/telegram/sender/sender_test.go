package sender

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestDoRetriesTransientErrors(t *testing.T) {
	s := New(Options{MaxRetries: 2, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	calls := 0
	err := s.Do(context.Background(), "sendPhoto", func(context.Context) error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if s.ErrorCount() != 0 {
		t.Fatalf("ErrorCount = %d", s.ErrorCount())
	}
}

func TestDoGivesUp(t *testing.T) {
	s := New(Options{MaxRetries: 1, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	err := s.Do(context.Background(), "sendPhoto", func(context.Context) error { return dial })
	if !errors.Is(err, ErrGiveUp) {
		t.Fatalf("expected ErrGiveUp, got %v", err)
	}
	if !errors.Is(err, dial) {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d", s.ErrorCount())
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	s := New(Options{MaxRetries: 5, RetryBackoff: time.Millisecond})
	permanent := errors.New("telegram: chat not found (400)")
	calls := 0
	err := s.Do(context.Background(), "sendPhoto", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || errors.Is(err, ErrGiveUp) {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDoOnceRetriesOnlyUnsentCalls(t *testing.T) {
	s := New(Options{MaxRetries: 2, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	calls := 0
	err := s.DoOnce(context.Background(), "sendPhoto", func(context.Context) error {
		calls++
		if calls == 1 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("dial failure: err=%v calls=%d", err, calls)
	}

	calls = 0
	slow := &url.Error{Op: "Post", URL: "https://api.telegram.org/bot<redacted>/sendPhoto", Err: timeoutErr{}}
	err = s.DoOnce(context.Background(), "sendPhoto", func(context.Context) error {
		calls++
		return slow
	})
	if !errors.Is(err, slow) || errors.Is(err, ErrGiveUp) {
		t.Fatalf("timeout: err=%v", err)
	}
	if calls != 1 {
		t.Fatalf("timed out call repeated: calls=%d", calls)
	}
}

func TestDoOnceWaitsOutFloodControl(t *testing.T) {
	s := New(Options{MaxRetries: 1, RetryBackoff: time.Millisecond, MaxDuration: 5 * time.Second})
	calls := 0
	start := time.Now()
	err := s.DoOnce(context.Background(), "sendMessage", func(context.Context) error {
		calls++
		if calls == 1 {
			return tele.FloodError{RetryAfter: 1}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retried after %v, want at least 1s", elapsed)
	}
}

func TestMaxDurationStopsRetries(t *testing.T) {
	s := New(Options{MaxRetries: 100, RetryBackoff: 20 * time.Millisecond, MaxDuration: 50 * time.Millisecond})
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	calls := 0
	err := s.Do(context.Background(), "editMessageText", func(context.Context) error {
		calls++
		return dial
	})
	if !errors.Is(err, ErrGiveUp) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if calls >= 10 {
		t.Fatalf("calls = %d, budget not enforced", calls)
	}
}

func TestClassifyError(t *testing.T) {
	cases := map[string]error{
		"timeout":  context.DeadlineExceeded,
		"dial":     &net.OpError{Op: "dial", Err: errors.New("refused")},
		"http_4xx": errors.New("telegram: chat not found (400)"),
		"http_5xx": errors.New("telegram: internal (502)"),
		"flood":    errors.New("telegram: retry later (429)"),
		"unknown":  errors.New("boom"),
	}
	for want, err := range cases {
		if got := ClassifyError(err); got != want {
			t.Errorf("ClassifyError(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendPhoto": dial tcp`)
	got := SanitizeError(err)
	want := `Post "https://api.telegram.org/bot<redacted>/sendPhoto": dial tcp`
	if got != want {
		t.Fatalf("SanitizeError = %q", got)
	}
}
