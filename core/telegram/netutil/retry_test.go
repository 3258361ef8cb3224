package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("telegram: bad request (400)"), false},
		{"cancelled", context.Canceled, false},
		{"dial", dial, true},
		{"wrapped url dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true},
		{"deadline", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, true},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Errorf("%s: ShouldRetry = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffSleepInterrupted(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	b := Backoff{Initial: time.Hour}
	if b.Sleep(context.Background(), 1, stop) {
		t.Fatal("Sleep should report interruption")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "net/http: timeout awaiting response headers" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNotSent(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, true},
		{"read after write", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: read}, false},
		{"header timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range cases {
		if got := NotSent(tc.err); got != tc.want {
			t.Errorf("%s: NotSent = %v, want %v", tc.name, got, tc.want)
		}
	}
	if !ShouldRetry(&url.Error{Op: "Post", URL: "x", Err: timeoutErr{}}) {
		t.Fatal("timeouts stay retryable for repeatable calls")
	}
}
