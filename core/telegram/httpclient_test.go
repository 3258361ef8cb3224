package telegram

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/reportbot/core/telegram/netutil"
)

type scriptedTransport struct {
	errs   []error
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	s.bodies = append(s.bodies, string(body))
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func newTestTransport(base http.RoundTripper) *retryTransport {
	return &retryTransport{
		base:     base,
		attempts: 3,
		backoff:  netutil.Backoff{Initial: time.Millisecond, Max: time.Millisecond},
	}
}

func TestRetryTransportReplaysBodyAfterDialFailure(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	base := &scriptedTransport{errs: []error{dial, dial}}
	req, _ := http.NewRequest(http.MethodPost, "http://bot.invalid/sendPhoto", bytes.NewBufferString(`{"chat_id":"2"}`))

	resp, err := newTestTransport(base).RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if len(base.bodies) != 3 {
		t.Fatalf("attempts = %d, want 3", len(base.bodies))
	}
	for i, b := range base.bodies {
		if b != `{"chat_id":"2"}` {
			t.Fatalf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryTransportKeepsSentRequestFailures(t *testing.T) {
	reset := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	base := &scriptedTransport{errs: []error{reset}}
	req, _ := http.NewRequest(http.MethodPost, "http://bot.invalid/sendMessage", strings.NewReader("{}"))

	if _, err := newTestTransport(base).RoundTrip(req); !errors.Is(err, reset) {
		t.Fatalf("err = %v", err)
	}
	if len(base.bodies) != 1 {
		t.Fatalf("attempts = %d, want 1", len(base.bodies))
	}
}
