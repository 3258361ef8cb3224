package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/reportbot/core/telegram/netutil"
)

// pollSlack is added to the getUpdates timeout so an idle long poll is not
// cut off before Telegram answers it.
const pollSlack = 5 * time.Second

// BuildHTTPClient returns the HTTP client used for Bot API calls. Header and
// overall timeouts follow the long-poll timeout so getUpdates can idle.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	if longPoll <= 0 {
		longPoll = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: longPoll + pollSlack,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: longPoll + 4*pollSlack,
		Transport: &retryTransport{
			base:     base,
			attempts: 3,
			backoff:  netutil.Backoff{Initial: 500 * time.Millisecond, Max: 2 * time.Second},
		},
	}
}

// retryTransport repeats a request only when it never reached Telegram
// (DNS or dial failure). Timeouts and broken connections after the request
// went out are returned as is, because sendPhoto and sendMessage must not
// run twice. Requests whose body cannot be replayed get a single attempt.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  netutil.Backoff
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt < t.attempts && netutil.NotSent(err); attempt++ {
		next, ok, bodyErr := replay(req)
		if bodyErr != nil {
			return nil, bodyErr
		}
		if !ok {
			break
		}
		if !t.backoff.Sleep(req.Context(), attempt, nil) {
			return nil, req.Context().Err()
		}
		resp, err = base.RoundTrip(next)
	}
	return resp, err
}

// replay clones req with a fresh body. ok is false when the body cannot be
// produced again.
func replay(req *http.Request) (*http.Request, bool, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), true, nil
	}
	if req.GetBody == nil {
		return nil, false, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false, err
	}
	next := req.Clone(req.Context())
	next.Body = body
	return next, true, nil
}
