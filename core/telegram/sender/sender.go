package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// ErrGiveUp marks an outbound call that failed after the retry budget was spent.
var ErrGiveUp = errors.New("telegram sender: giving up")

// Options controls the retry behaviour of the Sender.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single call, waits
	// included. It does not cut short an attempt already in flight.
	MaxDuration time.Duration
}

// Sender executes outbound Telegram calls inline, retrying failures that
// are safe to repeat. Callers observe the final outcome, which the report
// workflow needs to decide between confirmation and failure notice.
type Sender struct {
	opts    Options
	backoff netutil.Backoff
	errs    atomic.Uint64
}

// New returns a Sender with defaults applied to zeroed options.
func New(opts Options) *Sender {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	return &Sender{
		opts:    opts,
		backoff: netutil.Backoff{Initial: opts.RetryBackoff, Max: opts.MaxDuration / 2},
	}
}

// ErrorCount returns the number of calls that ultimately failed.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Do runs an idempotent call until it succeeds, returns a non-retryable
// error, or the retry budget is exhausted. Exhaustion wraps the last error
// with ErrGiveUp. MaxDuration bounds the attempts and the waits between
// them; a single attempt is bounded by the HTTP client timeout since Bot API
// calls do not take a context.
func (s *Sender) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	return s.run(ctx, action, netutil.ShouldRetry, fn)
}

// DoOnce runs a call that must not be delivered twice. It is repeated only
// when the failure proves nothing reached Telegram, or when Telegram asked
// the bot to wait with a 429.
func (s *Sender) DoOnce(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	return s.run(ctx, action, netutil.NotSent, fn)
}

func (s *Sender) run(ctx context.Context, action string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("telegram sender: nil call")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := s.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := callCtx.Err(); err != nil {
			lastErr = err
			break
		}
		err := fn(callCtx)
		if err == nil {
			logSuccess(ctx, action, attempt, time.Since(start))
			return nil
		}
		lastErr = err
		wait, flood := floodWait(err)
		if !flood && !retryable(err) {
			s.errs.Add(1)
			logFailure(ctx, action, err, attempt, time.Since(start))
			return err
		}
		if attempt == attempts {
			break
		}
		if !flood {
			wait = s.backoff.Delay(attempt)
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", action),
			slog.Int("attempt", attempt),
			slog.Duration("delay", wait),
			slog.Bool("flood", flood),
		)
		if !sleepCtx(callCtx, wait) {
			lastErr = callCtx.Err()
			break
		}
	}

	s.errs.Add(1)
	logFailure(ctx, action, lastErr, attempts, time.Since(start))
	return fmt.Errorf("%w: %s: %w", ErrGiveUp, action, lastErr)
}

// floodWait returns the pause Telegram requested with a 429 response.
func floodWait(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func logSuccess(ctx context.Context, action string, attempt int, elapsed time.Duration) {
	attrs := []slog.Attr{slog.String("action", action), slog.Duration("duration", elapsed)}
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
		logger.Info(ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func logFailure(ctx context.Context, action string, err error, attempts int, elapsed time.Duration) {
	logger.Error(ctx, "tg.sender", "send.fail",
		slog.String("action", action),
		slog.String("status", "fail"),
		slog.String("err", SanitizeError(err)),
		slog.String("err_kind", ClassifyError(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", elapsed),
	)
}
