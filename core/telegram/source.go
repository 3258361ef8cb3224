package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/netutil"
	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Source delivers updates to the bot and reports fatal transport failures.
type Source interface {
	tele.Poller
	// Err yields at most one TransportError after the source has stopped on its own.
	Err() <-chan error
}

// AllowedUpdates restricts delivery to the kinds the bot handles.
var AllowedUpdates = []string{"message", "callback_query"}

const (
	defaultMaxFailures = 8
	defaultBackoffMax  = 30 * time.Second
)

// fatal carries the single terminal error of a source.
type fatal struct {
	ch chan error
}

func newFatal() fatal { return fatal{ch: make(chan error, 1)} }

func (f fatal) Err() <-chan error { return f.ch }

func (f fatal) report(err error) {
	select {
	case f.ch <- err:
	default:
	}
}

// retry runs op until it succeeds, stop fires, or maxFailures consecutive
// failures accumulate. It returns false when the caller must stop.
func retry(ctx context.Context, stop <-chan struct{}, b netutil.Backoff, maxFailures int, f fatal, op string, fn func() error) bool {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return true
		}
		logger.LogEvent(ctx, logger.Source, slog.LevelWarn, "source.retry",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("err", sender.SanitizeError(err)),
			slog.String("err_kind", sender.ClassifyError(err)),
		)
		if attempt >= maxFailures {
			f.report(&TransportError{Op: op, Attempts: attempt, Err: err})
			return false
		}
		if !b.Sleep(ctx, attempt, stop) {
			return false
		}
	}
}

// stopContext returns a context cancelled when stop closes or cancel is called.
func stopContext(stop <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
