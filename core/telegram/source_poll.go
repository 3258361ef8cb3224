package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/netutil"
	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// FetchFunc performs one getUpdates call.
type FetchFunc func(b *tele.Bot, offset int, timeout time.Duration) ([]tele.Update, error)

// PollOptions configures a PollSource. Zero values select defaults.
type PollOptions struct {
	Timeout     time.Duration
	MaxFailures int
	Backoff     netutil.Backoff

	// Fetch and DropPending replace the Bot API calls, mainly for tests.
	Fetch       FetchFunc
	DropPending func(b *tele.Bot) error
}

// PollSource long-polls getUpdates. It advances its offset past every
// returned batch before handing the batch on, so a batch is never fetched twice.
type PollSource struct {
	opts   PollOptions
	offset int
	fatal
}

// NewPollSource applies defaults to opts.
func NewPollSource(opts PollOptions) *PollSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Backoff.Max <= 0 {
		opts.Backoff.Max = defaultBackoffMax
	}
	if opts.Fetch == nil {
		opts.Fetch = fetchUpdates
	}
	if opts.DropPending == nil {
		opts.DropPending = func(b *tele.Bot) error { return b.RemoveWebhook(true) }
	}
	return &PollSource{opts: opts, fatal: newFatal()}
}

// Poll implements tele.Poller.
func (p *PollSource) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	ctx, cancel := stopContext(stop)
	defer cancel()

	// Removing the webhook with drop_pending_updates discards the backlog
	// queued while the process was down.
	if !retry(ctx, stop, p.opts.Backoff, p.opts.MaxFailures, p.fatal, "deleteWebhook", func() error {
		return p.opts.DropPending(b)
	}) {
		return
	}
	logger.LogEvent(ctx, logger.Source, slog.LevelInfo, "source.started",
		slog.String("mode", "longpoll"),
		slog.Duration("timeout", p.opts.Timeout),
	)

	failures := 0
	for {
		updates, err := p.fetch(ctx, b)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			logger.LogEvent(ctx, logger.Source, slog.LevelWarn, "source.fetch_failed",
				slog.Int("attempt", failures),
				slog.Int("offset", p.offset),
				slog.String("err", sender.SanitizeError(err)),
				slog.String("err_kind", sender.ClassifyError(err)),
			)
			if failures >= p.opts.MaxFailures {
				p.report(&TransportError{Op: "getUpdates", Attempts: failures, Err: err})
				return
			}
			if !p.opts.Backoff.Sleep(ctx, failures, stop) {
				return
			}
			continue
		}
		failures = 0
		if len(updates) == 0 {
			continue
		}

		p.offset = updates[len(updates)-1].ID + 1
		logger.LogEvent(ctx, logger.Source, slog.LevelDebug, "source.batch",
			slog.Int("batch", len(updates)),
			slog.Int("offset", p.offset),
		)
		for _, u := range updates {
			select {
			case dest <- u:
			case <-stop:
				return
			}
		}
	}
}

// fetch runs one getUpdates call, abandoning it when ctx is cancelled.
func (p *PollSource) fetch(ctx context.Context, b *tele.Bot) ([]tele.Update, error) {
	type result struct {
		updates []tele.Update
		err     error
	}
	done := make(chan result, 1)
	offset := p.offset
	go func() {
		u, err := p.opts.Fetch(b, offset, p.opts.Timeout)
		done <- result{u, err}
	}()
	select {
	case r := <-done:
		return r.updates, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func fetchUpdates(b *tele.Bot, offset int, timeout time.Duration) ([]tele.Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": AllowedUpdates,
	}
	data, err := b.Raw("getUpdates", params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result []tele.Update `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: getUpdates: %w", ErrDecode, err)
	}
	return resp.Result, nil
}
