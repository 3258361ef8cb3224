package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const maxWebhookBody = 1 << 20

// WebhookOptions configures a WebhookSource.
type WebhookOptions struct {
	// PublicURL is the full URL Telegram posts to, secret path included.
	PublicURL   string
	Secret      string
	MaxFailures int
	Backoff     netutil.Backoff

	// Register replaces the setWebhook call, mainly for tests.
	Register func(b *tele.Bot) error
}

// WebhookSource receives updates pushed by Telegram. It is an http.Handler
// mounted at /webhook/{secret} and a tele.Poller that registers the webhook
// and forwards accepted updates to the bot.
type WebhookSource struct {
	opts WebhookOptions
	fatal

	mu   sync.RWMutex
	dest chan tele.Update
	stop chan struct{}
}

// NewWebhookSource applies defaults to opts.
func NewWebhookSource(opts WebhookOptions) *WebhookSource {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Backoff.Max <= 0 {
		opts.Backoff.Max = defaultBackoffMax
	}
	if opts.Register == nil {
		url := opts.PublicURL
		opts.Register = func(b *tele.Bot) error {
			return b.SetWebhook(&tele.Webhook{
				Endpoint:       &tele.WebhookEndpoint{PublicURL: url},
				DropUpdates:    true,
				AllowedUpdates: AllowedUpdates,
			})
		}
	}
	return &WebhookSource{opts: opts, fatal: newFatal()}
}

// Poll implements tele.Poller. It registers the webhook, dropping the
// pending backlog, and then accepts pushes until stop closes.
func (w *WebhookSource) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	ctx, cancel := stopContext(stop)
	defer cancel()

	if !retry(ctx, stop, w.opts.Backoff, w.opts.MaxFailures, w.fatal, "setWebhook", func() error {
		return w.opts.Register(b)
	}) {
		return
	}

	w.mu.Lock()
	w.dest, w.stop = dest, stop
	w.mu.Unlock()
	logger.LogEvent(ctx, logger.Source, slog.LevelInfo, "source.started", slog.String("mode", "webhook"))

	<-stop

	w.mu.Lock()
	w.dest, w.stop = nil, nil
	w.mu.Unlock()
}

// ServeHTTP validates the path secret and queues the decoded update.
func (w *WebhookSource) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if secret == "" {
		secret = path.Base(r.URL.Path)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(w.opts.Secret)) != 1 {
		logger.LogEvent(r.Context(), logger.HTTP, slog.LevelWarn, "webhook.forbidden",
			slog.String("status", "fail"),
			slog.String("remote", r.RemoteAddr),
		)
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	upd, err := decodeUpdate(r)
	if err != nil {
		// Telegram retries anything but 2xx, and a malformed body never gets better.
		logger.LogEvent(r.Context(), logger.HTTP, slog.LevelWarn, "webhook.decode_failed",
			slog.String("status", "skip"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		writeAck(rw)
		return
	}

	w.mu.RLock()
	dest, stop := w.dest, w.stop
	w.mu.RUnlock()
	if dest == nil {
		http.Error(rw, "not ready", http.StatusServiceUnavailable)
		return
	}

	select {
	case dest <- upd:
		writeAck(rw)
	case <-stop:
		http.Error(rw, "shutting down", http.StatusServiceUnavailable)
	case <-r.Context().Done():
	}
}

func decodeUpdate(r *http.Request) (tele.Update, error) {
	var upd tele.Update
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err := dec.Decode(&upd); err != nil {
		return tele.Update{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if upd.ID == 0 {
		return tele.Update{}, fmt.Errorf("%w: missing update_id", ErrDecode)
	}
	return upd, nil
}

func writeAck(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte(`{"ok":true}`))
}
