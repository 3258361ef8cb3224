package middleware

import (
	"log/slog"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware gives each update a correlation id and a context carrying
// its identifiers, then logs a sampled update.received line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("rid", logger.BuildRID(c.Update().ID, tghelpers.ChatID(c), tghelpers.SenderID(c)))
		ctx := tghelpers.BuildContext(c)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", describeUpdate(c)...)
		}
		return next(c)
	}
}

// describeUpdate summarises what the update carries without logging media.
func describeUpdate(c tele.Context) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil && u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
	}

	kind := "other"
	switch {
	case upd.Callback != nil:
		kind = "callback"
		attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(callbacks.Key(upd.Callback), 128)))
	case upd.Message != nil && upd.Message.Photo != nil:
		kind = "photo"
	case upd.Message != nil:
		kind = "message"
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return append(attrs, slog.String("kind", kind))
}
