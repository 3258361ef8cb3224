package router

import (
	"log/slog"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound is used when the registry has no fallback of its own.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline button press through the registry by
// its literal payload. Handlers answer the query themselves.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{Endpoint: tele.OnCallback, Handler: func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.CallbackKey(c)
		extras := []slog.Attr{slog.String("cb_key", key)}

		if h, ok := reg.GetCallback(key); ok && h != nil {
			return summary{handler: handlerName("callback", key), extras: extras}.run(c, func() error {
				return h(c)
			})
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		s := summary{handler: "callback.unknown", status: statusSkip, extras: append(extras, slog.String("reason", "not_found"))}
		return s.run(c, func() error {
			if fallback == nil {
				return nil
			}
			return fallback(c)
		})
	}}
}
