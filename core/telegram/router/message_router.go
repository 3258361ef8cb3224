package router

import (
	"time"

	tg "github.com/m3rciful/reportbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageRoutes builds the photo and plain-text handlers.
// Text naming a registered command (for example "start" typed without the
// slash) is dispatched to it before the fallback.
func MessageRoutes(reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		if name, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
			return summary{handler: handlerName("", name)}.run(c, func() error { return cmd.Handler(c) })
		}
		if fb := reg.TextFallback(); fb != nil {
			return summary{handler: "text.fallback"}.run(c, func() error { return fb(c) })
		}
		summary{handler: "text.unhandled", status: statusSkip}.log(c, time.Now(), nil)
		return nil
	}

	photo := func(c tele.Context) error {
		h := reg.PhotoHandler()
		if h == nil {
			summary{handler: "photo", status: statusSkip}.log(c, time.Now(), nil)
			return nil
		}
		return summary{handler: "photo"}.run(c, func() error { return h(c) })
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnPhoto, Handler: photo},
	}
}
