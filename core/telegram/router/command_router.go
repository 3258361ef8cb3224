package router

import (
	"log/slog"

	"github.com/m3rciful/reportbot/core/logger"
	tg "github.com/m3rciful/reportbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command and its aliases.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	var routes []tg.Route
	for name, cmd := range reg.Commands() {
		h, s := cmd.Handler, summary{handler: handlerName("", name)}
		bound := func(c tele.Context) error { return s.run(c, func() error { return h(c) }) }

		routes = append(routes, tg.Route{Endpoint: name, Handler: bound})
		for _, alias := range cmd.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: bound})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
		slog.Bool("photo", reg.PhotoHandler() != nil),
	)
	return routes
}
