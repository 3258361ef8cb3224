package telegram

import (
	"github.com/m3rciful/reportbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain. Sequencing comes
// first so that everything after it runs on the sender's lane.
func DefaultMiddlewares(seq middleware.Submitter, onError func(error, tele.Context)) []Middleware {
	mws := make([]Middleware, 0, 4)
	if seq != nil {
		mws = append(mws, Middleware{Name: "sequence", Use: middleware.Sequenced(seq, onError)})
	}
	return append(mws,
		Middleware{Name: "recover", Use: middleware.RecoverMiddleware},
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}
