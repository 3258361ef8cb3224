package middleware

import (
	"log/slog"

	"github.com/m3rciful/reportbot/core/logger"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Submitter queues work in a per-key FIFO lane.
type Submitter interface {
	Submit(key int64, fn func()) error
}

// Sequenced moves handling of each update onto its sender's lane, so one
// user's updates run in arrival order while other users proceed in parallel.
// It must be the outermost middleware of a bot running in synchronous mode.
// Errors returned by the lane are passed to onError.
func Sequenced(seq Submitter, onError func(error, tele.Context)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			key := tghelpers.SenderID(c)
			if key == 0 {
				key = tghelpers.ChatID(c)
			}
			err := seq.Submit(key, func() {
				if err := next(c); err != nil && onError != nil {
					onError(err, c)
				}
			})
			if err != nil {
				logger.Warn(tghelpers.BuildContext(c), "tg", "update.rejected",
					slog.String("status", "skip"),
					slog.String("err", err.Error()),
				)
			}
			return nil
		}
	}
}
