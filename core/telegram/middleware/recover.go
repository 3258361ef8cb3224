package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/reportbot/core/logger"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware converts a handler panic into an error for OnError and
// logs the stack. The sequencer lane keeps running.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("telegram: handler panic: %v", r)
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
				slog.String("stack", string(debug.Stack())),
			)
		}()
		return next(c)
	}
}
