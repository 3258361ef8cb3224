package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/reportbot/core/logger"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"
	"github.com/m3rciful/reportbot/core/telegram/middleware"
	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Handler summary statuses.
const (
	statusOK   = "ok"
	statusFail = "fail"
	statusSkip = "skip"
)

// summary describes one "handler.handled" line.
type summary struct {
	handler string
	status  string // empty derives ok/fail from the error
	extras  []slog.Attr
}

// run tags the update context with the handler name, calls fn and logs
// the outcome together with the outbound call counters.
func (s summary) run(c tele.Context, fn func() error) error {
	start := time.Now()
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	s.log(c, start, err)
	return err
}

func (s summary) log(c tele.Context, start time.Time, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	cnt := middleware.GetCounters(c)

	status := s.status
	if status == "" {
		status = statusOK
		if err != nil {
			status = statusFail
		}
	}

	attrs := make([]slog.Attr, 0, 10+len(s.extras))
	attrs = append(attrs,
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.Int("sent", cnt.Sent),
		slog.Int("edited", cnt.Edited),
		slog.Int("photos", cnt.Photos),
		slog.Bool("answered", cnt.Answered > 0),
		slog.Bool("kb", cnt.Keyboard),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	key = strings.ReplaceAll(key, " ", "_")
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// errorCode maps err to a short upper-case code for log filtering.
func errorCode(err error) string {
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	if errors.Is(err, sender.ErrGiveUp) {
		return "GIVE_UP"
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
