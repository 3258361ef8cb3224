package logger

import (
	"log/slog"
	"strings"
)

// levelName renders slog levels without offsets such as "INFO+2".
func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// canonicalStatus lower-cases status values; unknown ones pass through.
func canonicalStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// defaultKeyOrder puts correlation first, then the report workflow fields,
// then transport details and errors. Unlisted keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",
	"handler", "kind", "cb_key",
	"report_id", "reason", "selected", "reasons", "replaced",
	"sent", "edited", "photos", "answered", "kb", "duration_ms",
	"action", "attempt", "attempts", "delay_ms", "backoff_ms",
	"mode", "offset", "batch", "addr", "method", "path", "remote",
	"payload", "username",
	"db", "host", "port",
	"err", "err_kind", "err_code",
}
