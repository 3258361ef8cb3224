package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler writes each record as one KV or JSON line. Keys follow
// keyOrder; correlation fields come from the context when the record lacks them.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = defaultKeyOrder
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	fields := h.fields(ctx, r)

	var (
		line []byte
		err  error
	)
	if h.cfg.format == formatJSON {
		line, err = formatJSONLine(fields, h.cfg.keyOrder)
		if err != nil {
			return err
		}
	} else {
		line = formatKVLine(fields, h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) fields(ctx context.Context, r slog.Record) map[string]any {
	isJSON := h.cfg.format == formatJSON
	f := make(map[string]any, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = levelName(r.Level)
	if isJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	add := func(a slog.Attr) bool {
		flatten(h.prefix, a, func(k string, v slog.Value) {
			if val, ok := plainValue(v); ok {
				if v.Kind() == slog.KindDuration {
					k = durationKey(k)
				}
				f[k] = val
			}
		})
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)
	fillFromContext(ctx, f)

	if rid, _ := f["rid"].(string); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			f["rid"] = compact
			if isJSON {
				f["rid_full"] = rid
			}
		}
	}
	if ev, _ := f["event"].(string); ev == "" {
		f["event"] = firstNonEmpty(r.Message, "unknown")
	}
	if c, _ := f["component"].(string); c == "" {
		f["component"] = "app"
	}
	if s, ok := f["status"].(string); ok {
		f["status"] = canonicalStatus(s)
	}
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
	return f
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix != "" {
		clone.prefix += "." + name
	} else {
		clone.prefix = name
	}
	return &clone
}

func flatten(prefix string, a slog.Attr, emit func(string, slog.Value)) {
	key := a.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "" && !strings.HasPrefix(key, prefix+"."):
		key = prefix + "." + key
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, emit)
		}
		return
	}
	if key != "" {
		emit(key, v)
	}
}

// durationKey maps duration attributes onto *_ms keys.
func durationKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// plainValue converts v to a JSON-friendly value. Durations become whole milliseconds.
func plainValue(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), true
		}
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindDuration:
		return RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false
	case error:
		return x.Error(), true
	case []string:
		return strings.Join(x, ", "), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

func fillFromContext(ctx context.Context, f map[string]any) {
	m := metaFrom(ctx)
	set := func(key string, val any, ok bool) {
		if _, exists := f[key]; ok && !exists {
			f[key] = val
		}
	}
	set("rid", m.rid, m.rid != "")
	set("update_id", int64(m.updateID), m.updateID != 0)
	set("user_id", m.userID, m.userID != 0)
	set("chat_id", m.chatID, m.chatID != 0)
	set("handler", m.handler, m.handler != "")
	set("report_id", m.reportID, m.reportID != "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
