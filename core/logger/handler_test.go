package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/reportbot/core/config"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "report")
	LogEvent(ctx, log, slog.LevelInfo, "report.opened",
		slog.String("status", "OK"),
		slog.String("cause", "unit"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=report", "event=report.opened", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	log := slog.New(handler).With("component", "tg.sender")
	LogEvent(ctx, log, slog.LevelError, "send.fail",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Duration("duration", 1500*time.Microsecond),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"tg.sender"`, `"event":"send.fail"`, `"status":"fail"`, `"rid":"rid-json"`, `"duration_ms":2`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	LogEvent(WithRID(context.Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"component":"app"`) {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	log := slog.New(handler)
	log.Debug("hidden")
	log.Info("shown", slog.Any("reasons", []string{"a", "b"}))
	closeWriter(t, aw)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %s", out)
	}
	if !strings.Contains(out, `reasons="a, b"`) {
		t.Fatalf("expected joined reasons, got %s", out)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:0"); got != "z.10.0" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var passed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("passed = %d, want 3", passed)
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}

	if num, den := parseRatioSpec("2/5"); num != 2 || den != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("10"); num != 1 || den != 10 {
		t.Fatalf("parseRatioSpec(10) = %d/%d", num, den)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("SanitizeLimit runes = %q", got)
	}
}

func TestReportAndHandlerFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithHandler(WithReport(context.Background(), "rep-1"), "photo")
	child := WithReport(ctx, "rep-2")

	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "report.opened")
	LogEvent(child, slog.New(handler), slog.LevelInfo, "report.opened", slog.String("report_id", "explicit"))
	closeWriter(t, aw)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "handler=photo report_id=rep-1") {
		t.Fatalf("first line missing context fields: %s", lines[0])
	}
	if !strings.Contains(lines[1], "report_id=explicit") || strings.Contains(lines[1], "rep-2") {
		t.Fatalf("record attribute should win over context: %s", lines[1])
	}
}

func TestAsyncWriterDropsAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 16)
	if err := aw.Write([]byte("one\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	closeWriter(t, aw)
	if err := aw.Write([]byte("two\n")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
	if buf.String() != "one\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestSettingsFrom(t *testing.T) {
	s := settingsFrom(nil)
	if s.format != formatJSON || s.level != slog.LevelInfo || s.file != "" {
		t.Fatalf("nil config settings = %+v", s)
	}

	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "dev"
	cfg.Logging.Level = "warning"
	cfg.Logging.KeysOrder = "ts, event ,,level"
	cfg.Logging.DebugSample = "2/7"
	cfg.Logging.Dir = "logs"
	cfg.Logging.BotFile = "bot.log"

	s = settingsFrom(cfg)
	if s.format != formatKV {
		t.Fatalf("dev profile format = %s", s.format)
	}
	if s.level != slog.LevelWarn {
		t.Fatalf("level = %v", s.level)
	}
	if strings.Join(s.keyOrder, ",") != "ts,event,level" {
		t.Fatalf("key order = %v", s.keyOrder)
	}
	if s.num != 2 || s.den != 7 {
		t.Fatalf("sample = %d/%d", s.num, s.den)
	}
	if s.file != filepath.Join("logs", "bot.log") {
		t.Fatalf("file = %q", s.file)
	}

	cfg.Logging.Format = "json"
	if s = settingsFrom(cfg); s.format != formatJSON {
		t.Fatalf("explicit json ignored: %s", s.format)
	}
}

func TestLevelName(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug - 2: "DEBUG",
		slog.LevelInfo + 2:  "INFO",
		slog.LevelWarn:      "WARN",
		slog.LevelError + 4: "ERROR",
	}
	for lvl, want := range cases {
		if got := levelName(lvl); got != want {
			t.Errorf("levelName(%v) = %s, want %s", lvl, got, want)
		}
	}
}
