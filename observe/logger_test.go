package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf).With("cache")

	log.Info(context.Background(), "cache miss",
		F("key", "posts-all"),
		F("hits", 3),
		F("stale", false),
		F("took", 1500*time.Microsecond),
	)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	got := lines[0]
	if got["message"] != "cache miss" {
		t.Errorf("message = %v, want %q", got["message"], "cache miss")
	}
	if got["level"] != "info" {
		t.Errorf("level = %v, want info", got["level"])
	}
	if got["component"] != "cache" {
		t.Errorf("component = %v, want cache", got["component"])
	}
	if got["key"] != "posts-all" {
		t.Errorf("key = %v", got["key"])
	}
	if got["hits"] != float64(3) {
		t.Errorf("hits = %v, want 3", got["hits"])
	}
	if got["took"] != 1.5 {
		t.Errorf("took = %v, want 1.5", got["took"])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	log.Warn(context.Background(), "login", F("Password", "hunter2"), F("token", "abc"), F("email", "a@b.c"))

	got := decodeLines(t, &buf)[0]
	if got["Password"] != "[REDACTED]" {
		t.Errorf("Password = %v, want [REDACTED]", got["Password"])
	}
	if got["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", got["token"])
	}
	if got["email"] != "a@b.c" {
		t.Errorf("email = %v, want a@b.c", got["email"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	log.Debug(ctx, "dropped")
	log.Info(ctx, "dropped")
	log.Error(ctx, "kept", Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0]["error"] != "boom" {
		t.Errorf("error = %v, want boom", lines[0]["error"])
	}
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	log.Info(ctx, "hello")

	if got := decodeLines(t, &buf)[0]["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.Error(context.Background(), "nothing", F("k", "v"))
	log.With("x").Info(context.Background(), "nothing")
}

func TestRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == "" || a == b {
		t.Errorf("NewRequestID() returned %q and %q", a, b)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}
}
