package log

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCompactHandlerOutput(t *testing.T) {
	var sb strings.Builder
	h := &compactHandler{level: slog.LevelInfo, w: &sb}
	l := slog.New(h).With(slog.String("component", "store"))
	l.Info("saved", slog.Int("items", 3))

	out := sb.String()
	if !strings.Contains(out, "INF saved") {
		t.Fatalf("missing level/message in output: %q", out)
	}
	if !strings.Contains(out, "component=store") || !strings.Contains(out, "items=3") {
		t.Fatalf("missing attributes in output: %q", out)
	}
}

func TestCompactHandlerLevelGate(t *testing.T) {
	h := &compactHandler{level: slog.LevelWarn, w: &strings.Builder{}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestWithComponentReturnsLogger(t *testing.T) {
	if WithComponent("test") == nil {
		t.Fatalf("WithComponent returned nil")
	}
}
